// Package guard provides the re-entrancy lock that keeps a desk from running
// two submissions at once.
package guard

import (
	"sync"
	"sync/atomic"
)

// Guard is a non-blocking mutual exclusion flag. A second acquisition while
// held fails instead of waiting.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the guard. When ok is false the guard is already held and
// release is a no-op. Release is idempotent so it can be deferred and also
// called early.
func (g *Guard) TryAcquire() (release func(), ok bool) {
	if !g.held.CompareAndSwap(false, true) {
		return func() {}, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.held.Store(false) })
	}, true
}

// Held reports whether a submission is in flight.
func (g *Guard) Held() bool {
	return g.held.Load()
}
