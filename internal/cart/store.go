// Package cart holds the ordered, quantity-accumulating collections that back
// the payer and item lists of a desk.
package cart

// Entry is one distinct account or item in a store.
type Entry[T any] struct {
	Key      int    `json:"key"`
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
	Payload  T      `json:"payload"`
}

// Store is an insertion-ordered set of entries keyed by id.
// Every present entry has a quantity of at least one.
//
// A Store is not safe for concurrent use; its owner serializes access.
type Store[T any] struct {
	entries []Entry[T]
}

// New creates an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// AddOrIncrement increments the entry for key, or appends the entry built by
// factory with a quantity of one. The resulting entry is returned.
func (s *Store[T]) AddOrIncrement(key int, factory func() Entry[T]) Entry[T] {
	if i := s.index(key); i >= 0 {
		s.entries[i].Quantity++
		return s.entries[i]
	}

	entry := factory()
	entry.Key = key
	entry.Quantity = 1
	s.entries = append(s.entries, entry)
	return entry
}

// DecrementOrRemove decrements the entry for key and removes it when its
// quantity reaches zero. Unknown keys are ignored.
func (s *Store[T]) DecrementOrRemove(key int) {
	i := s.index(key)
	if i < 0 {
		return
	}
	if s.entries[i].Quantity > 1 {
		s.entries[i].Quantity--
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
}

// Clear empties the store.
func (s *Store[T]) Clear() {
	s.entries = nil
}

// KeepLast collapses the store to its most recent entry with a quantity of one.
func (s *Store[T]) KeepLast() {
	if len(s.entries) == 0 {
		return
	}
	last := s.entries[len(s.entries)-1]
	last.Quantity = 1
	s.entries = []Entry[T]{last}
}

// Entries returns a copy of the entries in display order.
func (s *Store[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry for key.
func (s *Store[T]) Get(key int) (Entry[T], bool) {
	if i := s.index(key); i >= 0 {
		return s.entries[i], true
	}
	return Entry[T]{}, false
}

// Len returns the number of distinct entries.
func (s *Store[T]) Len() int {
	return len(s.entries)
}

func (s *Store[T]) index(key int) int {
	for i := range s.entries {
		if s.entries[i].Key == key {
			return i
		}
	}
	return -1
}
