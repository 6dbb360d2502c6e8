// Package lookup resolves a typed alias into account summaries for one input
// field, discarding answers that arrive after the field changed.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

// ErrStale is returned when the field changed while the search was in flight.
// The response is dropped and the current results are left untouched.
var ErrStale = errors.New("lookup response is stale")

// Searcher is the subset of the note API a lookup needs.
type Searcher interface {
	SearchConsumers(ctx context.Context, pattern string) ([]noteapi.Consumer, error)
}

// Result is the outcome of one Search call.
type Result struct {
	Pattern string
	// Fresh is false when the pattern equals the previous one and no request
	// was made.
	Fresh bool
	items []model.AccountSummary
}

// All yields the summaries of the response in server order. The sequence
// replays the response already received; it never queries again.
func (r Result) All() iter.Seq[model.AccountSummary] {
	return func(yield func(model.AccountSummary) bool) {
		for _, item := range r.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Len returns the number of summaries.
func (r Result) Len() int {
	return len(r.items)
}

// Lookup tracks one input field: its current value, the last pattern that was
// queried and the results of that query.
type Lookup struct {
	client  Searcher
	metrics *metrics.Collector

	mu          sync.Mutex
	current     string
	lastPattern string
	results     []model.AccountSummary
}

// New creates a lookup bound to client. m may be nil.
func New(client Searcher, m *metrics.Collector) *Lookup {
	return &Lookup{client: client, metrics: m}
}

// Search records pattern as the field's value and queries the matching
// consumers. An empty pattern clears the results without a request, and a
// pattern equal to the previous one returns the current results unchanged.
// Until a response is accepted the previous results stay in place.
func (l *Lookup) Search(ctx context.Context, pattern string) (Result, error) {
	l.mu.Lock()
	l.current = pattern
	if pattern == l.lastPattern {
		res := Result{Pattern: pattern, items: l.snapshot()}
		l.mu.Unlock()
		l.metrics.RecordLookup("unchanged")
		return res, nil
	}
	l.lastPattern = pattern
	if pattern == "" {
		l.results = nil
		l.mu.Unlock()
		l.metrics.RecordLookup("cleared")
		return Result{Pattern: pattern, Fresh: true}, nil
	}
	l.mu.Unlock()

	consumers, err := l.client.SearchConsumers(ctx, pattern)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != pattern {
		l.metrics.RecordLookup("stale")
		return Result{}, ErrStale
	}
	if err != nil {
		l.metrics.RecordLookup("error")
		// Forget the pattern so retyping it queries again.
		l.lastPattern = ""
		return Result{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToLookup, err)
	}

	results := make([]model.AccountSummary, 0, len(consumers))
	for _, c := range consumers {
		results = append(results, c.Summary())
	}
	l.results = results
	l.metrics.RecordLookup("queried")

	return Result{Pattern: pattern, Fresh: true, items: l.snapshot()}, nil
}

// Results returns the results of the last accepted response.
func (l *Lookup) Results() []model.AccountSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Pick returns the result matched through the given alias id.
func (l *Lookup) Pick(aliasID int) (model.AccountSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.results {
		if r.AliasID == aliasID {
			return r, nil
		}
	}
	return model.AccountSummary{}, apperrors.ErrLookupResultNotFound
}

// First returns the first result, what pressing Enter in the field selects.
func (l *Lookup) First() (model.AccountSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.results) == 0 {
		return model.AccountSummary{}, apperrors.ErrLookupResultNotFound
	}
	return l.results[0], nil
}

// Input returns the field's current value.
func (l *Lookup) Input() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Reset empties the field and its results. In-flight responses become stale
// unless the field was already empty.
func (l *Lookup) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = ""
	l.lastPattern = ""
	l.results = nil
}

func (l *Lookup) snapshot() []model.AccountSummary {
	out := make([]model.AccountSummary, len(l.results))
	copy(out, l.results)
	return out
}
