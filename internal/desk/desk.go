// Package desk holds the two interactive desks of a kiosk session: the
// consumption desk (payers buying buttons) and the transfer desk (moving money
// between notes, or in and out through special notes).
//
// A desk owns its carts, lookups, mode and re-entrancy guard. Every mutation
// is serialized by the desk mutex; submissions release the mutex while the
// requests are in flight and hold the guard instead, so lookups keep working
// and mutations are refused with apperrors.ErrLocked.
package desk

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/cart"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/lookup"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/render"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// Deps are the collaborators shared by every desk of every session.
type Deps struct {
	Client  noteapi.Client
	Submit  *service.SubmitService
	Catalog *service.CatalogService
	Members *service.MemberService
	Config  *config.Config
	Metrics *metrics.Collector
}

func (d Deps) styler() render.Styler {
	return render.Styler{
		Danger:  d.Config.Submit.DangerThreshold,
		Alert:   d.Config.Submit.AlertThreshold,
		Warning: d.Config.Submit.WarningThreshold,
	}
}

// Generation counts refresh requests for the read-only fragments of the page
// (balance, history). The page reloads them whenever the value moves.
type Generation struct {
	n atomic.Uint64
}

// Bump requests one refresh and returns the new generation.
func (g *Generation) Bump() uint64 {
	return g.n.Add(1)
}

// Load returns the current generation.
func (g *Generation) Load() uint64 {
	return g.n.Load()
}

// Field names a lookup field and the cart it feeds.
type Field string

const (
	FieldPayers       Field = "payers"
	FieldSources      Field = "sources"
	FieldDestinations Field = "destinations"
)

// ParseField parses a field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldPayers, FieldSources, FieldDestinations:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownField, s)
	}
}

// accountEntry builds the cart entry of a selected lookup result.
func accountEntry(a model.AccountSummary) func() cart.Entry[model.AccountSummary] {
	return func() cart.Entry[model.AccountSummary] {
		return cart.Entry[model.AccountSummary]{Label: a.Label(), Payload: a}
	}
}

// pick resolves a lookup selection. Alias id 0 selects the first result, what
// pressing Enter in the field does.
func pick(l *lookup.Lookup, aliasID int) (model.AccountSummary, error) {
	if aliasID == 0 {
		return l.First()
	}
	return l.Pick(aliasID)
}

// resultChips projects lookup results onto selectable chips keyed by alias id.
func resultChips(prefix string, results []model.AccountSummary, style func(model.AccountSummary) string, action func(int) string) []render.Chip {
	entries := make([]cart.Entry[model.AccountSummary], 0, len(results))
	for _, r := range results {
		entries = append(entries, cart.Entry[model.AccountSummary]{Key: r.AliasID, Label: r.Label(), Payload: r})
	}
	return render.Chips(prefix, entries, style, action)
}

// fieldErrors extracts the per-field messages of a validation failure.
func fieldErrors(err error) map[string]string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
