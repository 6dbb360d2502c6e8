package desk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
	"github.com/ndewijer/note-kfet-kiosk/internal/cart"
	"github.com/ndewijer/note-kfet-kiosk/internal/guard"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/lookup"
	"github.com/ndewijer/note-kfet-kiosk/internal/mode"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/render"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// ConsumptionView is the state of the consumption desk as the page renders it.
type ConsumptionView struct {
	Mode    mode.ConsumptionMode `json:"mode"`
	Payers  []render.Chip        `json:"payers"`
	Items   []render.Chip        `json:"items"`
	Results []render.Chip        `json:"results"`
	// Pattern is the current value of the payer field.
	Pattern    string            `json:"pattern"`
	Locked     bool              `json:"locked"`
	Errors     map[string]string `json:"errors,omitempty"`
	Generation uint64            `json:"generation"`
}

// ConsumptionDesk is the point of sale: payers buy buttons.
type ConsumptionDesk struct {
	deps    Deps
	feed    *banner.Feed
	refresh *Generation
	logger  *logging.Logger

	mu     sync.Mutex
	mode   mode.ConsumptionMode
	payers *cart.Store[model.AccountSummary]
	items  *cart.Store[model.ItemTemplate]
	lookup *lookup.Lookup
	errors map[string]string

	guard guard.Guard
}

// NewConsumptionDesk creates a desk in the given initial mode.
func NewConsumptionDesk(deps Deps, feed *banner.Feed, refresh *Generation, initial mode.ConsumptionMode) *ConsumptionDesk {
	if initial == "" {
		initial = mode.Single
	}
	return &ConsumptionDesk{
		deps:    deps,
		feed:    feed,
		refresh: refresh,
		logger:  logging.L().Named("desk.consumption"),
		mode:    initial,
		payers:  cart.New[model.AccountSummary](),
		items:   cart.New[model.ItemTemplate](),
		lookup:  lookup.New(deps.Client, deps.Metrics),
	}
}

// Search runs a keystroke of the payer field.
func (d *ConsumptionDesk) Search(ctx context.Context, pattern string) (lookup.Result, error) {
	return d.lookup.Search(ctx, pattern)
}

// SelectPayer adds the chosen lookup result to the payers. In single mode,
// with buttons already chosen, the consumption is submitted right away and
// its result returned.
func (d *ConsumptionDesk) SelectPayer(ctx context.Context, aliasID int) (*service.BatchResult, error) {
	d.mu.Lock()
	if d.guard.Held() {
		d.mu.Unlock()
		return nil, apperrors.ErrLocked
	}
	account, err := pick(d.lookup, aliasID)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.payers.AddOrIncrement(account.ID, accountEntry(account))
	d.errors = nil
	trigger := d.mode == mode.Single && d.items.Len() > 0
	d.mu.Unlock()

	if !trigger {
		return nil, nil
	}
	result, err := d.Consume(ctx)
	return &result, err
}

// AddItem adds one unit of a catalog button. In single mode, with a payer
// already chosen, the consumption is submitted right away.
func (d *ConsumptionDesk) AddItem(ctx context.Context, templateID int) (*service.BatchResult, error) {
	item, err := d.deps.Catalog.Template(ctx, templateID)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.guard.Held() {
		d.mu.Unlock()
		return nil, apperrors.ErrLocked
	}
	d.items.AddOrIncrement(item.ID, func() cart.Entry[model.ItemTemplate] {
		return cart.Entry[model.ItemTemplate]{Label: item.Name, Payload: item}
	})
	d.errors = nil
	trigger := d.mode == mode.Single && d.payers.Len() > 0
	d.mu.Unlock()

	if !trigger {
		return nil, nil
	}
	result, err := d.Consume(ctx)
	return &result, err
}

// RemovePayer removes one unit of a payer.
func (d *ConsumptionDesk) RemovePayer(noteID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	d.payers.DecrementOrRemove(noteID)
	return nil
}

// RemoveItem removes one unit of a button.
func (d *ConsumptionDesk) RemoveItem(templateID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	d.items.DecrementOrRemove(templateID)
	return nil
}

// SetMode switches between single and double consumption. Going back to
// single mode keeps the chosen buttons only when no payer is selected yet.
func (d *ConsumptionDesk) SetMode(m mode.ConsumptionMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	if m == d.mode {
		return nil
	}
	if m == mode.Single && d.payers.Len() > 0 {
		d.items.Clear()
	}
	d.mode = m
	d.errors = nil
	return nil
}

// Consume submits every (payer, button) pair. It returns apperrors.ErrLocked
// while another submission is in flight and a *validation.Error when a cart
// is empty; in both cases no request is made. The carts are cleared once
// every pair settled.
func (d *ConsumptionDesk) Consume(ctx context.Context) (service.BatchResult, error) {
	d.mu.Lock()
	release, ok := d.guard.TryAcquire()
	if !ok {
		d.mu.Unlock()
		d.deps.Metrics.RecordDroppedSubmission("consumption")
		return service.BatchResult{}, apperrors.ErrLocked
	}
	defer release()

	if err := validation.ValidateConsumption(d.payers.Len(), d.items.Len()); err != nil {
		d.errors = fieldErrors(err)
		d.mu.Unlock()
		d.deps.Metrics.RecordValidationRejection("consumption")
		return service.BatchResult{}, err
	}
	reqs := d.pairs()
	d.mu.Unlock()

	d.logger.Debug("submitting consumption", zap.Int("pairs", len(reqs)))
	result := d.deps.Submit.SubmitBatch(ctx, reqs, d.feed)

	d.mu.Lock()
	d.payers.Clear()
	d.items.Clear()
	d.errors = nil
	d.lookup.Reset()
	d.mu.Unlock()
	d.refresh.Bump()

	return result, nil
}

// Reset empties both carts and the payer field.
func (d *ConsumptionDesk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	d.payers.Clear()
	d.items.Clear()
	d.errors = nil
	d.lookup.Reset()
	return nil
}

// View snapshots the desk.
func (d *ConsumptionDesk) View() ConsumptionView {
	d.mu.Lock()
	defer d.mu.Unlock()

	style := d.deps.styler().Account
	return ConsumptionView{
		Mode: d.mode,
		Payers: render.Chips("note", d.payers.Entries(), style, func(key int) string {
			return fmt.Sprintf("/api/consos/payers/%d", key)
		}),
		Items: render.Chips("conso_button", d.items.Entries(), nil, func(key int) string {
			return fmt.Sprintf("/api/consos/items/%d", key)
		}),
		Results: resultChips("alias", d.lookup.Results(), style, func(key int) string {
			return fmt.Sprintf("/api/consos/payers?alias=%d", key)
		}),
		Pattern:    d.lookup.Input(),
		Locked:     d.guard.Held(),
		Errors:     d.errors,
		Generation: d.refresh.Load(),
	}
}

// pairs builds the cross product, payers outer and buttons inner, both in
// selection order. Callers hold d.mu.
func (d *ConsumptionDesk) pairs() []model.SubmissionRequest {
	payers := d.payers.Entries()
	items := d.items.Entries()

	reqs := make([]model.SubmissionRequest, 0, len(payers)*len(items))
	for _, p := range payers {
		payer := p.Payload
		for _, i := range items {
			item := i.Payload
			reqs = append(reqs, model.SubmissionRequest{
				SourceAccountID:      payer.ID,
				SourceAlias:          payer.DisplayName,
				DestinationAccountID: item.DestinationAccountID,
				Quantity:             p.Quantity * i.Quantity,
				UnitAmountCents:      item.UnitPriceCents,
				ReasonText:           item.Reason(),
				TransactionKindTag:   item.TransactionTypeTag,
				PolymorphicCtype:     item.PolymorphicCtype,
				TemplateID:           item.ID,
				Valid:                true,
				Payer:                &payer,
			})
		}
	}
	return reqs
}
