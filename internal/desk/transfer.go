package desk

import (
	"context"
	"fmt"
	"strings"
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

// Names are the holder names sent with a credit or debit.
type Names struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
}

// TransferView is the state of the transfer desk as the page renders it.
type TransferView struct {
	Mode            mode.TransferMode      `json:"mode"`
	Sources         []render.Chip          `json:"sources"`
	Destinations    []render.Chip          `json:"destinations"`
	SourceResults   []render.Chip          `json:"sourceResults"`
	DestResults     []render.Chip          `json:"destinationResults"`
	Names           Names                  `json:"names"`
	SpecialAccounts []model.SpecialAccount `json:"specialAccounts"`
	Locked          bool                   `json:"locked"`
	Errors          map[string]string      `json:"errors,omitempty"`
	Generation      uint64                 `json:"generation"`
}

// TransferDesk moves money between notes.
type TransferDesk struct {
	deps    Deps
	feed    *banner.Feed
	refresh *Generation
	logger  *logging.Logger

	// ctx bounds the background name lookups; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	fills  sync.WaitGroup

	mu          sync.Mutex
	mode        mode.TransferMode
	sources     *cart.Store[model.AccountSummary]
	dests       *cart.Store[model.AccountSummary]
	sourceField *lookup.Lookup
	destField   *lookup.Lookup
	names       Names
	fillSeq     uint64
	errors      map[string]string

	guard guard.Guard
}

// NewTransferDesk creates a desk in the given initial mode.
func NewTransferDesk(deps Deps, feed *banner.Feed, refresh *Generation, initial mode.TransferMode) *TransferDesk {
	if initial == "" {
		initial = mode.Transfer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TransferDesk{
		deps:        deps,
		feed:        feed,
		refresh:     refresh,
		logger:      logging.L().Named("desk.transfer"),
		ctx:         ctx,
		cancel:      cancel,
		mode:        initial,
		sources:     cart.New[model.AccountSummary](),
		dests:       cart.New[model.AccountSummary](),
		sourceField: lookup.New(deps.Client, deps.Metrics),
		destField:   lookup.New(deps.Client, deps.Metrics),
	}
}

// Close stops pending name lookups.
func (d *TransferDesk) Close() {
	d.cancel()
}

// Wait blocks until pending name lookups finished.
func (d *TransferDesk) Wait() {
	d.fills.Wait()
}

func (d *TransferDesk) field(f Field) (*lookup.Lookup, *cart.Store[model.AccountSummary], error) {
	switch f {
	case FieldSources:
		return d.sourceField, d.sources, nil
	case FieldDestinations:
		return d.destField, d.dests, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, f)
	}
}

// Search runs a keystroke of the source or destination field.
func (d *TransferDesk) Search(ctx context.Context, f Field, pattern string) (lookup.Result, error) {
	l, _, err := d.field(f)
	if err != nil {
		return lookup.Result{}, err
	}
	return l.Search(ctx, pattern)
}

// Select adds the chosen lookup result to the cart of field f. In credit and
// debit modes the user side keeps only its latest note and the holder names
// are filled in.
func (d *TransferDesk) Select(f Field, aliasID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	l, store, err := d.field(f)
	if err != nil {
		return err
	}
	account, err := pick(l, aliasID)
	if err != nil {
		return err
	}
	store.AddOrIncrement(account.ID, accountEntry(account))
	d.errors = nil
	d.enforceUniqueLocked()
	return nil
}

// Remove removes one unit of a note from the cart of field f.
func (d *TransferDesk) Remove(f Field, noteID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	_, store, err := d.field(f)
	if err != nil {
		return err
	}
	store.DecrementOrRemove(noteID)
	return nil
}

// SetMode switches the desk mode. Entering credit empties the sources and
// collapses the destinations to one note; entering debit does the opposite.
func (d *TransferDesk) SetMode(m mode.TransferMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	if m == d.mode {
		return nil
	}

	switch m {
	case mode.Credit:
		d.sources.Clear()
		d.sourceField.Reset()
	case mode.Debit:
		d.dests.Clear()
		d.destField.Reset()
	case mode.Gift:
		d.sources.Clear()
	}
	d.mode = m
	d.errors = nil
	d.enforceUniqueLocked()
	return nil
}

// SourceMe makes the kiosk's own note the only source.
func (d *TransferDesk) SourceMe(ctx context.Context) error {
	me, err := d.deps.Members.CurrentAccount(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	d.sources.Clear()
	d.sources.AddOrIncrement(me.ID, accountEntry(me))
	d.sourceField.Reset()
	d.errors = nil
	d.enforceUniqueLocked()
	return nil
}

// enforceUniqueLocked keeps a single counterparty in credit and debit modes
// and starts the holder name lookup for it. Callers hold d.mu.
func (d *TransferDesk) enforceUniqueLocked() {
	var store *cart.Store[model.AccountSummary]
	switch d.mode {
	case mode.Credit:
		store = d.dests
	case mode.Debit:
		store = d.sources
	default:
		return
	}

	store.KeepLast()
	entries := store.Entries()
	if len(entries) == 0 {
		return
	}
	d.fillSeq++
	d.fills.Add(1)
	go d.fillNames(d.fillSeq, entries[0].Payload)
}

// fillNames looks up the holder of account. Clubs sign with the note name.
// A lookup superseded by a newer selection is dropped.
func (d *TransferDesk) fillNames(seq uint64, account model.AccountSummary) {
	defer d.fills.Done()

	names, err := d.lookupNames(account)
	if err != nil {
		d.logger.Debug("holder name lookup failed", zap.Int("note", account.ID), zap.Error(err))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq == d.fillSeq {
		d.names = names
	}
}

func (d *TransferDesk) lookupNames(account model.AccountSummary) (Names, error) {
	if account.IsClubOrSpecial {
		name := account.NoteName
		if name == "" {
			name = account.DisplayName
		}
		return Names{LastName: name, FirstName: name}, nil
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.deps.Config.NoteAPI.RequestTimeout)
	defer cancel()

	userID := account.UserID
	if userID == nil {
		note, err := d.deps.Client.GetNote(ctx, account.ID)
		if err != nil {
			return Names{}, err
		}
		if note.Club != nil {
			return Names{LastName: note.Name, FirstName: note.Name}, nil
		}
		userID = note.User
	}
	if userID == nil {
		return Names{}, fmt.Errorf("note %d has no user", account.ID)
	}

	user, err := d.deps.Client.GetUser(ctx, *userID)
	if err != nil {
		return Names{}, err
	}
	return Names{LastName: user.LastName, FirstName: user.FirstName}, nil
}

// Submit validates the form and issues the transfers of the current mode:
// every (source, destination) pair in transfer mode, one transfer per
// destination from the kiosk's note in gift mode, a single special leg in
// credit and debit modes. It returns apperrors.ErrLocked while another
// submission is in flight and a *validation.Error when the form is invalid;
// in both cases no request is made.
func (d *TransferDesk) Submit(ctx context.Context, form model.TransferForm) (service.BatchResult, error) {
	d.mu.Lock()
	release, ok := d.guard.TryAcquire()
	if !ok {
		d.mu.Unlock()
		d.deps.Metrics.RecordDroppedSubmission("transfer")
		return service.BatchResult{}, apperrors.ErrLocked
	}
	defer release()

	m := d.mode
	amount, err := validation.ValidateTransfer(form, m, d.sources.Len(), d.dests.Len(), func(id int) bool {
		_, ok := d.deps.Config.NoteAPI.SpecialAccount(id)
		return ok
	})
	if err != nil {
		d.errors = fieldErrors(err)
		d.mu.Unlock()
		d.deps.Metrics.RecordValidationRejection("transfer")
		return service.BatchResult{}, err
	}
	sources := d.sources.Entries()
	dests := d.dests.Entries()
	names := d.names
	d.mu.Unlock()

	var result service.BatchResult
	switch m {
	case mode.Transfer:
		result = d.deps.Submit.SubmitBatch(ctx, d.transferPairs(sources, dests, amount, form.Reason), d.feed)
	case mode.Gift:
		me, err := d.deps.Members.CurrentAccount(ctx)
		if err != nil {
			return service.BatchResult{}, err
		}
		result = d.deps.Submit.SubmitBatch(ctx, d.giftPairs(me, dests, amount, form.Reason), d.feed)
	case mode.Credit, mode.Debit:
		leg := d.specialLeg(m, sources, dests, amount, form, names)
		result = service.BatchResult{Outcomes: []service.PairOutcome{d.deps.Submit.SubmitSpecial(ctx, leg, d.feed)}}
	}

	d.mu.Lock()
	d.sources.Clear()
	d.dests.Clear()
	d.sourceField.Reset()
	d.destField.Reset()
	d.names = Names{}
	d.fillSeq++
	d.errors = nil
	d.mu.Unlock()
	d.refresh.Bump()

	return result, nil
}

// transferPairs builds the cross product, sources outer and destinations
// inner, both in selection order.
func (d *TransferDesk) transferPairs(sources, dests []cart.Entry[model.AccountSummary], amount int64, reason string) []model.SubmissionRequest {
	reqs := make([]model.SubmissionRequest, 0, len(sources)*len(dests))
	for _, s := range sources {
		src := s.Payload
		for _, t := range dests {
			dst := t.Payload
			reqs = append(reqs, d.transfer(src, dst, s.Quantity*t.Quantity, amount, reason))
		}
	}
	return reqs
}

// giftPairs sends amount to every destination from the kiosk's note.
func (d *TransferDesk) giftPairs(me model.AccountSummary, dests []cart.Entry[model.AccountSummary], amount int64, reason string) []model.SubmissionRequest {
	reqs := make([]model.SubmissionRequest, 0, len(dests))
	for _, t := range dests {
		reqs = append(reqs, d.transfer(me, t.Payload, t.Quantity, amount, reason))
	}
	return reqs
}

func (d *TransferDesk) transfer(src, dst model.AccountSummary, quantity int, amount int64, reason string) model.SubmissionRequest {
	return model.SubmissionRequest{
		SourceAccountID:      src.ID,
		SourceAlias:          src.DisplayName,
		DestinationAccountID: dst.ID,
		DestinationAlias:     dst.DisplayName,
		Quantity:             quantity,
		UnitAmountCents:      amount,
		ReasonText:           reason,
		TransactionKindTag:   model.KindTransaction,
		PolymorphicCtype:     d.deps.Config.NoteAPI.TransferPolymorphicCtype,
		Valid:                true,
		Payer:                &src,
		Destination:          &dst,
	}
}

// specialLeg builds the credit or debit. Typed names win over the filled-in
// ones.
func (d *TransferDesk) specialLeg(m mode.TransferMode, sources, dests []cart.Entry[model.AccountSummary], amount int64, form model.TransferForm, names Names) model.SubmissionRequest {
	special, _ := d.deps.Config.NoteAPI.SpecialAccount(form.SpecialAccountID)

	leg := model.SubmissionRequest{
		Quantity:           1,
		UnitAmountCents:    amount,
		TransactionKindTag: model.KindSpecialTransaction,
		PolymorphicCtype:   d.deps.Config.NoteAPI.SpecialTransferPolymorphicCtype,
		Valid:              true,
		LastName:           firstNonEmpty(form.LastName, names.LastName),
		FirstName:          firstNonEmpty(form.FirstName, names.FirstName),
		Bank:               strings.TrimSpace(form.Bank),
	}

	var prefix string
	if m == mode.Credit {
		user := dests[0].Payload
		prefix = "Crédit "
		leg.SourceAccountID = special.ID
		leg.DestinationAccountID = user.ID
		leg.DestinationAlias = user.DisplayName
		leg.Destination = &user
	} else {
		user := sources[0].Payload
		prefix = "Retrait "
		leg.SourceAccountID = user.ID
		leg.SourceAlias = user.DisplayName
		leg.DestinationAccountID = special.ID
		leg.Payer = &user
	}

	leg.ReasonText = prefix + strings.ToLower(special.Label)
	if given := strings.TrimSpace(form.Reason); given != "" {
		leg.ReasonText += " (" + given + ")"
	}
	return leg
}

// Reset empties both carts, both fields and the holder names.
func (d *TransferDesk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.guard.Held() {
		return apperrors.ErrLocked
	}
	d.sources.Clear()
	d.dests.Clear()
	d.sourceField.Reset()
	d.destField.Reset()
	d.names = Names{}
	d.fillSeq++
	d.errors = nil
	return nil
}

// View snapshots the desk.
func (d *TransferDesk) View() TransferView {
	d.mu.Lock()
	defer d.mu.Unlock()

	style := d.deps.styler().Account
	remove := func(f Field) func(int) string {
		return func(key int) string { return fmt.Sprintf("/api/transfer/%s/%d", f, key) }
	}
	choose := func(f Field) func(int) string {
		return func(key int) string { return fmt.Sprintf("/api/transfer/%s?alias=%d", f, key) }
	}

	specials := make([]model.SpecialAccount, 0, len(d.deps.Config.NoteAPI.SpecialAccounts))
	for _, a := range d.deps.Config.NoteAPI.SpecialAccounts {
		specials = append(specials, model.SpecialAccount{ID: a.ID, Label: a.Label})
	}

	return TransferView{
		Mode:            d.mode,
		Sources:         render.Chips("source_note", d.sources.Entries(), style, remove(FieldSources)),
		Destinations:    render.Chips("dest_note", d.dests.Entries(), style, remove(FieldDestinations)),
		SourceResults:   resultChips("source_alias", d.sourceField.Results(), style, choose(FieldSources)),
		DestResults:     resultChips("dest_alias", d.destField.Results(), style, choose(FieldDestinations)),
		Names:           d.names,
		SpecialAccounts: specials,
		Locked:          d.guard.Held(),
		Errors:          d.errors,
		Generation:      d.refresh.Load(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
