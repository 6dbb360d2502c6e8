package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/render"
)

// PairState is the lifecycle of one submitted pair.
type PairState string

const (
	StatePending         PairState = "pending"
	StateCommitted       PairState = "committed"
	StateRecordedInvalid PairState = "recorded_invalid"
	StateFailed          PairState = "failed"
	StateSkipped         PairState = "skipped"
)

// Terminal reports whether the state is final.
func (s PairState) Terminal() bool {
	return s != StatePending
}

// PairOutcome is the settled result of one request.
type PairOutcome struct {
	Request       model.SubmissionRequest `json:"request"`
	State         PairState               `json:"state"`
	TransactionID int                     `json:"transactionId,omitempty"`
	Error         string                  `json:"error,omitempty"`
	// Attempts is the number of transaction-creation calls made for the pair.
	Attempts int `json:"attempts"`
}

// BatchResult holds one outcome per request, in request order.
type BatchResult struct {
	Outcomes []PairOutcome `json:"outcomes"`
}

// Count returns the number of outcomes in the given state.
func (b BatchResult) Count(state PairState) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// SubmitService turns settled carts into transaction-creation calls.
//
// Each pair is attempted once as a valid transaction. When the server rejects
// it, the same pair is recorded once more as invalid so the attempt is kept.
// Nothing is retried beyond that.
type SubmitService struct {
	client  noteapi.Client
	cfg     config.SubmitConfig
	metrics *metrics.Collector
	logger  *logging.Logger
	now     func() time.Time
}

// NewSubmitService creates a SubmitService.
func NewSubmitService(client noteapi.Client, cfg config.SubmitConfig, m *metrics.Collector) *SubmitService {
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	if cfg.InvalidityReason == "" {
		cfg.InvalidityReason = "insufficient balance"
	}
	return &SubmitService{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logging.L().Named("submit"),
		now:     time.Now,
	}
}

// SubmitBatch issues one request per element of reqs, in slice order, with at
// most MaxInFlight requests outstanding. It returns once every pair settled.
// Plain transfers whose source and destination are the same note are skipped
// with a warning and never reach the API.
//
// Cancelling ctx does not stop the batch: once issued, a pair runs to its
// outcome, bounded only by the submit timeout.
func (s *SubmitService) SubmitBatch(ctx context.Context, reqs []model.SubmissionRequest, n banner.Notifier) BatchResult {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	outcomes := make([]PairOutcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxInFlight)

	for i, req := range reqs {
		outcomes[i] = PairOutcome{Request: req, State: StatePending}

		if req.TransactionKindTag == model.KindTransaction && req.IsSelfTransfer() {
			outcomes[i].State = StateSkipped
			s.metrics.RecordTransaction(req.TransactionKindTag, string(StateSkipped))
			n.Notify(banner.Warning, fmt.Sprintf(
				"Warning: the transaction of %s from %s to %s was not made because it is the same source and destination note.",
				render.PrettyMoney(req.Total()), req.SourceAlias, req.DestinationAlias), s.cfg.BannerTTL)
			continue
		}

		g.Go(func() error {
			outcomes[i] = s.submitPair(ctx, req, n)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Outcomes: outcomes}
	s.logger.Info("batch settled",
		zap.Int("pairs", len(reqs)),
		zap.Int("committed", result.Count(StateCommitted)),
		zap.Int("recorded_invalid", result.Count(StateRecordedInvalid)),
		zap.Int("failed", result.Count(StateFailed)),
		zap.Int("skipped", result.Count(StateSkipped)),
	)
	return result
}

// detach drops the cancellation of ctx, keeping its values, and applies the
// submit timeout.
func (s *SubmitService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return ctx, func() {}
}

func (s *SubmitService) submitPair(ctx context.Context, req model.SubmissionRequest, n banner.Notifier) PairOutcome {
	out := PairOutcome{Request: req, State: StatePending, Attempts: 1}
	defer func() {
		s.metrics.RecordTransaction(req.TransactionKindTag, string(out.State))
	}()

	tx, err := s.client.CreateTransaction(ctx, req)
	if err == nil {
		out.State = StateCommitted
		out.TransactionID = tx.ID
		s.advise(req, out.State, n)
		return out
	}

	if _, rejected := noteapi.AsAPIError(err); !rejected {
		out.State = StateFailed
		out.Error = err.Error()
		s.logger.Warn("transaction failed without answer",
			zap.Int("source", req.SourceAccountID),
			zap.Int("destination", req.DestinationAccountID),
			zap.Error(err),
		)
		n.Notify(banner.Danger, s.failureText(req, err), 0)
		return out
	}

	s.logger.Debug("transaction rejected, recording it as invalid",
		zap.Int("source", req.SourceAccountID),
		zap.Int("destination", req.DestinationAccountID),
		zap.String("reason", noteapi.Describe(err)),
	)

	out.Attempts++
	tx, err = s.client.CreateTransaction(ctx, req.Invalid(s.cfg.InvalidityReason))
	if err != nil {
		out.State = StateFailed
		out.Error = noteapi.Describe(err)
		s.logger.Warn("invalid transaction could not be recorded",
			zap.Int("source", req.SourceAccountID),
			zap.Int("destination", req.DestinationAccountID),
			zap.Error(err),
		)
		n.Notify(banner.Danger, s.failureText(req, err), 0)
		return out
	}

	out.State = StateRecordedInvalid
	out.TransactionID = tx.ID
	s.advise(req, out.State, n)
	return out
}

// SubmitSpecial issues a single credit or debit. Special transactions are never
// recorded as invalid: a rejection is reported and the leg fails.
func (s *SubmitService) SubmitSpecial(ctx context.Context, req model.SubmissionRequest, n banner.Notifier) PairOutcome {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	out := PairOutcome{Request: req, State: StatePending, Attempts: 1}
	defer func() {
		s.metrics.RecordTransaction(req.TransactionKindTag, string(out.State))
	}()

	tx, err := s.client.CreateTransaction(ctx, req)
	if err != nil {
		out.State = StateFailed
		out.Error = noteapi.Describe(err)
		s.logger.Warn("credit/debit failed",
			zap.Int("source", req.SourceAccountID),
			zap.Int("destination", req.DestinationAccountID),
			zap.Error(err),
		)
		n.Notify(banner.Danger, "Credit/debit failed: "+noteapi.Describe(err), s.cfg.BannerTTL)
		return out
	}

	out.State = StateCommitted
	out.TransactionID = tx.ID
	n.Notify(banner.Success, "Credit/debit succeed!", s.cfg.BannerTTL)

	// The user side of the leg is the destination of a credit and the source
	// of a debit.
	for _, account := range []*model.AccountSummary{req.Destination, req.Payer} {
		if account != nil && s.expired(*account) {
			n.Notify(banner.Danger, fmt.Sprintf("Warning, the emitter note %s is no more a BDE member.", account.DisplayName), s.cfg.BannerTTL)
		}
	}
	return out
}

// advise emits the advisory banners of a settled pair: the projected balance
// of the payer and the membership of both sides. The projection is never
// authoritative.
func (s *SubmitService) advise(req model.SubmissionRequest, state PairState, n banner.Notifier) {
	transfer := req.TransactionKindTag == model.KindTransaction
	pair := s.pairText(req)

	if req.Payer != nil && s.expired(*req.Payer) {
		n.Notify(banner.Danger, fmt.Sprintf("Warning, the emitter note %s is no more a BDE member.", req.SourceAlias), s.cfg.WarningBannerTTL)
	}
	if transfer && req.Destination != nil && s.expired(*req.Destination) {
		n.Notify(banner.Danger, fmt.Sprintf("Warning, the destination note %s is no more a BDE member.", req.DestinationAlias), s.cfg.WarningBannerTTL)
	}

	warned := false
	if req.Payer != nil && req.Payer.Balance != nil {
		projected := *req.Payer.Balance - req.Total()
		switch {
		case projected <= s.cfg.DangerThreshold:
			n.Notify(banner.Danger, fmt.Sprintf("Warning, the transaction %s succeed, but the emitter note %s is very negative.",
				pair, req.SourceAlias), s.cfg.WarningBannerTTL)
			warned = true
		case projected < s.cfg.WarningThreshold:
			n.Notify(banner.Warning, fmt.Sprintf("Warning, the transaction %s succeed, but the emitter note %s is negative.",
				pair, req.SourceAlias), s.cfg.WarningBannerTTL)
			warned = true
		}
	}

	switch {
	case state == StateRecordedInvalid && transfer:
		n.Notify(banner.Danger, fmt.Sprintf("Transfer %s failed: insufficient funds", pair), s.cfg.BannerTTL)
	case state == StateRecordedInvalid:
		n.Notify(banner.Danger, "The transaction couldn't be validated because of insufficient balance.", s.cfg.BannerTTL)
	case transfer && !warned:
		n.Notify(banner.Success, fmt.Sprintf("Transfer %s succeed!", pair), s.cfg.BannerTTL)
	}
}

func (s *SubmitService) failureText(req model.SubmissionRequest, err error) string {
	if req.TransactionKindTag == model.KindTransaction {
		return fmt.Sprintf("Transfer %s failed: %s", s.pairText(req), noteapi.Describe(err))
	}
	return fmt.Sprintf("The transaction %s failed: %s", s.pairText(req), noteapi.Describe(err))
}

// pairText reads "of 3 € from alice to bob".
func (s *SubmitService) pairText(req model.SubmissionRequest) string {
	text := "of " + render.PrettyMoney(req.Total())
	if req.SourceAlias != "" {
		text += " from " + req.SourceAlias
	}
	if req.DestinationAlias != "" {
		text += " to " + req.DestinationAlias
	}
	return text
}

func (s *SubmitService) expired(a model.AccountSummary) bool {
	active := a.MembershipActiveAt(s.now())
	return active != nil && !*active
}
