package noteapi

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("note api unavailable")

// ResilientClient wraps a Client with a circuit breaker. Only transport
// failures and 5xx answers count against the breaker: a rejected transaction
// is a normal business outcome.
type ResilientClient struct {
	next    Client
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Collector
	logger  *logging.Logger
}

var _ Client = (*ResilientClient)(nil)

// NewResilientClient wraps next with a breaker configured from cfg.
func NewResilientClient(next Client, cfg config.NoteAPIConfig, m *metrics.Collector) *ResilientClient {
	logger := logging.L().Named("noteapi")
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	rc := &ResilientClient{
		next:    next,
		metrics: m,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        "note-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsRejection(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			rc.metrics.SetBreakerState(name, breakerGauge(to))
		},
	}
	rc.cb = gobreaker.NewCircuitBreaker(settings)
	rc.metrics.SetBreakerState(settings.Name, 0)

	return rc
}

// State reports the breaker state, for health checks.
func (rc *ResilientClient) State() string {
	return rc.cb.State().String()
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func execute[T any](rc *ResilientClient, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := rc.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rc.logger.Warn("circuit breaker open - request rejected", zap.String("operation", op))
			return zero, ErrUnavailable
		}
		if !IsRejection(err) {
			rc.logger.Error("note api call failed",
				zap.String("operation", op),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
		// fn may return a partial value alongside the error; callers only
		// look at the error in that case.
		return zero, err
	}
	return result.(T), nil
}

type none struct{}

func (rc *ResilientClient) SearchAliases(ctx context.Context, pattern, scope string) ([]Alias, error) {
	return execute(rc, "search_aliases", func() ([]Alias, error) {
		return rc.next.SearchAliases(ctx, pattern, scope)
	})
}

func (rc *ResilientClient) SearchConsumers(ctx context.Context, pattern string) ([]Consumer, error) {
	return execute(rc, "search_consumers", func() ([]Consumer, error) {
		return rc.next.SearchConsumers(ctx, pattern)
	})
}

func (rc *ResilientClient) GetNote(ctx context.Context, id int) (Note, error) {
	return execute(rc, "get_note", func() (Note, error) {
		return rc.next.GetNote(ctx, id)
	})
}

func (rc *ResilientClient) GetUser(ctx context.Context, id int) (User, error) {
	return execute(rc, "get_user", func() (User, error) {
		return rc.next.GetUser(ctx, id)
	})
}

func (rc *ResilientClient) GetAlias(ctx context.Context, id int) (Alias, error) {
	return execute(rc, "get_alias", func() (Alias, error) {
		return rc.next.GetAlias(ctx, id)
	})
}

func (rc *ResilientClient) CreateAlias(ctx context.Context, name string, noteID int) (Alias, error) {
	return execute(rc, "create_alias", func() (Alias, error) {
		return rc.next.CreateAlias(ctx, name, noteID)
	})
}

func (rc *ResilientClient) DeleteAlias(ctx context.Context, id int) error {
	_, err := execute(rc, "delete_alias", func() (none, error) {
		return none{}, rc.next.DeleteAlias(ctx, id)
	})
	return err
}

func (rc *ResilientClient) CreateTrust(ctx context.Context, trustingID, trustedID int) (Trust, error) {
	return execute(rc, "create_trust", func() (Trust, error) {
		return rc.next.CreateTrust(ctx, trustingID, trustedID)
	})
}

func (rc *ResilientClient) DeleteTrust(ctx context.Context, id int) error {
	_, err := execute(rc, "delete_trust", func() (none, error) {
		return none{}, rc.next.DeleteTrust(ctx, id)
	})
	return err
}

func (rc *ResilientClient) CreateTransaction(ctx context.Context, req model.SubmissionRequest) (Transaction, error) {
	return execute(rc, "create_transaction", func() (Transaction, error) {
		return rc.next.CreateTransaction(ctx, req)
	})
}

func (rc *ResilientClient) PatchTransaction(ctx context.Context, id int, patch ValidityPatch) (Transaction, error) {
	return execute(rc, "patch_transaction", func() (Transaction, error) {
		return rc.next.PatchTransaction(ctx, id, patch)
	})
}

func (rc *ResilientClient) ListTemplates(ctx context.Context) ([]Template, error) {
	return execute(rc, "list_templates", func() ([]Template, error) {
		return rc.next.ListTemplates(ctx)
	})
}

func (rc *ResilientClient) ListCategories(ctx context.Context) ([]Category, error) {
	return execute(rc, "list_categories", func() ([]Category, error) {
		return rc.next.ListCategories(ctx)
	})
}
