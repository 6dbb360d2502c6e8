// Package session keeps the per-terminal kiosk state in memory. A terminal is
// identified by a fernet-sealed cookie carrying its session id.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/desk"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/mode"
)

// CookieName is the name of the session cookie.
const CookieName = "kiosk_session"

// Session is the state of one kiosk terminal.
type Session struct {
	ID          uuid.UUID
	Feed        *banner.Feed
	Refresh     *desk.Generation
	Consumption *desk.ConsumptionDesk
	Transfer    *desk.TransferDesk
	CreatedAt   time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last request of the session.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds the live sessions.
type Registry struct {
	deps    desk.Deps
	ttl     time.Duration
	keys    []*fernet.Key
	metrics *metrics.Collector
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates a registry. An empty key generates a random one, so
// cookies do not survive a restart.
func NewRegistry(deps desk.Deps, cfg config.SessionConfig, m *metrics.Collector) (*Registry, error) {
	logger := logging.L().Named("session")

	var key fernet.Key
	if cfg.Key == "" {
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		logger.Warn("SESSION_KEY not set, using an ephemeral key")
	} else {
		decoded, err := fernet.DecodeKey(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_KEY: %w", err)
		}
		key = *decoded
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Registry{
		deps:     deps,
		ttl:      ttl,
		keys:     []*fernet.Key{&key},
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}, nil
}

// Create starts a session. The fragments give the initial desk modes, e.g.
// "#double" and "#credit".
func (r *Registry) Create(consumptionFragment, transferFragment string) *Session {
	now := r.now()
	feed := banner.NewFeed()
	refresh := &desk.Generation{}

	s := &Session{
		ID:          uuid.New(),
		Feed:        feed,
		Refresh:     refresh,
		Consumption: desk.NewConsumptionDesk(r.deps, feed, refresh, mode.ConsumptionFromFragment(consumptionFragment)),
		Transfer:    desk.NewTransferDesk(r.deps, feed, refresh, mode.TransferFromFragment(transferFragment)),
		CreatedAt:   now,
		lastSeen:    now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	r.logger.Debug("session created", zap.Stringer("session", s.ID))
	return s
}

// Get returns a live session and marks it as seen.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	now := r.now()
	if now.Sub(s.LastSeen()) > r.ttl {
		r.Delete(id)
		return nil, apperrors.ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete ends a session.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		s.Transfer.Close()
		r.metrics.SetActiveSessions(n)
	}
}

// Sweep ends every session idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(_ context.Context) int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Transfer.Close()
	}
	r.metrics.SetActiveSessions(n)
	if len(expired) > 0 {
		r.logger.Info("expired sessions swept", zap.Int("expired", len(expired)), zap.Int("active", n))
	}
	return len(expired)
}

// TTL is how long an idle session and its cookie live.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Seal turns a session id into a cookie value.
func (r *Registry) Seal(id uuid.UUID) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(id.String()), r.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to seal session: %w", err)
	}
	return string(token), nil
}

// Open recovers the session id of a cookie value. Tampered or expired
// cookies give apperrors.ErrSessionNotFound.
func (r *Registry) Open(token string) (uuid.UUID, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), r.ttl, r.keys)
	if msg == nil {
		return uuid.Nil, apperrors.ErrSessionNotFound
	}
	id, err := uuid.ParseBytes(msg)
	if err != nil {
		return uuid.Nil, apperrors.ErrSessionNotFound
	}
	return id, nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}
