package testutil

import (
	"database/sql"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
)

// TestConfig returns a configuration suitable for tests: sequential
// submission, the production thresholds and two special accounts.
func TestConfig() *config.Config {
	return &config.Config{
		NoteAPI: config.NoteAPIConfig{
			BaseURL:                         "http://note.test",
			Username:                        "kiosk",
			UserID:                          5,
			TransferPolymorphicCtype:        12,
			SpecialTransferPolymorphicCtype: 14,
			RequestTimeout:                  time.Second,
			BreakerMaxFailures:              3,
			BreakerOpenTimeout:              time.Minute,
			SpecialAccounts: []config.SpecialAccount{
				{ID: 1, Label: "Espèces"},
				{ID: 2, Label: "Carte bancaire"},
			},
		},
		Submit: config.SubmitConfig{
			Timeout:          5 * time.Second,
			MaxInFlight:      1,
			InvalidityReason: "insufficient balance",
			DangerThreshold:  -5000,
			WarningThreshold: 0,
			AlertThreshold:   -1000,
			BannerTTL:        10 * time.Second,
			WarningBannerTTL: 30 * time.Second,
		},
		Session: config.SessionConfig{
			TTL: time.Hour,
		},
		Catalog: config.CatalogConfig{
			SyncSchedule: "@every 15m",
		},
	}
}

func NewTestSubmitService(t *testing.T, client *MockNoteClient) *service.SubmitService {
	t.Helper()

	return service.NewSubmitService(client, TestConfig().Submit, nil)
}

func NewTestCatalogService(t *testing.T, db *sql.DB, client *MockNoteClient) *service.CatalogService {
	t.Helper()

	catalogRepo := repository.NewCatalogRepository(db)
	return service.NewCatalogService(catalogRepo, client, nil)
}

func NewTestMemberService(t *testing.T, client *MockNoteClient) *service.MemberService {
	t.Helper()

	return service.NewMemberService(client, TestConfig().NoteAPI)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	catalog := NewTestCatalogService(t, db, NewMockNoteClient())
	return service.NewSystemService(db, catalog, nil, nil, TestConfig().NoteAPI.BaseURL)
}

// NewTestDeveloperService returns a DeveloperService over the test database.
// Its levels belong to a fresh no-op logger, so changing them leaves the
// global logger alone.
func NewTestDeveloperService(t *testing.T, db *sql.DB) *service.DeveloperService {
	t.Helper()

	return service.NewDeveloperService(repository.NewLogRepository(db), logging.NewNoOpLogger(), 30*24*time.Hour)
}

// Notice is one banner captured by a RecordingNotifier.
type Notice struct {
	Level banner.Level
	Text  string
	TTL   time.Duration
}

// RecordingNotifier captures banners for assertions.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements banner.Notifier.
func (r *RecordingNotifier) Notify(level banner.Level, text string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Text: text, TTL: ttl})
}

// Notices returns every captured banner.
func (r *RecordingNotifier) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns the number of banners of the given level.
func (r *RecordingNotifier) Count(level banner.Level) int {
	n := 0
	for _, notice := range r.Notices() {
		if notice.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether a banner of the given level contains text.
func (r *RecordingNotifier) Contains(level banner.Level, text string) bool {
	for _, notice := range r.Notices() {
		if notice.Level == level && strings.Contains(notice.Text, text) {
			return true
		}
	}
	return false
}

// MakeAlias generates a unique alias for testing.
//
// Example usage:
//
//	alias := testutil.MakeAlias("alice")
//	// Returns: "alice-1A2B3C"
func MakeAlias(base string) string {
	if base == "" {
		base = "alias"
	}
	return base + "-" + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
