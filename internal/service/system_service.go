package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/database"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/version"
)

// BreakerState reports the state of the note API circuit breaker.
type BreakerState interface {
	State() string
}

// SessionCounter reports the number of live kiosk sessions.
type SessionCounter interface {
	Len() int
}

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	catalog  *CatalogService
	breaker  BreakerState
	sessions SessionCounter
	baseURL  string
}

// NewSystemService creates a new SystemService. breaker and sessions may be nil.
func NewSystemService(db *sql.DB, catalog *CatalogService, breaker BreakerState, sessions SessionCounter, noteAPIURL string) *SystemService {
	return &SystemService{
		db:       db,
		catalog:  catalog,
		breaker:  breaker,
		sessions: sessions,
		baseURL:  noteAPIURL,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion gathers the application and schema versions and the state of
// the note API dependency.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	info := model.VersionInfo{
		AppVersion:   version.Version,
		DbVersion:    strconv.FormatInt(dbVersion, 10),
		NoteAPI:      s.baseURL,
		CircuitState: "unknown",
		CheckedAt:    time.Now().UTC(),
	}
	if s.breaker != nil {
		info.CircuitState = s.breaker.State()
	}
	if s.sessions != nil {
		info.ActiveSessions = s.sessions.Len()
	}
	if s.catalog != nil {
		last, err := s.catalog.LastSync(ctx)
		if err != nil {
			return model.VersionInfo{}, err
		}
		info.LastCatalogSync = last
	}
	return info, nil
}
