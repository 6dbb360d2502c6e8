package model

import "time"

// VersionInfo contains version and dependency status information for the application.
type VersionInfo struct {
	AppVersion      string       `json:"app_version"`
	DbVersion       string       `json:"db_version"`
	NoteAPI         string       `json:"note_api"`
	CircuitState    string       `json:"circuit_state"`
	LastCatalogSync *CatalogSync `json:"last_catalog_sync,omitempty"`
	ActiveSessions  int          `json:"active_sessions"`
	CheckedAt       time.Time    `json:"checked_at"`
}
