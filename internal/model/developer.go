package model

import "time"

// LogLevel is the severity of a persisted log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ValidLogLevels lists the levels accepted by filters and the level setting.
var ValidLogLevels = map[LogLevel]bool{
	LogLevelDebug: true,
	LogLevelInfo:  true,
	LogLevelWarn:  true,
	LogLevelError: true,
}

// LogCategory is the component that wrote an entry, taken from the first
// segment of the logger name.
type LogCategory string

const (
	LogCategoryCatalog   LogCategory = "catalog"
	LogCategoryDesk      LogCategory = "desk"
	LogCategoryDeveloper LogCategory = "developer"
	LogCategoryHTTP      LogCategory = "http"
	LogCategoryMember    LogCategory = "member"
	LogCategoryNoteAPI   LogCategory = "noteapi"
	LogCategoryScheduler LogCategory = "scheduler"
	LogCategorySession   LogCategory = "session"
	LogCategorySubmit    LogCategory = "submit"
	LogCategoryValidity  LogCategory = "validity"
	LogCategorySystem    LogCategory = "system"
)

var ValidLogCategories = map[LogCategory]bool{
	LogCategoryCatalog:   true,
	LogCategoryDesk:      true,
	LogCategoryDeveloper: true,
	LogCategoryHTTP:      true,
	LogCategoryMember:    true,
	LogCategoryNoteAPI:   true,
	LogCategoryScheduler: true,
	LogCategorySession:   true,
	LogCategorySubmit:    true,
	LogCategoryValidity:  true,
	LogCategorySystem:    true,
}

// LogFilters narrows a log listing. Cursor is the opaque value returned as
// NextCursor by the previous page.
type LogFilters struct {
	Levels     []string
	Categories []string
	StartDate  *time.Time
	EndDate    *time.Time
	Source     string
	Message    string
	SortDir    string
	Cursor     string
	PerPage    int
}

type LogResponse struct {
	Logs       []Log  `json:"logs"`
	NextCursor string `json:"nextCursor"`
	HasMore    bool   `json:"hasMore"`
	Count      int    `json:"count"`
}

type Log struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Source    string    `json:"source"`
	RequestID string    `json:"requestId,omitempty"`
}

// LoggingConfig is the runtime logging setting.
type LoggingConfig struct {
	Level        string `json:"level"`
	PersistLevel string `json:"persistLevel"`
}
