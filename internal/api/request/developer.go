package request

// SetLoggingConfig is the request body for updating the logging levels.
type SetLoggingConfig struct {
	Level        string `json:"level"`        // Level is the console level. Must be one of: debug, info, warn, error.
	PersistLevel string `json:"persistLevel"` // PersistLevel is the lowest level written to the log table, or "off". Optional.
}
