package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// ValidateLoggingConfig validates a logging level change.
func ValidateLoggingConfig(req request.SetLoggingConfig) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Level) == "" {
		errors["level"] = MsgRequired
	} else if !model.ValidLogLevels[model.LogLevel(req.Level)] {
		errors["level"] = fmt.Sprintf("invalid level: %s", req.Level)
	}

	if req.PersistLevel != "" && req.PersistLevel != "off" &&
		!model.ValidLogLevels[model.LogLevel(req.PersistLevel)] {
		errors["persistLevel"] = fmt.Sprintf("invalid level: %s", req.PersistLevel)
	}

	return orNil(errors)
}
