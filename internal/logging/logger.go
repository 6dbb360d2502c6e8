// Package logging wraps zap with the kiosk's configuration conventions.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// Logger is a wrapper around zap.Logger. Children made with With and Named
// share the parent's levels and persistence.
type Logger struct {
	*zap.Logger

	level   zap.AtomicLevel
	persist zap.AtomicLevel
	writer  *writer
}

// NewLogger creates a new logger from the log section of the application config.
// Development mode switches to a console encoder with caller and stack traces.
func NewLogger(cfg config.LogConfig) (*Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Sampling = nil
		zapConfig.DisableCaller = true
	}

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zapConfig.Level = level
	if cfg.Format != "" {
		zapConfig.Encoding = cfg.Format
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:  logger,
		level:   level,
		persist: zap.NewAtomicLevelAt(offLevel),
	}, nil
}

// NewNoOpLogger creates a logger that discards all logs
func NewNoOpLogger() *Logger {
	return &Logger{
		Logger:  zap.NewNop(),
		level:   zap.NewAtomicLevel(),
		persist: zap.NewAtomicLevelAt(offLevel),
	}
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := *l
	child.Logger = l.Logger.With(fields...)
	return &child
}

// Named creates a child logger with a name
func (l *Logger) Named(name string) *Logger {
	child := *l
	child.Logger = l.Logger.Named(name)
	return &child
}

// LoggingConfig reports the current console and persistence levels.
func (l *Logger) LoggingConfig() model.LoggingConfig {
	return model.LoggingConfig{
		Level:        levelName(l.level.Level()),
		PersistLevel: levelName(l.persist.Level()),
	}
}

// SetLoggingConfig changes the levels at runtime. An empty persist level
// leaves persistence unchanged. Persistence can only be raised to a real
// level once Persist has attached a sink.
func (l *Logger) SetLoggingConfig(level, persist string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid level %q: %w", level, err)
	}
	var persistLvl zapcore.Level
	if persist != "" {
		if persistLvl, err = parsePersistLevel(persist); err != nil {
			return err
		}
		if persistLvl != offLevel && l.writer == nil {
			return errors.New("log persistence is not configured")
		}
	}

	l.level.SetLevel(lvl)
	if persist != "" {
		l.persist.SetLevel(persistLvl)
	}
	return nil
}

var global = NewNoOpLogger()

// SetGlobal sets the global logger instance
func SetGlobal(logger *Logger) {
	global = logger
}

// L returns the global logger instance
func L() *Logger {
	return global
}

// offLevel is above every real level, so nothing is enabled at it.
const offLevel = zapcore.InvalidLevel

func parsePersistLevel(level string) (zapcore.Level, error) {
	if strings.EqualFold(level, "off") {
		return offLevel, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return offLevel, fmt.Errorf("invalid persist level %q: %w", level, err)
	}
	return lvl, nil
}

func levelName(level zapcore.Level) string {
	if level >= offLevel {
		return "off"
	}
	return level.String()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
