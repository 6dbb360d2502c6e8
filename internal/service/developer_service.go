package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
)

// LevelController reads and changes the logging levels at runtime.
// *logging.Logger implements it.
type LevelController interface {
	LoggingConfig() model.LoggingConfig
	SetLoggingConfig(level, persist string) error
}

// DeveloperService serves the operator tools: the persisted log and the
// runtime logging levels.
type DeveloperService struct {
	logRepo   *repository.LogRepository
	levels    LevelController
	retention time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewDeveloperService creates a new DeveloperService. A zero retention keeps
// entries forever.
func NewDeveloperService(
	logRepo *repository.LogRepository,
	levels LevelController,
	retention time.Duration,
) *DeveloperService {
	return &DeveloperService{
		logRepo:   logRepo,
		levels:    levels,
		retention: retention,
		logger:    logging.L().Named("developer"),
		now:       time.Now,
	}
}

// GetLogs returns one page of persisted entries.
func (s *DeveloperService) GetLogs(ctx context.Context, filters *model.LogFilters) (*model.LogResponse, error) {
	resp, err := s.logRepo.GetLogs(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveLogs, err)
	}
	return resp, nil
}

// GetLoggingConfig returns the current levels.
func (s *DeveloperService) GetLoggingConfig() model.LoggingConfig {
	return s.levels.LoggingConfig()
}

// SetLoggingConfig changes the levels and returns the new setting.
func (s *DeveloperService) SetLoggingConfig(level, persist string) (model.LoggingConfig, error) {
	if err := s.levels.SetLoggingConfig(level, persist); err != nil {
		return model.LoggingConfig{}, err
	}
	cfg := s.levels.LoggingConfig()
	s.logger.Info("logging levels changed", zap.String("level", cfg.Level), zap.String("persist_level", cfg.PersistLevel))
	return cfg, nil
}

// PruneLogs deletes entries older than the retention. It runs on the
// scheduler and never fails the job; errors are logged.
func (s *DeveloperService) PruneLogs(ctx context.Context) int64 {
	if s.retention <= 0 {
		return 0
	}
	n, err := s.logRepo.DeleteLogsBefore(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.Warn("log pruning failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Debug("pruned log entries", zap.Int64("deleted", n))
	}
	return n
}
