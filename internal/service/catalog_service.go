package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
)

// CatalogService serves the consumption buttons from the local catalog and
// keeps it in sync with the note API.
type CatalogService struct {
	repo    *repository.CatalogRepository
	client  noteapi.Client
	metrics *metrics.Collector
	logger  *logging.Logger
	sf      singleflight.Group
	now     func() time.Time
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(repo *repository.CatalogRepository, client noteapi.Client, m *metrics.Collector) *CatalogService {
	return &CatalogService{
		repo:    repo,
		client:  client,
		metrics: m,
		logger:  logging.L().Named("catalog"),
		now:     time.Now,
	}
}

// Categories returns the displayed buttons grouped by category.
func (s *CatalogService) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveCatalog, err)
	}
	return categories, nil
}

// Template returns one button, hidden ones included.
func (s *CatalogService) Template(ctx context.Context, id int) (model.ItemTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

// LastSync returns the most recent synchronisation, if any.
func (s *CatalogService) LastSync(ctx context.Context) (*model.CatalogSync, error) {
	return s.repo.LastSync(ctx)
}

// Sync downloads every template and category and replaces the local catalog.
// Concurrent calls share a single download.
func (s *CatalogService) Sync(ctx context.Context) (model.CatalogSync, error) {
	v, err, _ := s.sf.Do("sync", func() (interface{}, error) {
		return s.sync(ctx)
	})
	record, _ := v.(model.CatalogSync)
	return record, err
}

func (s *CatalogService) sync(ctx context.Context) (model.CatalogSync, error) {
	record := model.CatalogSync{StartedAt: s.now()}

	err := s.download(ctx, &record)
	record.FinishedAt = s.now()
	if err != nil {
		record.Error = err.Error()
	}

	if recErr := s.repo.RecordSync(ctx, record); recErr != nil {
		s.logger.Warn("failed to record catalog sync", zap.Error(recErr))
	}

	if err != nil {
		s.metrics.RecordCatalogSync("error")
		s.logger.Error("catalog sync failed", zap.Error(err))
		return record, fmt.Errorf("%w: %w", apperrors.ErrFailedToSyncCatalog, err)
	}

	s.metrics.RecordCatalogSync("ok")
	s.logger.Info("catalog synced",
		zap.Int("templates", record.Templates),
		zap.Int("categories", record.Categories),
		zap.Duration("duration", record.FinishedAt.Sub(record.StartedAt)),
	)
	return record, nil
}

func (s *CatalogService) download(ctx context.Context, record *model.CatalogSync) error {
	rawCategories, err := s.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	rawTemplates, err := s.client.ListTemplates(ctx)
	if err != nil {
		return err
	}

	names := make(map[int]string, len(rawCategories))
	categories := make([]model.Category, 0, len(rawCategories))
	for _, c := range rawCategories {
		names[c.ID] = c.Name
		categories = append(categories, model.Category{ID: c.ID, Name: c.Name})
	}

	templates := make([]model.ItemTemplate, 0, len(rawTemplates))
	for _, t := range rawTemplates {
		templates = append(templates, t.ItemTemplate(names))
	}

	if err := s.repo.ReplaceAll(ctx, categories, templates, record.StartedAt); err != nil {
		return err
	}

	record.Templates = len(templates)
	record.Categories = len(categories)
	return nil
}
