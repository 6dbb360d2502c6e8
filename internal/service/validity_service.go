package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

// ValidityService validates and invalidates past transactions.
type ValidityService struct {
	client noteapi.Client
	logger *logging.Logger
}

// NewValidityService creates a ValidityService.
func NewValidityService(client noteapi.Client) *ValidityService {
	return &ValidityService{
		client: client,
		logger: logging.L().Named("validity"),
	}
}

// Toggle flips the validity of transaction id, given its current state.
func (s *ValidityService) Toggle(ctx context.Context, id int, resourceType string, currentlyValid bool, invalidityReason string) (noteapi.Transaction, error) {
	tx, err := s.client.PatchTransaction(ctx, id, noteapi.ValidityPatch{
		ResourceType:     resourceType,
		Valid:            !currentlyValid,
		InvalidityReason: invalidityReason,
	})
	if err != nil {
		s.logger.Warn("validity toggle failed", zap.Int("transaction_id", id), zap.Error(err))
		return noteapi.Transaction{}, wrapUnlessRejected(apperrors.ErrFailedToToggleValidity, err)
	}

	s.logger.Info("validity toggled", zap.Int("transaction_id", id), zap.Bool("valid", tx.Valid))
	return tx, nil
}
