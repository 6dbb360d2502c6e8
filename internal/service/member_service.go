package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

// MemberService manages aliases and friendships, and resolves the account the
// kiosk acts as.
type MemberService struct {
	client   noteapi.Client
	username string
	logger   *logging.Logger
}

// NewMemberService creates a MemberService acting as the configured user.
func NewMemberService(client noteapi.Client, cfg config.NoteAPIConfig) *MemberService {
	return &MemberService{
		client:   client,
		username: cfg.Username,
		logger:   logging.L().Named("member"),
	}
}

// CurrentAccount resolves the configured username into its note. It is looked
// up on every call so the balance is current.
func (s *MemberService) CurrentAccount(ctx context.Context) (model.AccountSummary, error) {
	if s.username == "" {
		return model.AccountSummary{}, apperrors.ErrNoIdentity
	}

	consumers, err := s.client.SearchConsumers(ctx, s.username)
	if err != nil {
		return model.AccountSummary{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToLookup, err)
	}
	if len(consumers) == 0 {
		return model.AccountSummary{}, apperrors.ErrNoIdentity
	}

	for _, c := range consumers {
		if strings.EqualFold(c.Name, s.username) {
			return c.Summary(), nil
		}
	}
	return consumers[0].Summary(), nil
}

// CreateAlias attaches name to a note. API rejections are returned unwrapped
// so each message can be shown.
func (s *MemberService) CreateAlias(ctx context.Context, name string, noteID int) (noteapi.Alias, error) {
	alias, err := s.client.CreateAlias(ctx, name, noteID)
	if err != nil {
		return noteapi.Alias{}, wrapUnlessRejected(apperrors.ErrFailedToCreateAlias, err)
	}
	s.logger.Info("alias created", zap.String("alias", alias.Name), zap.Int("note", noteID))
	return alias, nil
}

// DeleteAlias removes an alias.
func (s *MemberService) DeleteAlias(ctx context.Context, id int) error {
	if err := s.client.DeleteAlias(ctx, id); err != nil {
		return wrapUnlessRejected(apperrors.ErrFailedToDeleteAlias, err)
	}
	s.logger.Info("alias deleted", zap.Int("alias_id", id))
	return nil
}

// CreateTrust makes trustingNoteID a friend of the note behind aliasName.
// A zero trustingNoteID means the kiosk's own note. Trusting oneself is
// refused before any write.
func (s *MemberService) CreateTrust(ctx context.Context, trustingNoteID int, aliasName string) (noteapi.Trust, error) {
	if trustingNoteID == 0 {
		me, err := s.CurrentAccount(ctx)
		if err != nil {
			return noteapi.Trust{}, err
		}
		trustingNoteID = me.ID
	}

	trusted, err := s.resolveAlias(ctx, aliasName)
	if err != nil {
		return noteapi.Trust{}, err
	}
	if trusted.Note == trustingNoteID {
		return noteapi.Trust{}, apperrors.ErrSelfTrust
	}

	trust, err := s.client.CreateTrust(ctx, trustingNoteID, trusted.Note)
	if err != nil {
		return noteapi.Trust{}, wrapUnlessRejected(apperrors.ErrFailedToCreateTrust, err)
	}
	s.logger.Info("friendship created", zap.Int("trusting", trustingNoteID), zap.Int("trusted", trusted.Note))
	return trust, nil
}

// DeleteTrust removes a friendship.
func (s *MemberService) DeleteTrust(ctx context.Context, id int) error {
	if err := s.client.DeleteTrust(ctx, id); err != nil {
		return wrapUnlessRejected(apperrors.ErrFailedToDeleteTrust, err)
	}
	s.logger.Info("friendship deleted", zap.Int("trust_id", id))
	return nil
}

// resolveAlias finds the alias named exactly name, activities included.
func (s *MemberService) resolveAlias(ctx context.Context, name string) (noteapi.Alias, error) {
	aliases, err := s.client.SearchAliases(ctx, name, noteapi.ScopeUserClubActivity)
	if err != nil {
		return noteapi.Alias{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToLookup, err)
	}
	for _, a := range aliases {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return noteapi.Alias{}, apperrors.ErrLookupResultNotFound
}

// wrapUnlessRejected keeps API rejections intact for the handlers and tags
// every other failure with sentinel.
func wrapUnlessRejected(sentinel, err error) error {
	var apiErr *noteapi.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
