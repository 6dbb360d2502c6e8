package service_test

import (
	"errors"
	"testing"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/testutil"
)

// TestMemberService_CurrentAccount tests resolution of the kiosk identity.
//
// WHY: Gift mode and friendships act as the configured user; resolving the
// wrong note would move somebody else's money.
func TestMemberService_CurrentAccount(t *testing.T) {
	t.Run("prefers the exact alias match", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithConsumers(
			testutil.NewAccount(4, "kiosk-bar").Consumer(),
			testutil.NewAccount(5, "kiosk").Consumer(),
		)
		svc := testutil.NewTestMemberService(t, client)

		me, err := svc.CurrentAccount(t.Context())
		if err != nil {
			t.Fatalf("CurrentAccount() returned unexpected error: %v", err)
		}
		if me.ID != 5 {
			t.Errorf("Expected note 5, got %d", me.ID)
		}
	})

	t.Run("returns ErrNoIdentity when nothing matches", func(t *testing.T) {
		svc := testutil.NewTestMemberService(t, testutil.NewMockNoteClient())

		_, err := svc.CurrentAccount(t.Context())
		if !errors.Is(err, apperrors.ErrNoIdentity) {
			t.Errorf("Expected ErrNoIdentity, got %v", err)
		}
	})

	t.Run("returns ErrNoIdentity without a configured username", func(t *testing.T) {
		cfg := testutil.TestConfig().NoteAPI
		cfg.Username = ""
		svc := service.NewMemberService(testutil.NewMockNoteClient(), cfg)

		_, err := svc.CurrentAccount(t.Context())
		if !errors.Is(err, apperrors.ErrNoIdentity) {
			t.Errorf("Expected ErrNoIdentity, got %v", err)
		}
	})
}

// TestMemberService_Aliases tests alias management.
func TestMemberService_Aliases(t *testing.T) {
	t.Run("creates and deletes an alias", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestMemberService(t, client)

		alias, err := svc.CreateAlias(t.Context(), "bobby", 2)
		if err != nil {
			t.Fatalf("CreateAlias() returned unexpected error: %v", err)
		}
		if alias.Note != 2 {
			t.Errorf("Expected alias on note 2, got %d", alias.Note)
		}

		if err := svc.DeleteAlias(t.Context(), alias.ID); err != nil {
			t.Fatalf("DeleteAlias() returned unexpected error: %v", err)
		}
		if len(client.Deleted) != 1 || client.Deleted[0] != alias.ID {
			t.Errorf("Expected alias %d deleted, got %v", alias.ID, client.Deleted)
		}
	})

	t.Run("returns API rejections unwrapped", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		client.Aliases = []noteapi.Alias{{ID: 1, Name: "bobby", Note: 2}}
		svc := testutil.NewTestMemberService(t, client)

		_, err := svc.CreateAlias(t.Context(), "Bobby", 3)
		apiErr, ok := noteapi.AsAPIError(err)
		if !ok {
			t.Fatalf("Expected an APIError, got %v", err)
		}
		if len(apiErr.Messages()) != 1 {
			t.Errorf("Expected 1 message, got %v", apiErr.Messages())
		}
		if errors.Is(err, apperrors.ErrFailedToCreateAlias) {
			t.Error("Expected rejection not to be wrapped")
		}
	})

	t.Run("wraps transport errors", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithError(errors.New("timeout"))
		svc := testutil.NewTestMemberService(t, client)

		err := svc.DeleteAlias(t.Context(), 1)
		if !errors.Is(err, apperrors.ErrFailedToDeleteAlias) {
			t.Errorf("Expected ErrFailedToDeleteAlias, got %v", err)
		}
	})
}

// TestMemberService_CreateTrust tests friendship creation.
//
// WHY: Friendships grant spending rights; trusting oneself is meaningless and
// must be refused before anything is written.
func TestMemberService_CreateTrust(t *testing.T) {
	t.Run("resolves the alias and trusts its note", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		client.Aliases = []noteapi.Alias{{ID: 20, Name: "bob", Note: 2}}
		svc := testutil.NewTestMemberService(t, client)

		trust, err := svc.CreateTrust(t.Context(), 1, "bob")
		if err != nil {
			t.Fatalf("CreateTrust() returned unexpected error: %v", err)
		}
		if trust.Trusting != 1 || trust.Trusted != 2 {
			t.Errorf("Expected 1 trusting 2, got %+v", trust)
		}
	})

	t.Run("defaults to the current account", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithConsumers(testutil.NewAccount(5, "kiosk").Consumer())
		client.Aliases = []noteapi.Alias{{ID: 20, Name: "bob", Note: 2}}
		svc := testutil.NewTestMemberService(t, client)

		trust, err := svc.CreateTrust(t.Context(), 0, "bob")
		if err != nil {
			t.Fatalf("CreateTrust() returned unexpected error: %v", err)
		}
		if trust.Trusting != 5 {
			t.Errorf("Expected the kiosk note trusting, got %+v", trust)
		}
	})

	t.Run("refuses to trust oneself", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		client.Aliases = []noteapi.Alias{{ID: 10, Name: "alice", Note: 1}}
		svc := testutil.NewTestMemberService(t, client)

		_, err := svc.CreateTrust(t.Context(), 1, "alice")
		if !errors.Is(err, apperrors.ErrSelfTrust) {
			t.Fatalf("Expected ErrSelfTrust, got %v", err)
		}
		if len(client.CreatedTrust) != 0 {
			t.Errorf("Expected no trust written, got %v", client.CreatedTrust)
		}
	})

	t.Run("returns ErrLookupResultNotFound for unknown aliases", func(t *testing.T) {
		svc := testutil.NewTestMemberService(t, testutil.NewMockNoteClient())

		_, err := svc.CreateTrust(t.Context(), 1, "nobody")
		if !errors.Is(err, apperrors.ErrLookupResultNotFound) {
			t.Errorf("Expected ErrLookupResultNotFound, got %v", err)
		}
	})
}

// TestValidityService_Toggle tests the validate/invalidate toggle.
func TestValidityService_Toggle(t *testing.T) {
	t.Run("sends the opposite of the current validity", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := service.NewValidityService(client)

		tx, err := svc.Toggle(t.Context(), 42, "Transaction", true, "mistake")
		if err != nil {
			t.Fatalf("Toggle() returned unexpected error: %v", err)
		}
		if tx.Valid {
			t.Error("Expected the transaction invalidated")
		}
		if len(client.Patches) != 1 || client.Patches[0].InvalidityReason != "mistake" {
			t.Errorf("Unexpected patches %+v", client.Patches)
		}
	})

	t.Run("wraps transport errors", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithError(errors.New("timeout"))
		svc := service.NewValidityService(client)

		_, err := svc.Toggle(t.Context(), 42, "Transaction", false, "")
		if !errors.Is(err, apperrors.ErrFailedToToggleValidity) {
			t.Errorf("Expected ErrFailedToToggleValidity, got %v", err)
		}
	})
}
