package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/handlers"
	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/desk"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
	"github.com/ndewijer/note-kfet-kiosk/internal/testutil"
)

// kiosk is one terminal talking to the router, carrying its session cookie.
type kiosk struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newKiosk(t *testing.T, client *testutil.MockNoteClient) *kiosk {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.SeedCatalog(t, db,
		testutil.NewButton(7, "Coffee", 150).Build(),
		testutil.NewButton(8, "Tea", 100).Build(),
	)
	cfg := testutil.TestConfig()

	catalog := service.NewCatalogService(repository.NewCatalogRepository(db), client, nil)
	members := service.NewMemberService(client, cfg.NoteAPI)
	deps := desk.Deps{
		Client:  client,
		Submit:  service.NewSubmitService(client, cfg.Submit, nil),
		Catalog: catalog,
		Members: members,
		Config:  cfg,
	}
	sessions, err := session.NewRegistry(deps, cfg.Session, nil)
	if err != nil {
		t.Fatalf("NewRegistry() returned unexpected error: %v", err)
	}

	svc := Services{
		System:    service.NewSystemService(db, catalog, nil, sessions, cfg.NoteAPI.BaseURL),
		Catalog:   catalog,
		Members:   members,
		Validity:  service.NewValidityService(client),
		Developer: testutil.NewTestDeveloperService(t, db),
	}
	return &kiosk{t: t, handler: NewRouter(svc, sessions, nil, cfg)}
}

func (k *kiosk) do(method, path string, body any) *httptest.ResponseRecorder {
	k.t.Helper()

	req := testutil.NewJSONRequest(k.t, method, path, body)
	if k.cookie != nil {
		req.AddCookie(k.cookie)
	}
	w := httptest.NewRecorder()
	k.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			k.cookie = c
		}
	}
	return w
}

func (k *kiosk) expect(w *httptest.ResponseRecorder, status int) {
	k.t.Helper()
	if w.Code != status {
		k.t.Fatalf("Expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

// TestRouter_Consumption drives a single consumption through the API.
//
// WHY: The page only sees the API. Selecting a payer after a button must
// charge exactly once and leave empty carts for the next customer.
func TestRouter_Consumption(t *testing.T) {
	alice := testutil.NewAccount(1, "alice").WithBalance(1000)
	client := testutil.NewMockNoteClient().WithConsumers(alice.Consumer())
	k := newKiosk(t, client)

	k.expect(k.do(http.MethodPost, "/api/consos/items/7", nil), http.StatusOK)
	k.expect(k.do(http.MethodPost, "/api/consos/search", request.SearchRequest{Pattern: "ali"}), http.StatusOK)

	w := k.do(http.MethodPost, "/api/consos/payers?alias=10", nil)
	k.expect(w, http.StatusOK)

	var resp handlers.ConsumptionResponse
	testutil.DecodeJSON(t, w, &resp)
	if resp.Result == nil || len(resp.Result.Outcomes) != 1 {
		t.Fatalf("Expected one settled pair, got %+v", resp.Result)
	}
	if len(resp.Payers) != 0 || len(resp.Items) != 0 {
		t.Errorf("Expected carts cleared, got %+v", resp.ConsumptionView)
	}
	if client.TransactionCount() != 1 {
		t.Errorf("Expected 1 request, got %d", client.TransactionCount())
	}

	w = k.do(http.MethodGet, "/api/messages", nil)
	k.expect(w, http.StatusOK)
	var msgs handlers.MessagesResponse
	testutil.DecodeJSON(t, w, &msgs)
	if msgs.Generation != 1 {
		t.Errorf("Expected one refresh, got generation %d", msgs.Generation)
	}
	if len(msgs.Messages) != 0 {
		t.Errorf("Expected no banner for a plain sale, got %+v", msgs.Messages)
	}
}

// TestRouter_Validation tests the inline validation responses.
func TestRouter_Validation(t *testing.T) {
	k := newKiosk(t, testutil.NewMockNoteClient())

	t.Run("empty consumption carts", func(t *testing.T) {
		k.expect(k.do(http.MethodPut, "/api/consos/mode", request.ModeRequest{Mode: "double"}), http.StatusOK)
		k.expect(k.do(http.MethodPost, "/api/consos/consume", nil), http.StatusBadRequest)

		w := k.do(http.MethodGet, "/api/consos/fragments/payers", nil)
		k.expect(w, http.StatusOK)
		if !strings.Contains(w.Body.String(), "Add emitters.") {
			t.Errorf("Expected the empty cart notice, got %q", w.Body.String())
		}
	})

	t.Run("transfer form", func(t *testing.T) {
		w := k.do(http.MethodPost, "/api/transfer/submit", request.TransferRequest{Amount: "abc"})
		k.expect(w, http.StatusBadRequest)

		var body struct {
			Details map[string]string `json:"details"`
		}
		testutil.DecodeJSON(t, w, &body)
		for _, field := range []string{"amount", "reason", "sources", "destinations"} {
			if body.Details[field] == "" {
				t.Errorf("Expected a message for %s, got %v", field, body.Details)
			}
		}
	})

	t.Run("unknown mode and field", func(t *testing.T) {
		k.expect(k.do(http.MethodPut, "/api/transfer/mode", request.ModeRequest{Mode: "steal"}), http.StatusBadRequest)
		k.expect(k.do(http.MethodPost, "/api/transfer/payers/search", request.SearchRequest{Pattern: "a"}), http.StatusBadRequest)
	})

	t.Run("malformed ids", func(t *testing.T) {
		k.expect(k.do(http.MethodPost, "/api/consos/items/coffee", nil), http.StatusBadRequest)
		k.expect(k.do(http.MethodDelete, "/api/messages/not-a-uuid", nil), http.StatusBadRequest)
	})
}

// TestRouter_Sessions tests that terminals do not share carts.
func TestRouter_Sessions(t *testing.T) {
	k := newKiosk(t, testutil.NewMockNoteClient())

	k.expect(k.do(http.MethodPost, "/api/consos/items/7", nil), http.StatusOK)

	other := &kiosk{t: t, handler: k.handler}
	w := other.do(http.MethodGet, "/api/consos", nil)
	other.expect(w, http.StatusOK)

	var resp handlers.ConsumptionResponse
	testutil.DecodeJSON(t, w, &resp)
	if len(resp.Items) != 0 {
		t.Errorf("Expected an empty cart on another terminal, got %+v", resp.Items)
	}

	w = k.do(http.MethodGet, "/api/consos", nil)
	testutil.DecodeJSON(t, w, &resp)
	if len(resp.Items) != 1 {
		t.Errorf("Expected the first terminal to keep its button, got %+v", resp.Items)
	}
}

// TestRouter_Members tests alias and validity operations.
func TestRouter_Members(t *testing.T) {
	client := testutil.NewMockNoteClient()
	client.Aliases = []noteapi.Alias{{ID: 3, Name: "bob", Note: 2}}
	k := newKiosk(t, client)

	t.Run("duplicate alias becomes a banner", func(t *testing.T) {
		k.expect(k.do(http.MethodPost, "/api/aliases", request.CreateAliasRequest{Name: "Bob", NoteID: 2}), http.StatusUnprocessableEntity)

		w := k.do(http.MethodGet, "/api/messages", nil)
		var msgs handlers.MessagesResponse
		testutil.DecodeJSON(t, w, &msgs)
		if len(msgs.Messages) != 1 || msgs.Messages[0].Level != "danger" {
			t.Errorf("Expected one danger banner, got %+v", msgs.Messages)
		}

		id := msgs.Messages[0].ID.String()
		k.expect(k.do(http.MethodDelete, "/api/messages/"+id, nil), http.StatusNoContent)
		k.expect(k.do(http.MethodDelete, "/api/messages/"+id, nil), http.StatusNotFound)
	})

	t.Run("new alias", func(t *testing.T) {
		k.expect(k.do(http.MethodPost, "/api/aliases", request.CreateAliasRequest{Name: "bobby", NoteID: 2}), http.StatusCreated)
	})

	t.Run("validity toggle flags a refresh", func(t *testing.T) {
		w := k.do(http.MethodPatch, "/api/transactions/42/validity", request.ToggleValidityRequest{ResourceType: "Transaction", Valid: true})
		k.expect(w, http.StatusOK)

		var tx noteapi.Transaction
		testutil.DecodeJSON(t, w, &tx)
		if tx.Valid {
			t.Error("Expected the transaction invalidated")
		}

		w = k.do(http.MethodGet, "/api/messages", nil)
		var msgs handlers.MessagesResponse
		testutil.DecodeJSON(t, w, &msgs)
		if msgs.Generation != 1 {
			t.Errorf("Expected generation 1, got %d", msgs.Generation)
		}
	})
}

// TestRouter_System tests the unauthenticated system endpoints.
func TestRouter_System(t *testing.T) {
	k := newKiosk(t, testutil.NewMockNoteClient())

	k.expect(k.do(http.MethodGet, "/api/system/health", nil), http.StatusOK)
	k.expect(k.do(http.MethodGet, "/api/system/version", nil), http.StatusOK)
	k.expect(k.do(http.MethodGet, "/api/catalog/", nil), http.StatusOK)
	k.expect(k.do(http.MethodGet, "/api/catalog/buttons/404", nil), http.StatusNotFound)
	k.expect(k.do(http.MethodGet, "/api/developer/logs?level=error", nil), http.StatusOK)
	k.expect(k.do(http.MethodGet, "/api/developer/system-settings/logging", nil), http.StatusOK)

	if k.cookie != nil {
		t.Error("Expected no session for system endpoints")
	}
}
