package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
)

// MockNoteClient is an in-memory noteapi.Client for service and desk tests.
// Every call is recorded; transaction creation can be scripted per request.
type MockNoteClient struct {
	mu sync.Mutex

	Consumers  []noteapi.Consumer
	Aliases    []noteapi.Alias
	Notes      map[int]noteapi.Note
	Users      map[int]noteapi.User
	Templates  []noteapi.Template
	Categories []noteapi.Category

	// TransactionFunc decides the answer to each CreateTransaction call. The
	// default commits every request.
	TransactionFunc func(req model.SubmissionRequest) error

	// Err is returned by every call when set.
	Err error

	// Latency delays CreateTransaction. A context ending first fails the call
	// with its error, as the HTTP client does.
	Latency time.Duration

	Searches     []string
	Transactions []model.SubmissionRequest
	Patches      []noteapi.ValidityPatch
	CreatedTrust []noteapi.Trust
	Deleted      []int

	nextID int
}

// NewMockNoteClient creates a mock with no data.
func NewMockNoteClient() *MockNoteClient {
	return &MockNoteClient{
		Notes:  make(map[int]noteapi.Note),
		Users:  make(map[int]noteapi.User),
		nextID: 1000,
	}
}

// WithError makes every call fail with err.
func (m *MockNoteClient) WithError(err error) *MockNoteClient {
	m.Err = err
	return m
}

// WithLatency delays every transaction creation by d.
func (m *MockNoteClient) WithLatency(d time.Duration) *MockNoteClient {
	m.Latency = d
	return m
}

// WithConsumers sets the consumer search results.
func (m *MockNoteClient) WithConsumers(consumers ...noteapi.Consumer) *MockNoteClient {
	m.Consumers = consumers
	return m
}

// RejectValid rejects every valid transaction with a 400 and accepts the
// invalid fallback.
func (m *MockNoteClient) RejectValid() *MockNoteClient {
	m.TransactionFunc = func(req model.SubmissionRequest) error {
		if req.Valid {
			return Rejection("Solde insuffisant")
		}
		return nil
	}
	return m
}

// RejectAll rejects every transaction, invalid fallbacks included.
func (m *MockNoteClient) RejectAll() *MockNoteClient {
	m.TransactionFunc = func(model.SubmissionRequest) error {
		return Rejection("Solde insuffisant")
	}
	return m
}

// Rejection builds the error the client returns for a 400 answer.
func Rejection(detail string) error {
	return &noteapi.APIError{StatusCode: 400, Body: `{"detail":"` + detail + `"}`, Detail: detail}
}

// TransactionCount returns the number of CreateTransaction calls.
func (m *MockNoteClient) TransactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Transactions)
}

// RecordedTransactions returns a copy of every CreateTransaction request.
func (m *MockNoteClient) RecordedTransactions() []model.SubmissionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SubmissionRequest(nil), m.Transactions...)
}

func (m *MockNoteClient) id() int {
	m.nextID++
	return m.nextID
}

// SearchAliases filters the configured aliases by prefix.
func (m *MockNoteClient) SearchAliases(_ context.Context, pattern, _ string) ([]noteapi.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, pattern)
	if m.Err != nil {
		return nil, m.Err
	}
	var out []noteapi.Alias
	for _, a := range m.Aliases {
		if strings.HasPrefix(strings.ToLower(a.Name), strings.ToLower(pattern)) {
			out = append(out, a)
		}
	}
	return out, nil
}

// SearchConsumers filters the configured consumers by prefix.
func (m *MockNoteClient) SearchConsumers(_ context.Context, pattern string) ([]noteapi.Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, pattern)
	if m.Err != nil {
		return nil, m.Err
	}
	var out []noteapi.Consumer
	for _, c := range m.Consumers {
		if strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(pattern)) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetNote returns a configured note or a 404.
func (m *MockNoteClient) GetNote(_ context.Context, id int) (noteapi.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return noteapi.Note{}, m.Err
	}
	note, ok := m.Notes[id]
	if !ok {
		return noteapi.Note{}, &noteapi.APIError{StatusCode: 404, Detail: "Not found."}
	}
	return note, nil
}

// GetUser returns a configured user or a 404.
func (m *MockNoteClient) GetUser(_ context.Context, id int) (noteapi.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return noteapi.User{}, m.Err
	}
	user, ok := m.Users[id]
	if !ok {
		return noteapi.User{}, &noteapi.APIError{StatusCode: 404, Detail: "Not found."}
	}
	return user, nil
}

// GetAlias returns a configured alias or a 404.
func (m *MockNoteClient) GetAlias(_ context.Context, id int) (noteapi.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return noteapi.Alias{}, m.Err
	}
	for _, a := range m.Aliases {
		if a.ID == id {
			return a, nil
		}
	}
	return noteapi.Alias{}, &noteapi.APIError{StatusCode: 404, Detail: "Not found."}
}

// CreateAlias appends an alias, refusing duplicates the way the server does.
func (m *MockNoteClient) CreateAlias(_ context.Context, name string, noteID int) (noteapi.Alias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return noteapi.Alias{}, m.Err
	}
	for _, a := range m.Aliases {
		if strings.EqualFold(a.Name, name) {
			return noteapi.Alias{}, &noteapi.APIError{
				StatusCode:  400,
				FieldErrors: map[string][]string{"name": {"An alias with a similar name already exists."}},
			}
		}
	}
	alias := noteapi.Alias{ID: m.id(), Name: name, NormalizedName: strings.ToLower(name), Note: noteID}
	m.Aliases = append(m.Aliases, alias)
	return alias, nil
}

// DeleteAlias records the deletion.
func (m *MockNoteClient) DeleteAlias(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, id)
	return nil
}

// CreateTrust records the friendship.
func (m *MockNoteClient) CreateTrust(_ context.Context, trustingID, trustedID int) (noteapi.Trust, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return noteapi.Trust{}, m.Err
	}
	trust := noteapi.Trust{ID: m.id(), Trusting: trustingID, Trusted: trustedID}
	m.CreatedTrust = append(m.CreatedTrust, trust)
	return trust, nil
}

// DeleteTrust records the deletion.
func (m *MockNoteClient) DeleteTrust(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, id)
	return nil
}

// CreateTransaction records req and answers through TransactionFunc.
func (m *MockNoteClient) CreateTransaction(ctx context.Context, req model.SubmissionRequest) (noteapi.Transaction, error) {
	m.mu.Lock()
	m.Transactions = append(m.Transactions, req)
	fn, err, latency := m.TransactionFunc, m.Err, m.Latency
	id := m.id()
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return noteapi.Transaction{}, ctx.Err()
		case <-timer.C:
		}
	}

	if err != nil {
		return noteapi.Transaction{}, err
	}
	if fn != nil {
		if err := fn(req); err != nil {
			return noteapi.Transaction{}, err
		}
	}
	return noteapi.Transaction{
		ID:               id,
		Source:           req.SourceAccountID,
		Destination:      req.DestinationAccountID,
		Quantity:         req.Quantity,
		Amount:           req.UnitAmountCents,
		Reason:           req.ReasonText,
		Valid:            req.Valid,
		InvalidityReason: req.InvalidityReason,
		ResourceType:     req.TransactionKindTag,
	}, nil
}

// PatchTransaction records the patch and echoes it back.
func (m *MockNoteClient) PatchTransaction(_ context.Context, id int, patch noteapi.ValidityPatch) (noteapi.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Patches = append(m.Patches, patch)
	if m.Err != nil {
		return noteapi.Transaction{}, m.Err
	}
	return noteapi.Transaction{
		ID:               id,
		Valid:            patch.Valid,
		InvalidityReason: patch.InvalidityReason,
		ResourceType:     patch.ResourceType,
	}, nil
}

// ListTemplates returns the configured templates.
func (m *MockNoteClient) ListTemplates(context.Context) ([]noteapi.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]noteapi.Template(nil), m.Templates...), nil
}

// ListCategories returns the configured categories.
func (m *MockNoteClient) ListCategories(context.Context) ([]noteapi.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]noteapi.Category(nil), m.Categories...), nil
}
