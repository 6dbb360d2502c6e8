// Package noteapi is a typed client for the note REST API.
package noteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/config"
	"github.com/ndewijer/note-kfet-kiosk/internal/metrics"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// Search scopes accepted by the alias endpoints.
const (
	ScopeUserClub         = "user|club"
	ScopeUserClubActivity = "user|club|activity"
)

const (
	maxBodySize = 1 << 20
	maxPages    = 50
)

// Client is the set of note API calls the kiosk performs.
// The interface allows the submitter and the desks to be tested against fakes.
type Client interface {
	SearchAliases(ctx context.Context, pattern, scope string) ([]Alias, error)
	SearchConsumers(ctx context.Context, pattern string) ([]Consumer, error)
	GetNote(ctx context.Context, id int) (Note, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetAlias(ctx context.Context, id int) (Alias, error)
	CreateAlias(ctx context.Context, name string, noteID int) (Alias, error)
	DeleteAlias(ctx context.Context, id int) error
	CreateTrust(ctx context.Context, trustingID, trustedID int) (Trust, error)
	DeleteTrust(ctx context.Context, id int) error
	CreateTransaction(ctx context.Context, req model.SubmissionRequest) (Transaction, error)
	PatchTransaction(ctx context.Context, id int, patch ValidityPatch) (Transaction, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// NoteClient talks to the note API over HTTP. Reads are plain GETs, writes are
// form-encoded and authenticated with the configured CSRF token and session
// cookie.
type NoteClient struct {
	baseURL       string
	csrfToken     string
	sessionCookie string
	httpClient    *http.Client
	metrics       *metrics.Collector
}

// Option customises a NoteClient.
type Option func(*NoteClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *NoteClient) {
		c.httpClient = hc
	}
}

// WithMetrics records request latency on the given collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *NoteClient) {
		c.metrics = m
	}
}

// NewClient creates a client for the API described by cfg. Every request is
// bounded by cfg.RequestTimeout.
func NewClient(cfg config.NoteAPIConfig, opts ...Option) *NoteClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &NoteClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		csrfToken:     cfg.CSRFToken,
		sessionCookie: cfg.SessionCookie,
		httpClient:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAliases queries aliases by prefix.
func (c *NoteClient) SearchAliases(ctx context.Context, pattern, scope string) ([]Alias, error) {
	if scope == "" {
		scope = ScopeUserClub
	}
	query := searchQuery(pattern, scope)

	var page Page[Alias]
	if err := c.get(ctx, "alias_search", "/api/note/alias/", query, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SearchConsumers queries aliases joined with their notes, which carries the
// balance and membership needed by the desks.
func (c *NoteClient) SearchConsumers(ctx context.Context, pattern string) ([]Consumer, error) {
	var page Page[Consumer]
	if err := c.get(ctx, "consumer_search", "/api/note/consumer/", searchQuery(pattern, ScopeUserClub), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GetNote fetches a note by id.
func (c *NoteClient) GetNote(ctx context.Context, id int) (Note, error) {
	var note Note
	query := url.Values{"format": {"json"}}
	err := c.get(ctx, "note_detail", fmt.Sprintf("/api/note/note/%d/", id), query, &note)
	return note, err
}

// GetUser fetches a user by id.
func (c *NoteClient) GetUser(ctx context.Context, id int) (User, error) {
	var user User
	err := c.get(ctx, "user_detail", fmt.Sprintf("/api/user/%d/", id), nil, &user)
	return user, err
}

// GetAlias fetches an alias by id.
func (c *NoteClient) GetAlias(ctx context.Context, id int) (Alias, error) {
	var alias Alias
	err := c.get(ctx, "alias_detail", fmt.Sprintf("/api/note/alias/%d/", id), nil, &alias)
	return alias, err
}

// CreateAlias attaches a new alias to a note.
func (c *NoteClient) CreateAlias(ctx context.Context, name string, noteID int) (Alias, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("note", strconv.Itoa(noteID))

	var alias Alias
	err := c.send(ctx, http.MethodPost, "alias_create", "/api/note/alias/", form, &alias)
	return alias, err
}

// DeleteAlias removes an alias.
func (c *NoteClient) DeleteAlias(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, "alias_delete", fmt.Sprintf("/api/note/alias/%d/", id), nil, nil)
}

// CreateTrust makes trusting a friend of trusted.
func (c *NoteClient) CreateTrust(ctx context.Context, trustingID, trustedID int) (Trust, error) {
	form := url.Values{}
	form.Set("trusting", strconv.Itoa(trustingID))
	form.Set("trusted", strconv.Itoa(trustedID))

	var trust Trust
	err := c.send(ctx, http.MethodPost, "trust_create", "/api/note/trust/", form, &trust)
	return trust, err
}

// DeleteTrust removes a friendship.
func (c *NoteClient) DeleteTrust(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, "trust_delete", fmt.Sprintf("/api/note/trust/%d/", id), nil, nil)
}

// CreateTransaction posts one transaction. A non-2xx answer is returned as an
// *APIError; anything else that goes wrong is a transport error.
func (c *NoteClient) CreateTransaction(ctx context.Context, req model.SubmissionRequest) (Transaction, error) {
	var tx Transaction
	err := c.send(ctx, http.MethodPost, "transaction_create", "/api/note/transaction/transaction/", transactionForm(req), &tx)
	return tx, err
}

// PatchTransaction toggles the validity of a transaction.
func (c *NoteClient) PatchTransaction(ctx context.Context, id int, patch ValidityPatch) (Transaction, error) {
	form := url.Values{}
	form.Set("resourcetype", patch.ResourceType)
	form.Set("valid", strconv.FormatBool(patch.Valid))
	if patch.InvalidityReason != "" {
		form.Set("invalidity_reason", patch.InvalidityReason)
	}

	var tx Transaction
	err := c.send(ctx, http.MethodPatch, "transaction_patch", fmt.Sprintf("/api/note/transaction/transaction/%d/", id), form, &tx)
	return tx, err
}

// ListTemplates returns every transaction template, following pagination.
func (c *NoteClient) ListTemplates(ctx context.Context) ([]Template, error) {
	return listAll[Template](ctx, c, "template_list", "/api/note/transaction/template/")
}

// ListCategories returns every template category, following pagination.
func (c *NoteClient) ListCategories(ctx context.Context) ([]Category, error) {
	return listAll[Category](ctx, c, "category_list", "/api/note/transaction/category/")
}

func listAll[T any](ctx context.Context, c *NoteClient, endpoint, path string) ([]T, error) {
	query := url.Values{"format": {"json"}}
	next := c.baseURL + path + "?" + query.Encode()

	var all []T
	for range maxPages {
		var page Page[T]
		if err := c.do(ctx, http.MethodGet, endpoint, next, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Next == nil || *page.Next == "" {
			return all, nil
		}
		next = *page.Next
	}
	return nil, fmt.Errorf("%s: more than %d pages", endpoint, maxPages)
}

func (c *NoteClient) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, target, nil, out)
}

func (c *NoteClient) send(ctx context.Context, method, endpoint, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	if method == http.MethodPost {
		form.Set("csrfmiddlewaretoken", c.csrfToken)
	}
	return c.do(ctx, method, endpoint, c.baseURL+path, form, out)
}

func (c *NoteClient) do(ctx context.Context, method, endpoint, target string, form url.Values, out any) error {
	var body io.Reader
	if form != nil && method != http.MethodDelete {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRFToken", c.csrfToken)
		req.Header.Set("Referer", c.baseURL+"/")
	}
	if c.csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.csrfToken})
	}
	if c.sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.sessionCookie})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall(endpoint, "error", time.Since(start))
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

func searchQuery(pattern, scope string) url.Values {
	return url.Values{
		"format":   {"json"},
		"alias":    {pattern},
		"search":   {scope},
		"ordering": {"normalized_name"},
	}
}

func transactionForm(req model.SubmissionRequest) url.Values {
	form := url.Values{}
	form.Set("quantity", strconv.Itoa(req.Quantity))
	form.Set("amount", strconv.FormatInt(req.UnitAmountCents, 10))
	form.Set("reason", req.ReasonText)
	form.Set("valid", strconv.FormatBool(req.Valid))
	if req.InvalidityReason != "" {
		form.Set("invalidity_reason", req.InvalidityReason)
	}
	form.Set("polymorphic_ctype", strconv.Itoa(req.PolymorphicCtype))
	form.Set("resourcetype", req.TransactionKindTag)
	form.Set("source", strconv.Itoa(req.SourceAccountID))
	if req.SourceAlias != "" {
		form.Set("source_alias", req.SourceAlias)
	}
	form.Set("destination", strconv.Itoa(req.DestinationAccountID))
	if req.DestinationAlias != "" {
		form.Set("destination_alias", req.DestinationAlias)
	}
	if req.TemplateID > 0 {
		form.Set("template", strconv.Itoa(req.TemplateID))
	}
	if req.TransactionKindTag == model.KindSpecialTransaction {
		form.Set("last_name", req.LastName)
		form.Set("first_name", req.FirstName)
		form.Set("bank", req.Bank)
	}
	return form
}
