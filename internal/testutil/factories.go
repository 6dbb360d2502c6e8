package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/repository"
)

// =============================================================================
// ACCOUNT BUILDER
// =============================================================================

// AccountBuilder provides a fluent interface for building account snapshots.
//
// Example usage:
//
//	payer := testutil.NewAccount(1, "alice").WithBalance(1000).Build()
type AccountBuilder struct {
	account model.AccountSummary
}

// NewAccount creates an account with a confirmed e-mail and a zero balance.
func NewAccount(noteID int, alias string) *AccountBuilder {
	var zero int64
	return &AccountBuilder{
		account: model.AccountSummary{
			ID:             noteID,
			AliasID:        noteID * 10,
			DisplayName:    alias,
			NoteName:       alias,
			Balance:        &zero,
			EmailConfirmed: true,
			ResourceType:   "NoteUser",
		},
	}
}

// WithBalance sets the balance in cents.
func (b *AccountBuilder) WithBalance(cents int64) *AccountBuilder {
	b.account.Balance = &cents
	return b
}

// WithoutBalance hides the balance, as the API does for foreign notes.
func (b *AccountBuilder) WithoutBalance() *AccountBuilder {
	b.account.Balance = nil
	return b
}

// WithNoteName sets a note name distinct from the alias.
func (b *AccountBuilder) WithNoteName(name string) *AccountBuilder {
	b.account.NoteName = name
	return b
}

// WithMembershipEnd sets the membership end date.
func (b *AccountBuilder) WithMembershipEnd(end time.Time) *AccountBuilder {
	b.account.MembershipEnd = &end
	return b
}

// Expired sets a membership that ended yesterday.
func (b *AccountBuilder) Expired() *AccountBuilder {
	return b.WithMembershipEnd(time.Now().AddDate(0, 0, -1))
}

// Club marks the note as a club note.
func (b *AccountBuilder) Club() *AccountBuilder {
	b.account.IsClubOrSpecial = true
	b.account.ResourceType = "NoteClub"
	return b
}

// WithUser sets the owning user id.
func (b *AccountBuilder) WithUser(id int) *AccountBuilder {
	b.account.UserID = &id
	return b
}

// Unconfirmed marks the e-mail as unconfirmed.
func (b *AccountBuilder) Unconfirmed() *AccountBuilder {
	b.account.EmailConfirmed = false
	return b
}

// Build returns the snapshot.
func (b *AccountBuilder) Build() model.AccountSummary {
	return b.account
}

// Consumer returns the API shape of the account, as the consumer search
// would return it.
func (b *AccountBuilder) Consumer() noteapi.Consumer {
	a := b.account
	c := noteapi.Consumer{
		ID:             a.AliasID,
		Name:           a.DisplayName,
		NormalizedName: a.DisplayName,
		EmailConfirmed: a.EmailConfirmed,
		Note: noteapi.Note{
			ID:           a.ID,
			Name:         a.NoteName,
			Balance:      a.Balance,
			IsActive:     true,
			ResourceType: a.ResourceType,
			User:         a.UserID,
		},
	}
	if a.MembershipEnd != nil {
		c.Note.Membership = &noteapi.Membership{DateEnd: a.MembershipEnd.Format("2006-01-02")}
	}
	return c
}

// =============================================================================
// BUTTON BUILDER
// =============================================================================

// ButtonBuilder provides a fluent interface for building consumption buttons.
//
// Example usage:
//
//	coffee := testutil.NewButton(7, "Coffee", 150).Build()
type ButtonBuilder struct {
	button model.ItemTemplate
}

// NewButton creates a displayed button in category 1 paying note 100.
func NewButton(id int, name string, cents int64) *ButtonBuilder {
	return &ButtonBuilder{
		button: model.ItemTemplate{
			ID:                   id,
			Name:                 name,
			UnitPriceCents:       cents,
			DestinationAccountID: 100,
			TransactionTypeTag:   model.KindRecurrentTransaction,
			PolymorphicCtype:     12,
			CategoryID:           1,
			CategoryName:         "Drinks",
			Display:              true,
		},
	}
}

// WithCategory sets the category.
func (b *ButtonBuilder) WithCategory(id int, name string) *ButtonBuilder {
	b.button.CategoryID = id
	b.button.CategoryName = name
	return b
}

// WithDestination sets the note the money goes to.
func (b *ButtonBuilder) WithDestination(noteID int) *ButtonBuilder {
	b.button.DestinationAccountID = noteID
	return b
}

// Hidden hides the button from the catalog listing.
func (b *ButtonBuilder) Hidden() *ButtonBuilder {
	b.button.Display = false
	return b
}

// Highlighted highlights the button.
func (b *ButtonBuilder) Highlighted() *ButtonBuilder {
	b.button.Highlighted = true
	return b
}

// Build returns the button.
func (b *ButtonBuilder) Build() model.ItemTemplate {
	return b.button
}

// Template returns the API shape of the button.
func (b *ButtonBuilder) Template() noteapi.Template {
	t := b.button
	return noteapi.Template{
		ID:               t.ID,
		Name:             t.Name,
		Destination:      t.DestinationAccountID,
		Amount:           t.UnitPriceCents,
		Category:         t.CategoryID,
		Display:          t.Display,
		Highlighted:      t.Highlighted,
		PolymorphicCtype: t.PolymorphicCtype,
	}
}

// SeedCatalog stores the buttons and the categories they reference.
func SeedCatalog(t *testing.T, db *sql.DB, buttons ...model.ItemTemplate) {
	t.Helper()

	seen := make(map[int]bool)
	var categories []model.Category
	for _, b := range buttons {
		if !seen[b.CategoryID] {
			seen[b.CategoryID] = true
			categories = append(categories, model.Category{ID: b.CategoryID, Name: b.CategoryName})
		}
	}

	repo := repository.NewCatalogRepository(db)
	if err := repo.ReplaceAll(t.Context(), categories, buttons, time.Now()); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
}

// =============================================================================
// LOG BUILDER
// =============================================================================

// LogBuilder provides a fluent interface for building persisted log entries.
//
// Example usage:
//
//	entry := testutil.NewLog("submit", "rejected").WithLevel("error").Build()
type LogBuilder struct {
	entry model.Log
}

var logSeq atomic.Int64

// NewLog creates a warning logged by source at a fixed instant. Each builder
// gets a distinct id.
func NewLog(source, message string) *LogBuilder {
	n := logSeq.Add(1)
	category, _, _ := strings.Cut(source, ".")
	return &LogBuilder{entry: model.Log{
		ID:        fmt.Sprintf("log-%06d", n),
		Timestamp: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Level:     "warn",
		Category:  category,
		Message:   message,
		Source:    source,
	}}
}

func (b *LogBuilder) WithLevel(level string) *LogBuilder {
	b.entry.Level = level
	return b
}

func (b *LogBuilder) At(ts time.Time) *LogBuilder {
	b.entry.Timestamp = ts
	return b
}

func (b *LogBuilder) WithRequestID(id string) *LogBuilder {
	b.entry.RequestID = id
	return b
}

func (b *LogBuilder) Build() model.Log {
	return b.entry
}

// SeedLogs stores the entries in the log table.
func SeedLogs(t *testing.T, db *sql.DB, entries ...model.Log) {
	t.Helper()

	repo := repository.NewLogRepository(db)
	for _, e := range entries {
		if err := repo.InsertLog(t.Context(), e); err != nil {
			t.Fatalf("Failed to seed log: %v", err)
		}
	}
}
