package noteapi

import (
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// Page is the paginated envelope the note API wraps list responses in.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Membership is the subset of a membership record the kiosk cares about.
type Membership struct {
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
}

// Note is a polymorphic note as serialized by the API (NoteUser, NoteClub, NoteSpecial).
type Note struct {
	ID           int         `json:"id"`
	Name         string      `json:"name,omitempty"`
	Balance      *int64      `json:"balance"`
	IsActive     bool        `json:"is_active"`
	DisplayImage string      `json:"display_image,omitempty"`
	ResourceType string      `json:"resourcetype"`
	User         *int        `json:"user,omitempty"`
	Club         *int        `json:"club,omitempty"`
	SpecialType  string      `json:"special_type,omitempty"`
	Membership   *Membership `json:"membership,omitempty"`
}

// IsClubOrSpecial reports whether the note belongs to a club or is a special note.
func (n Note) IsClubOrSpecial() bool {
	return n.ResourceType == "NoteClub" || n.ResourceType == "NoteSpecial" || n.Club != nil
}

// Consumer is one result of the consumer search: an alias joined with its note.
type Consumer struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Note           Note   `json:"note"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// Summary converts the consumer into the immutable snapshot used by carts.
func (c Consumer) Summary() model.AccountSummary {
	summary := model.AccountSummary{
		ID:              c.Note.ID,
		AliasID:         c.ID,
		DisplayName:     c.Name,
		NoteName:        c.Note.Name,
		Balance:         c.Note.Balance,
		IsClubOrSpecial: c.Note.IsClubOrSpecial(),
		UserID:          c.Note.User,
		ClubID:          c.Note.Club,
		EmailConfirmed:  c.EmailConfirmed,
		ResourceType:    c.Note.ResourceType,
		DisplayImage:    c.Note.DisplayImage,
	}
	if c.Note.Membership != nil {
		if end, err := parseDate(c.Note.Membership.DateEnd); err == nil {
			summary.MembershipEnd = &end
		}
	}
	return summary
}

// Alias maps a name onto a note.
type Alias struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Note           int    `json:"note"`
}

// Trust is a friendship between two notes.
type Trust struct {
	ID       int `json:"id"`
	Trusting int `json:"trusting"`
	Trusted  int `json:"trusted"`
}

// User is the subset of a user record needed to fill special transaction forms.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Transaction is the server's view of a created or patched transaction.
type Transaction struct {
	ID               int    `json:"id"`
	Source           int    `json:"source"`
	Destination      int    `json:"destination"`
	Quantity         int    `json:"quantity"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
	Valid            bool   `json:"valid"`
	InvalidityReason string `json:"invalidity_reason,omitempty"`
	ResourceType     string `json:"resourcetype"`
}

// ValidityPatch toggles the validity of an existing transaction.
type ValidityPatch struct {
	ResourceType     string
	Valid            bool
	InvalidityReason string
}

// Template is a transaction template (a consumption button) as served by the API.
type Template struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Destination      int    `json:"destination"`
	Amount           int64  `json:"amount"`
	Category         int    `json:"category"`
	Display          bool   `json:"display"`
	Highlighted      bool   `json:"highlighted"`
	Description      string `json:"description"`
	PolymorphicCtype int    `json:"polymorphic_ctype"`
}

// Category is a template category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ItemTemplate joins a template with its category name.
func (t Template) ItemTemplate(categories map[int]string) model.ItemTemplate {
	return model.ItemTemplate{
		ID:                   t.ID,
		Name:                 t.Name,
		UnitPriceCents:       t.Amount,
		DestinationAccountID: t.Destination,
		TransactionTypeTag:   model.KindRecurrentTransaction,
		PolymorphicCtype:     t.PolymorphicCtype,
		CategoryID:           t.Category,
		CategoryName:         categories[t.Category],
		Display:              t.Display,
		Highlighted:          t.Highlighted,
	}
}

// parseDate accepts the API's date and datetime encodings.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	return t, err
}
