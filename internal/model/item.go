package model

import "time"

// ItemTemplate is a consumption button: something that can be bought and the
// note the money goes to.
type ItemTemplate struct {
	ID                   int    `json:"id"`
	Name                 string `json:"name"`
	UnitPriceCents       int64  `json:"unitPriceCents"`
	DestinationAccountID int    `json:"destinationAccountId"`
	// TransactionTypeTag is the resourcetype the server expects, usually
	// RecurrentTransaction.
	TransactionTypeTag string    `json:"transactionTypeTag"`
	PolymorphicCtype   int       `json:"polymorphicCtype"`
	CategoryID         int       `json:"categoryId"`
	CategoryName       string    `json:"categoryName"`
	Display            bool      `json:"display"`
	Highlighted        bool      `json:"highlighted"`
	SyncedAt           time.Time `json:"syncedAt,omitempty"`
}

// Reason is the transaction reason recorded for a purchase of this item.
func (t ItemTemplate) Reason() string {
	return t.Name + " (" + t.CategoryName + ")"
}

// Category groups buttons for display.
type Category struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Buttons []ItemTemplate `json:"buttons"`
}

// CatalogSync records one synchronisation of the button catalog.
type CatalogSync struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Templates  int       `json:"templates"`
	Categories int       `json:"categories"`
	Error      string    `json:"error,omitempty"`
}
