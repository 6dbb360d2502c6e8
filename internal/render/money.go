package render

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// PrettyMoney formats cents for humans: 1234 -> "12.34 €", -500 -> "- 5 €".
func PrettyMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "- "
	}
	amount := decimal.NewFromInt(cents).Abs().Shift(-2)
	if cents%100 == 0 {
		return sign + amount.StringFixed(0) + " €"
	}
	return sign + amount.StringFixed(2) + " €"
}

// Styler picks css classes from a note's balance.
type Styler struct {
	// Balances strictly below each threshold get the matching style.
	Danger  int64
	Alert   int64
	Warning int64
}

// Account returns the classes for an account chip or lookup result.
func (s Styler) Account(a model.AccountSummary) string {
	var classes []string
	if a.Balance != nil {
		switch b := *a.Balance; {
		case b < s.Danger:
			classes = append(classes, "text-danger", "bg-dark")
		case b < s.Alert:
			classes = append(classes, "text-danger")
		case b < s.Warning:
			classes = append(classes, "text-warning")
		}
	}
	if !a.EmailConfirmed {
		classes = append(classes, "text-white", "bg-primary")
	}
	return strings.Join(classes, " ")
}

// Describe renders the alias with the note name and the balance when known.
func Describe(a model.AccountSummary) string {
	if a.Balance == nil {
		return a.Label()
	}
	return a.Label() + " :\n" + PrettyMoney(*a.Balance)
}
