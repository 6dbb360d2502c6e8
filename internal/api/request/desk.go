package request

import "github.com/ndewijer/note-kfet-kiosk/internal/model"

// SearchRequest is the body of a lookup keystroke.
type SearchRequest struct {
	Pattern string `json:"pattern"` // Pattern is the current value of the lookup field.
}

// SelectRequest picks one lookup result by the id of the alias it matched.
type SelectRequest struct {
	AliasID int `json:"aliasId"`
}

// ModeRequest switches a desk mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// TransferRequest is the transfer desk form.
type TransferRequest struct {
	Amount string `json:"amount"` // Amount is a positive decimal in euros, e.g. "12.50".
	Reason string `json:"reason"`

	// Credit and debit only.
	SpecialAccountID int    `json:"specialAccountId,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	Bank             string `json:"bank,omitempty"`
}

// Form maps the body to the desk form.
func (r TransferRequest) Form() model.TransferForm {
	return model.TransferForm{
		Amount:           r.Amount,
		Reason:           r.Reason,
		SpecialAccountID: r.SpecialAccountID,
		LastName:         r.LastName,
		FirstName:        r.FirstName,
		Bank:             r.Bank,
	}
}
