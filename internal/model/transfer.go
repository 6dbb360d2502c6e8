package model

// TransferForm is the filled-in transfer desk form.
type TransferForm struct {
	// Amount is a positive decimal in euros, e.g. "12.50".
	Amount string
	Reason string

	// Credit and debit only.
	SpecialAccountID int
	LastName         string
	FirstName        string
	Bank             string
}
