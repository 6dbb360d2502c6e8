package model

// Transaction kind tags understood by the note API (resourcetype).
const (
	KindTransaction          = "Transaction"
	KindRecurrentTransaction = "RecurrentTransaction"
	KindTemplateTransaction  = "TemplateTransaction"
	KindSpecialTransaction   = "SpecialTransaction"
)

// SubmissionRequest is assembled at submit time for one (payer, item) pair or
// one credit/debit leg. It lives for the duration of one HTTP call.
type SubmissionRequest struct {
	SourceAccountID      int    `json:"sourceAccountId"`
	SourceAlias          string `json:"sourceAlias,omitempty"`
	DestinationAccountID int    `json:"destinationAccountId"`
	DestinationAlias     string `json:"destinationAlias,omitempty"`
	Quantity             int    `json:"quantity"`
	UnitAmountCents      int64  `json:"unitAmountCents"`
	ReasonText           string `json:"reason"`
	TransactionKindTag   string `json:"resourceType"`
	PolymorphicCtype     int    `json:"polymorphicCtype"`
	// TemplateID is set for button consumptions.
	TemplateID       int    `json:"templateId,omitempty"`
	Valid            bool   `json:"valid"`
	InvalidityReason string `json:"invalidityReason,omitempty"`

	// Special transactions only.
	LastName  string `json:"lastName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	Bank      string `json:"bank,omitempty"`

	// Payer and Destination carry the snapshots used for advisory banners.
	Payer       *AccountSummary `json:"-"`
	Destination *AccountSummary `json:"-"`
}

// Total is the amount moved by the request, in cents.
func (r SubmissionRequest) Total() int64 {
	return int64(r.Quantity) * r.UnitAmountCents
}

// IsSelfTransfer reports whether the source and destination are the same note.
func (r SubmissionRequest) IsSelfTransfer() bool {
	return r.SourceAccountID == r.DestinationAccountID
}

// Invalid returns a copy of the request marked invalid with the given reason.
func (r SubmissionRequest) Invalid(reason string) SubmissionRequest {
	r.Valid = false
	r.InvalidityReason = reason
	return r
}
