package request

// CreateAliasRequest attaches a new alias to a note.
type CreateAliasRequest struct {
	Name   string `json:"name"`
	NoteID int    `json:"noteId"`
}

// CreateTrustRequest adds a friend by alias name.
type CreateTrustRequest struct {
	TrustingNoteID int    `json:"trustingNoteId"` // TrustingNoteID defaults to the kiosk's own note.
	Alias          string `json:"alias"`
}

// ToggleValidityRequest flips the validity of a transaction.
type ToggleValidityRequest struct {
	ResourceType     string `json:"resourceType"`
	Valid            bool   `json:"valid"` // Valid is the current state; the toggle sends its negation.
	InvalidityReason string `json:"invalidityReason,omitempty"`
}
