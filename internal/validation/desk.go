package validation

import (
	"strings"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/mode"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

// Messages shown in an empty cart list on validation.
const (
	MsgAddEmitters     = "Add emitters."
	MsgAddConsumptions = "Add consumptions."
)

// ValidateConsumption checks that both carts of the consumption desk hold
// something.
func ValidateConsumption(payers, items int) error {
	errors := make(map[string]string)

	if payers == 0 {
		errors["payers"] = MsgAddEmitters
	}
	if items == 0 {
		errors["items"] = MsgAddConsumptions
	}

	return orNil(errors)
}

// ValidateTransfer checks the transfer form for the given mode and returns the
// amount in cents.
//
// Rules:
//   - amount: positive decimal, at most 21,474,836.47 €
//   - reason: required in transfer mode
//   - sources: required unless crediting or gifting
//   - destinations: required unless debiting
//   - specialAccountId: a known special note in credit and debit modes
func ValidateTransfer(form model.TransferForm, m mode.TransferMode, sources, dests int, knownSpecial func(int) bool) (int64, error) {
	errors := make(map[string]string)

	amount, msg, ok := ParseAmount(form.Amount)
	if !ok {
		errors["amount"] = msg
	}

	if m == mode.Transfer && strings.TrimSpace(form.Reason) == "" {
		errors["reason"] = MsgRequired
	}

	if m.NeedsSources() && sources == 0 {
		errors["sources"] = MsgAddEmitters
	}
	if m.NeedsDestinations() && dests == 0 {
		errors["destinations"] = MsgRequired
	}

	if m.IsSpecial() && (knownSpecial == nil || !knownSpecial(form.SpecialAccountID)) {
		errors["specialAccountId"] = MsgRequired
	}

	return amount, orNil(errors)
}

// ValidateCreateAlias validates an alias creation.
func ValidateCreateAlias(req request.CreateAliasRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = MsgRequired
	}
	if req.NoteID <= 0 {
		errors["noteId"] = MsgRequired
	}

	return orNil(errors)
}

// ValidateCreateTrust validates a friendship creation.
func ValidateCreateTrust(req request.CreateTrustRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Alias) == "" {
		errors["alias"] = MsgRequired
	}
	if req.TrustingNoteID < 0 {
		errors["trustingNoteId"] = "trustingNoteId must be positive"
	}

	return orNil(errors)
}

// ValidateToggleValidity validates a validity toggle.
func ValidateToggleValidity(req request.ToggleValidityRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.ResourceType) == "" {
		errors["resourceType"] = MsgRequired
	}

	return orNil(errors)
}
