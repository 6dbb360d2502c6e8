package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTemplateNotFound indicates that no button with the given ID is in the catalog.
	ErrTemplateNotFound = errors.New("button not found")

	// ErrLookupResultNotFound indicates that the selected result is not part of
	// the latest lookup results for the field.
	ErrLookupResultNotFound = errors.New("lookup result not found")

	// ErrUnknownField indicates that the lookup field does not exist on the desk.
	ErrUnknownField = errors.New("unknown lookup field")

	// ErrSpecialAccountNotFound indicates an unknown credit/debit counterparty.
	ErrSpecialAccountNotFound = errors.New("special account not found")

	// ErrSessionNotFound indicates the kiosk session expired or never existed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMessageNotFound indicates the banner was already dismissed or expired.
	ErrMessageNotFound = errors.New("message not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrLocked indicates that a submission is in flight and the desk refuses
	// mutations until it settles.
	ErrLocked = errors.New("a submission is already in progress")

	// ErrSelfTrust indicates an attempt to add oneself as a friend.
	ErrSelfTrust = errors.New("you can't add yourself as a friend")

	// ErrInvalidMode indicates an unknown desk mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidID indicates that a path identifier is not a positive integer.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrNoIdentity indicates that the kiosk has no configured current user.
	ErrNoIdentity = errors.New("no current user configured")

	// ErrInvalidCursor indicates a log page cursor that was not issued by the server.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToLookup          = errors.New("failed to search aliases")
	ErrFailedToRetrieveCatalog = errors.New("failed to retrieve button catalog")
	ErrFailedToSyncCatalog     = errors.New("failed to synchronise button catalog")
	ErrFailedToCreateAlias     = errors.New("failed to create alias")
	ErrFailedToDeleteAlias     = errors.New("failed to delete alias")
	ErrFailedToCreateTrust     = errors.New("failed to create friendship")
	ErrFailedToDeleteTrust     = errors.New("failed to delete friendship")
	ErrFailedToToggleValidity  = errors.New("failed to toggle transaction validity")
	ErrFailedToRetrieveLogs    = errors.New("failed to retrieve logs")
)
