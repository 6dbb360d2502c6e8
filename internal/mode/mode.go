// Package mode defines the desk modes and how they are read from a URL
// fragment.
package mode

import (
	"fmt"
	"strings"

	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
)

// TransferMode is the mode of the transfer desk.
type TransferMode string

const (
	Transfer TransferMode = "transfer"
	Gift     TransferMode = "gift"
	Credit   TransferMode = "credit"
	Debit    TransferMode = "debit"
)

// ConsumptionMode is the mode of the consumption desk.
type ConsumptionMode string

const (
	Single ConsumptionMode = "single"
	Double ConsumptionMode = "double"
)

// IsSpecial reports whether the mode moves money through a special note.
func (m TransferMode) IsSpecial() bool {
	return m == Credit || m == Debit
}

// NeedsSources reports whether the mode requires payers to be selected.
func (m TransferMode) NeedsSources() bool {
	return m != Credit && m != Gift
}

// NeedsDestinations reports whether the mode requires receivers to be selected.
func (m TransferMode) NeedsDestinations() bool {
	return m != Debit
}

// ParseTransfer parses a transfer mode name.
func ParseTransfer(s string) (TransferMode, error) {
	switch m := TransferMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Transfer, Gift, Credit, Debit:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidMode, s)
	}
}

// ParseConsumption parses a consumption mode name.
func ParseConsumption(s string) (ConsumptionMode, error) {
	switch m := ConsumptionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Single, Double:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidMode, s)
	}
}

// TransferFromFragment reads the initial transfer mode from a URL fragment
// such as "#credit". Empty or unknown fragments give the default mode.
func TransferFromFragment(fragment string) TransferMode {
	m, err := ParseTransfer(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Transfer
	}
	return m
}

// ConsumptionFromFragment reads the initial consumption mode from a URL
// fragment. Empty or unknown fragments give single consumption.
func ConsumptionFromFragment(fragment string) ConsumptionMode {
	m, err := ParseConsumption(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Single
	}
	return m
}
