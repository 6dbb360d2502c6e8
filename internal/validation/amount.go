package validation

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Messages shown next to the amount field.
const (
	MsgAmountRequired = "This field is required and must contain a decimal positive number."
	MsgAmountTooLarge = "The amount must stay under 21,474,836.47 €."
	MsgRequired       = "This field is required."
)

// MaxAmountCents is the largest amount the server stores (signed 32-bit cents).
const MaxAmountCents = math.MaxInt32

var maxAmount = decimal.NewFromInt(MaxAmountCents)

// ParseAmount converts a euro amount typed by a user into cents, rounding to
// the nearest cent. It returns the message to display when the input is not
// acceptable.
func ParseAmount(raw string) (int64, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, MsgAmountRequired, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || !value.IsPositive() {
		return 0, MsgAmountRequired, false
	}

	cents := value.Shift(2).Round(0)
	if cents.GreaterThan(maxAmount) {
		return 0, MsgAmountTooLarge, false
	}
	if !cents.IsPositive() {
		return 0, MsgAmountRequired, false
	}
	return cents.IntPart(), "", true
}
