// Package money converts between decimal amounts at the API edge and integer cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("amount must be a decimal number")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrPrecision      = errors.New("amount must have at most two decimal places")
	ErrTooLarge       = errors.New("amount exceeds the maximum of 1000000000.00")
)

// MaxCents is the largest amount accepted at the edge. Multiplied by any
// allowed cart quantity it stays far inside int64.
const MaxCents int64 = 100_000_000_000

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// ParseCents parses "19.99" into 1999.
func ParseCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrPrecision
	}
	if cents.GreaterThan(maxCents) {
		return 0, ErrTooLarge
	}
	return cents.IntPart(), nil
}

// Format renders cents as a fixed two-decimal string.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
