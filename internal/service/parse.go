package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// present reports whether a raw field was supplied with a non-blank value.
func present(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*raw)
	return trimmed, trimmed != ""
}

// parsePrice accepts any non-negative decimal.
func parsePrice(raw *string) (decimal.Decimal, bool) {
	text, ok := present(raw)
	if !ok {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(text)
	if err != nil || price.IsNegative() {
		return decimal.Zero, false
	}
	return price, true
}

// parseCount reads an integer count, truncating fractions and clamping
// negatives to zero.
func parseCount(raw *string) (int, bool) {
	text, ok := present(raw)
	if !ok {
		return 0, false
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}
	if !value.IsPositive() {
		return 0, true
	}
	if value.GreaterThan(decimal.NewFromInt(maxCount)) {
		return maxCount, true
	}
	return int(value.IntPart()), true
}

const maxCount = 1<<31 - 1
