/**
 * @description
 * Money parsing and formatting. API payloads carry amounts as decimal strings;
 * internally every amount is an int64 count of paise. shopspring/decimal does
 * the exact base-10 arithmetic so "250.50" never turns into 250.49999.
 *
 * @dependencies
 * - errors: Standard Go library.
 * - github.com/shopspring/decimal: Exact decimal parsing and scaling.
 */

package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount covers non-numeric, non-positive, and sub-paise amounts.
// It is checked before any store access during settlement.
var ErrInvalidAmount = errors.New("amount must be a positive value with at most two decimal places")

var paiseFactor = decimal.NewFromInt(100)

// ParsePaise converts a decimal amount string ("250.50") into paise. Amounts
// must be strictly positive and have at most two fractional digits.
func ParsePaise(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	scaled := d.Mul(paiseFactor)
	if !scaled.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// ParseBalancePaise is ParsePaise but permits zero, for opening balances.
func ParseBalancePaise(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Sign() < 0 {
		return 0, ErrInvalidAmount
	}
	scaled := d.Mul(paiseFactor)
	if !scaled.IsInteger() || !scaled.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// FormatPaise renders paise as a two-decimal amount string for API responses.
func FormatPaise(paise int64) string {
	return decimal.NewFromInt(paise).Div(paiseFactor).StringFixed(2)
}
