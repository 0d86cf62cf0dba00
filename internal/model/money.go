package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponents maps each supported currency to its number of minor-unit
// decimal places. Both supported currencies use two (tiyin, cents).
var minorUnitExponents = map[Currency]int32{
	CurrencyUZS: 2,
	CurrencyUSD: 2,
}

// MajorUnits converts an amount in minor units to its decimal major-unit
// representation for display. 1550000 UZS minor units -> 15500.00.
func MajorUnits(amount int64, currency Currency) decimal.Decimal {
	exp, ok := minorUnitExponents[currency]
	if !ok {
		exp = 2
	}
	return decimal.New(amount, -exp)
}

// FormatAmount renders a minor-unit amount with its currency code,
// e.g. "15500.00 UZS".
func FormatAmount(amount int64, currency Currency) string {
	return fmt.Sprintf("%s %s", MajorUnits(amount, currency).StringFixed(minorUnitExponents[currency]), currency)
}

// AddBalance applies a signed delta to a balance, guarding against the
// balance ever going negative.
func AddBalance(balance, delta int64) (int64, error) {
	next := balance + delta
	if next < 0 {
		return balance, fmt.Errorf("balance cannot go negative: %d%+d", balance, delta)
	}
	return next, nil
}
