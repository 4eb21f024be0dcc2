package shared

import "math"

// Cents converts an amount to minor currency units. Ledger invariants are
// checked at this precision: balances must match exactly at the cent, not
// within a floating point epsilon.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// SameAmount reports whether two amounts are equal at cent precision.
func SameAmount(a, b float64) bool {
	return Cents(a) == Cents(b)
}

// FromCents converts minor units back to a currency amount.
func FromCents(c int64) float64 {
	return float64(c) / 100
}
