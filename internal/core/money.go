// Package core provides money parsing and summation utilities.
//
// Amounts travel as float64 through the data model, but every sum and
// percentage split goes through decimal arithmetic so totals do not pick up
// binary rounding noise.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Zero, negative and malformed values return
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// Sum accumulates amounts exactly. The zero value is an empty sum.
type Sum struct {
	total decimal.Decimal
}

// Add adds v to the running total.
func (s *Sum) Add(v float64) {
	s.total = s.total.Add(decimal.NewFromFloat(v))
}

// Merge adds another running total to s.
func (s *Sum) Merge(o Sum) {
	s.total = s.total.Add(o.total)
}

// Value returns the total as a float64.
func (s Sum) Value() float64 {
	return s.total.InexactFloat64()
}

// Percent returns base*a*b computed in decimal, e.g. Percent(5000, 0.5, 0.35).
func Percent(base float64, factors ...float64) float64 {
	d := decimal.NewFromFloat(base)
	for _, f := range factors {
		d = d.Mul(decimal.NewFromFloat(f))
	}
	return d.InexactFloat64()
}

// Subtract returns a-b computed in decimal.
func Subtract(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}
