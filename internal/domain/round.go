package domain

import "github.com/shopspring/decimal"

// Round3 rounds half away from zero to three decimals.
func Round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}

// Ratio returns num/den rounded to three decimals, or nil when den is zero.
func Ratio(num, den float64) *float64 {
	q := Quotient(num, den)
	if q == nil {
		return nil
	}
	return Float(Round3(*q))
}

// Quotient returns num/den, or nil when den is zero.
func Quotient(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return Float(num / den)
}
