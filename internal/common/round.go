package common

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept on every non-count number
// in the result document.
const Precision = 2

// Round rounds v to Precision places, half away from zero.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(Precision).Float64()
	return f
}

// RoundPtr rounds a nullable value, preserving nil.
func RoundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v)
	return &r
}
