package summary

import (
	"math"
	"sort"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

// Quantile returns the p-quantile of sorted values by linear interpolation
// between order statistics (h = (n-1)p). values must be sorted ascending and
// non-empty.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if hi >= n {
		hi = n - 1
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// quantiles computes the reported percentiles, rounded. An empty input
// yields all-null quantiles.
func quantiles(values []float64) models.Quantiles {
	if len(values) == 0 {
		return models.Quantiles{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	at := func(p float64) *float64 {
		v := Quantile(sorted, p)
		return common.RoundPtr(&v)
	}
	return models.Quantiles{
		P10: at(0.10),
		P25: at(0.25),
		P50: at(0.50),
		P75: at(0.75),
		P90: at(0.90),
		P99: at(0.99),
	}
}
