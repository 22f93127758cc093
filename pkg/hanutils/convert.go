package hanutils

import "math"

// Round to the given number of decimals. Negative decimals leave v untouched.
func RoundToDecimals(v float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// Store measurements as integer thousandths
func ToMilli(v float64) int64 {
	return int64(math.Round(v * 1000))
}

func FromMilli(m int64) float64 {
	return float64(m) / 1000
}
