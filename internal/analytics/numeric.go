package analytics

import "math"

// Rate returns count/total as a percentage in [0,100]. A zero total yields 0.
func Rate(count, total float64) float64 {
	if total <= 0 || math.IsNaN(count) || math.IsNaN(total) {
		return 0
	}
	return Clamp(count/total*100, 0, 100)
}

// Average returns sum/n, or 0 for an empty set.
func Average(sum float64, n int64) float64 {
	if n <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0
	}
	return sum / float64(n)
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// Round4 is used for currency values that are too small for cents.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
