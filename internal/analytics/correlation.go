package analytics

import "math"

// Correlate computes the Pearson product-moment correlation between two
// equal-length series. It never fails: mismatched lengths, fewer than two
// samples or zero variance in either series all return 0.
func Correlate(seriesA, seriesB []float64) float64 {
	n := len(seriesA)
	if n != len(seriesB) || n < 2 {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += seriesA[i]
		sumB += seriesB[i]
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var numerator, denomA, denomB float64
	for i := 0; i < n; i++ {
		da := seriesA[i] - meanA
		db := seriesB[i] - meanB
		numerator += da * db
		denomA += da * da
		denomB += db * db
	}

	// Zero variance means no linear association, not NaN
	if denomA == 0 || denomB == 0 {
		return 0
	}

	r := numerator / math.Sqrt(denomA*denomB)

	// Guard against float drift past the valid range
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
