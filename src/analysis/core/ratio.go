package core

// -----------------------------------------------------------------------------

// TurnoverRatio is traded notional divided by market cap. A non-positive cap
// yields 0 so the symbol can never pass a positive threshold.
func TurnoverRatio(volume, marketCap float64) float64 {
	if marketCap <= 0 {
		return 0
	}
	return volume / marketCap
}

// -----------------------------------------------------------------------------

// AboveThreshold is the qualifying test. Equality does not qualify.
func AboveThreshold(ratio, threshold float64) bool {
	return ratio > threshold
}
