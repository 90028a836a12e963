package pitch

import "math"

// Score converts a cents deviation into an accuracy percentage.
// 0 cents scores 100; every 5 cents costs one point; 500 cents or more
// scores 0.
func Score(cents float64) float64 {
	if math.IsNaN(cents) {
		return 0
	}
	return math.Max(0, math.Min(100, 100-math.Abs(cents)/5))
}
