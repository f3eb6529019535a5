package utils

import "math"

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ClampF64 restricts v to [lo, hi].
func ClampF64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Square is faster than math.Pow(n, 2).
func Square(n float64) float64 {
	return n * n
}

// IsOdd reports whether n is odd, including negative n.
func IsOdd(n int) bool {
	return n%2 != 0
}

// NearlyEqual compares two floats with an absolute tolerance; NaNs never compare equal.
func NearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
