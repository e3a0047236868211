package scorer

import (
	"math"
	"sort"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sq := 0.0
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// coefficientOfVariation returns stddev/mean, or 0 when the mean is zero
func coefficientOfVariation(xs []float64) float64 {
	m := mean(xs)
	if m == 0 {
		return 0
	}
	return stddev(xs) / m
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// bimodalityCoefficient is Sarle's coefficient; values above 5/9 suggest a
// bimodal distribution. Needs at least 4 samples.
func bimodalityCoefficient(xs []float64) float64 {
	n := float64(len(xs))
	if n < 4 {
		return 0
	}
	m := mean(xs)
	var m2, m3, m4 float64
	for _, x := range xs {
		d := x - m
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}
	skew := m3 / math.Pow(m2, 1.5)
	excessKurtosis := m4/(m2*m2) - 3
	correction := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return (skew*skew + 1) / (excessKurtosis + correction)
}

// ramp maps x linearly onto 0..100 between lo and hi
func ramp(x, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return clamp((x-lo)/(hi-lo), 0, 1) * 100
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
