// Package audio serves the private audio files and carries the small
// formatting helpers used by the player.
package audio

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss. Non-finite and non-positive input
// renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "0:00"
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// BandAverage averages data[start:end] after clamping both bounds to the
// slice. An empty range averages to 0.
func BandAverage(data []float64, start, end int) float64 {
	start = clamp(start, 0, len(data))
	end = clamp(end, start, len(data))
	if end == start {
		return 0
	}
	var sum float64
	for _, v := range data[start:end] {
		sum += v
	}
	return sum / float64(end-start)
}

// Bands splits data into n contiguous bands and averages each one.
func Bands(data []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if len(data) == 0 {
		return out
	}
	for i := range out {
		start := i * len(data) / n
		end := (i + 1) * len(data) / n
		if end <= start {
			end = start + 1
		}
		out[i] = BandAverage(data, start, end)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
