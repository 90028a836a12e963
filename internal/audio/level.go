package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SilenceDB is reported for frames with no measurable energy
const SilenceDB = -100.0

// Level calculates the RMS and dBFS level of a frame
func Level(frame Frame) (rms, db float64) {
	if len(frame.Samples) == 0 {
		return 0, SilenceDB
	}

	samples := Float64s(frame.Samples)
	rms = math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))

	// Avoid log(0)
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = SilenceDB
	}

	return rms, db
}

// Peak returns the largest absolute sample value
func Peak(frame Frame) float64 {
	if len(frame.Samples) == 0 {
		return 0
	}
	samples := Float64s(frame.Samples)
	return math.Max(floats.Max(samples), -floats.Min(samples))
}

// Float64s widens samples for numeric routines
func Float64s(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
