package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/0xlemi/riyaz/internal/audio"
	"github.com/mjibson/go-dsp/fft"
)

// YinEstimator implements the YIN pitch estimator.
//
// The difference function is evaluated over the first half of the frame and
// its cross term is computed with an FFT, so a 2048-sample frame costs a few
// transforms rather than a million multiplies. The estimator holds no state
// between frames.
type YinEstimator struct {
	params Params
}

// NewYinEstimator creates a YIN estimator
func NewYinEstimator(params Params) (*YinEstimator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &YinEstimator{params: params}, nil
}

// Params returns the estimator configuration
func (y *YinEstimator) Params() Params {
	return y.params
}

// Estimate finds the fundamental frequency of a frame
func (y *YinEstimator) Estimate(frame audio.Frame) (Estimate, error) {
	if frame.SampleRate <= 0 {
		return NoPitch, fmt.Errorf("%w: %d", ErrInvalidSampleRate, frame.SampleRate)
	}

	n := len(frame.Samples)
	half := n / 2
	if half < 4 || gate(frame, y.params.MinRMS) {
		return NoPitch, nil
	}

	rate := float64(frame.SampleRate)

	// Lags start at 2 rather than at the ceiling frequency: a tone above the
	// band is found at its true period and then filtered out, instead of
	// being reported at twice its period.
	minTau := 2
	maxTau := min(int(math.Ceil(rate/y.params.MinFrequency))+1, half-1)
	if maxTau <= minTau {
		return NoPitch, nil
	}

	// One extra lag so the interpolation can look past maxTau.
	cmnd := cumulativeMeanNormalised(difference(audio.Float64s(frame.Samples), half, maxTau+2))

	tau := absoluteThreshold(cmnd, minTau, maxTau, y.params.Threshold)
	if tau < 0 {
		return NoPitch, nil
	}

	frequency := rate / parabolicInterpolation(cmnd, tau)
	if !inBand(frequency, y.params) {
		return NoPitch, nil
	}

	return Estimate{
		Frequency:  frequency,
		Confidence: math.Max(0, math.Min(1, 1-cmnd[tau])),
	}, nil
}

// difference computes d(τ) = Σ_{j<w} (x[j] - x[j+τ])² for τ in [0, lags).
//
// Expanding the square gives e(0) + e(τ) - 2·r(τ). The energies come from a
// prefix sum of squares and r(τ), the correlation of the first w samples
// against the whole frame, from one forward/inverse FFT pair. Requires
// w+lags-1 <= len(x).
func difference(x []float64, w, lags int) []float64 {
	size := 1
	for size < len(x)+w {
		size <<= 1
	}

	head := make([]float64, size)
	copy(head, x[:w])
	whole := make([]float64, size)
	copy(whole, x)

	a := fft.FFTReal(head)
	b := fft.FFTReal(whole)
	for i := range a {
		a[i] = cmplx.Conj(a[i]) * b[i]
	}
	corr := fft.IFFT(a)

	prefix := make([]float64, len(x)+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v*v
	}
	e0 := prefix[w]

	d := make([]float64, lags)
	for tau := 1; tau < lags; tau++ {
		et := prefix[tau+w] - prefix[tau]
		d[tau] = math.Max(0, e0+et-2*real(corr[tau]))
	}
	return d
}

// cumulativeMeanNormalised rescales d by its running mean; the result is 1 at
// τ = 0 and dips towards 0 at multiples of the period
func cumulativeMeanNormalised(d []float64) []float64 {
	out := make([]float64, len(d))
	out[0] = 1
	runningSum := 0.0
	for tau := 1; tau < len(d); tau++ {
		runningSum += d[tau]
		if runningSum == 0 {
			out[tau] = 1
			continue
		}
		out[tau] = d[tau] * float64(tau) / runningSum
	}
	return out
}

// absoluteThreshold returns the first lag below threshold, walked down to its
// local minimum, or -1
func absoluteThreshold(cmnd []float64, minTau, maxTau int, threshold float64) int {
	for tau := minTau; tau <= maxTau; tau++ {
		if cmnd[tau] >= threshold {
			continue
		}
		for tau+1 <= maxTau && cmnd[tau+1] < cmnd[tau] {
			tau++
		}
		return tau
	}
	return -1
}

// parabolicInterpolation refines tau using its two neighbours
func parabolicInterpolation(cmnd []float64, tau int) float64 {
	if tau < 1 || tau+1 >= len(cmnd) {
		return float64(tau)
	}

	s0, s1, s2 := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
	denominator := 2 * (2*s1 - s2 - s0)
	if denominator == 0 {
		return float64(tau)
	}

	shift := (s2 - s0) / denominator
	if math.Abs(shift) > 1 {
		return float64(tau)
	}
	return float64(tau) + shift
}
