package pitch

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/0xlemi/riyaz/internal/audio"
	"github.com/mjibson/go-dsp/fft"
)

// FFTEstimator estimates pitch from the strongest spectral peak.
//
// It is cheaper than YIN but picks up a loud second harmonic as the
// fundamental more often, so it is only used when configured explicitly.
type FFTEstimator struct {
	params        Params
	noiseFloor    float64 // Minimum in-band magnitude to consider
	peakThreshold float64 // Minimum peak height as fraction of highest peak
}

// NewFFTEstimator creates a new FFT-based pitch estimator
func NewFFTEstimator(params Params) (*FFTEstimator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &FFTEstimator{
		params:        params,
		noiseFloor:    0.01,
		peakThreshold: 0.2,
	}, nil
}

// Estimate analyses a frame and returns the detected fundamental
func (d *FFTEstimator) Estimate(frame audio.Frame) (Estimate, error) {
	if frame.SampleRate <= 0 {
		return NoPitch, fmt.Errorf("%w: %d", ErrInvalidSampleRate, frame.SampleRate)
	}
	if len(frame.Samples) < 8 {
		return NoPitch, nil
	}

	// Skip everything if the level is too low (likely silence)
	if gate(frame, d.params.MinRMS) {
		return NoPitch, nil
	}

	windowed := applyHannWindow(frame.Samples)
	spectrum := fft.FFTReal(windowed)

	peak, ok := d.findFundamental(spectrum, frame.SampleRate)
	if !ok || !inBand(peak.Frequency, d.params) {
		return NoPitch, nil
	}

	return Estimate{Frequency: peak.Frequency, Confidence: peak.Relative}, nil
}

// applyHannWindow returns a Hann-windowed copy of the samples
func applyHannWindow(samples []float32) []float64 {
	windowed := make([]float64, len(samples))
	for i, sample := range samples {
		coeff := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(samples)-1)))
		windowed[i] = float64(sample) * coeff
	}
	return windowed
}

// spectralPeak is a local maximum in the magnitude spectrum
type spectralPeak struct {
	Bin       int
	Magnitude float64
	Frequency float64
	Relative  float64 // Magnitude relative to the sum of all peaks
}

// findFundamental returns the strongest in-band peak, refined by quadratic
// interpolation
func (d *FFTEstimator) findFundamental(spectrum []complex128, sampleRate int) (spectralPeak, bool) {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	half := spectrum[:len(spectrum)/2]
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	minBin := max(int(d.params.MinFrequency/binSizeHz), 1) // Avoid DC component
	maxBin := min(int(math.Ceil(d.params.MaxFrequency/binSizeHz))+1, len(half)-2)
	if maxBin-minBin < 2 {
		return spectralPeak{}, false
	}

	magnitudes := make([]float64, len(half))
	maxMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		magnitudes[i] = cmplx.Abs(half[i])
		maxMagnitude = math.Max(maxMagnitude, magnitudes[i])
	}
	magnitudes[minBin-1] = cmplx.Abs(half[minBin-1])
	magnitudes[maxBin+1] = cmplx.Abs(half[maxBin+1])

	// Don't process further if signal is too weak
	if maxMagnitude < d.noiseFloor {
		return spectralPeak{}, false
	}

	var peaks []spectralPeak
	total := 0.0
	for i := minBin; i <= maxBin; i++ {
		prev, current, next := magnitudes[i-1], magnitudes[i], magnitudes[i+1]
		if current <= prev || current <= next || current <= maxMagnitude*d.peakThreshold {
			continue
		}

		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		freq := float64(i) * binSizeHz
		if denominator := prev - 2*current + next; denominator != 0 {
			freq = (float64(i) + 0.5*(prev-next)/denominator) * binSizeHz
		}
		peaks = append(peaks, spectralPeak{Bin: i, Magnitude: current, Frequency: freq})
		total += current
	}

	if len(peaks) == 0 {
		return spectralPeak{}, false
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	best := peaks[0]
	best.Relative = best.Magnitude / total
	return best, true
}
