package pitch

import (
	"errors"
	"fmt"

	"github.com/0xlemi/riyaz/internal/audio"
)

// Errors
var (
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidFrequency  = errors.New("frequency must be positive and finite")
	ErrInvalidParams     = errors.New("invalid estimator parameters")
	ErrUnknownMethod     = errors.New("unknown estimation method")
	ErrUnknownNote       = errors.New("unknown note name")
)

// Estimation methods accepted by NewEstimator
const (
	MethodYIN = "yin"
	MethodFFT = "fft"
)

// Estimate is the fundamental frequency found in one frame.
// The zero value is NoPitch.
type Estimate struct {
	Frequency  float64 // Hz, 0 when no pitch was found
	Confidence float64 // 0..1
}

// NoPitch is the estimate for silence or unpitched input
var NoPitch = Estimate{}

// Voiced reports whether the estimate carries a pitch
func (e Estimate) Voiced() bool {
	return e.Frequency > 0
}

// Estimator defines the interface for pitch estimation
type Estimator interface {
	// Estimate analyses one frame. Silence and out-of-band results are
	// NoPitch with a nil error.
	Estimate(frame audio.Frame) (Estimate, error)
}

// Params configures an estimator
type Params struct {
	MinFrequency float64 // Lowest plausible fundamental (Hz)
	MaxFrequency float64 // Highest plausible fundamental (Hz)
	Threshold    float64 // YIN absolute threshold on the normalised difference
	MinRMS       float64 // Frames quieter than this are treated as silence
}

// DefaultParams suits a single voice
var DefaultParams = Params{
	MinFrequency: 50,
	MaxFrequency: 2000,
	Threshold:    0.15,
	MinRMS:       0.005,
}

// Validate checks the parameters for consistency
func (p Params) Validate() error {
	if p.MinFrequency <= 0 || p.MaxFrequency <= p.MinFrequency {
		return fmt.Errorf("%w: frequency range [%g, %g]", ErrInvalidParams, p.MinFrequency, p.MaxFrequency)
	}
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %g not in (0, 1)", ErrInvalidParams, p.Threshold)
	}
	if p.MinRMS < 0 {
		return fmt.Errorf("%w: min rms %g is negative", ErrInvalidParams, p.MinRMS)
	}
	return nil
}

// NewEstimator builds the estimator named by method
func NewEstimator(method string, params Params) (Estimator, error) {
	switch method {
	case MethodYIN, "":
		return NewYinEstimator(params)
	case MethodFFT:
		return NewFFTEstimator(params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// gate reports whether a frame is too quiet to analyse
func gate(frame audio.Frame, minRMS float64) bool {
	rms, _ := audio.Level(frame)
	return rms < minRMS
}

// inBand applies the plausibility filter
func inBand(frequency float64, p Params) bool {
	return frequency >= p.MinFrequency && frequency <= p.MaxFrequency
}
