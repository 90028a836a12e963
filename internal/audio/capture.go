package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// Errors
var (
	ErrNotCapturing     = errors.New("audio capture not started")
	ErrAlreadyCapturing = errors.New("audio capture already started")
)

// Frame is one window of mono time-domain samples
type Frame struct {
	Samples    []float32
	SampleRate int
	Offset     time.Duration // stream position of the first sample, when known
}

// Duration returns the length of the frame in seconds
func (f Frame) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate)
}

// Source delivers frames to the pitch pipeline.
//
// Read blocks until the next frame is available or ctx is done. A source that
// runs out of audio (a file) returns io.EOF.
type Source interface {
	// Start acquires the underlying device or file
	Start() error

	// Stop releases whatever Start acquired
	Stop() error

	// Read returns the next frame
	Read(ctx context.Context) (Frame, error)
}

// Generator is a synthetic Source producing a sine tone with optional
// harmonics. It stands in for a microphone in tests and in --simulate mode.
type Generator struct {
	sampleRate int
	frameSize  int
	amplitude  float64
	harmonics  []Harmonic

	mu        sync.Mutex
	frequency float64
	phase     float64 // samples generated so far
	capturing bool
	pace      func(ctx context.Context, f Frame) error
}

// Harmonic is one partial of a generated tone
type Harmonic struct {
	Multiple  float64 // frequency multiple of the fundamental
	Amplitude float64 // relative amplitude
}

// NewGenerator creates a tone generator. A frequency of 0 produces silence.
func NewGenerator(sampleRate, frameSize int, frequency float64) *Generator {
	return &Generator{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		amplitude:  0.5, // leave headroom
		harmonics:  []Harmonic{{Multiple: 1, Amplitude: 1}},
		frequency:  frequency,
	}
}

// SetHarmonics replaces the partials of the generated tone
func (g *Generator) SetHarmonics(harmonics []Harmonic) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.harmonics = append([]Harmonic(nil), harmonics...)
}

// SetFrequency changes the fundamental for subsequent frames
func (g *Generator) SetFrequency(frequency float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frequency = frequency
}

// SetAmplitude sets the peak amplitude of the fundamental
func (g *Generator) SetAmplitude(amplitude float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amplitude = amplitude
}

// Pace installs a hook run before each frame is returned, typically a sleep
// that makes the generator deliver frames in real time.
func (g *Generator) Pace(pace func(ctx context.Context, f Frame) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pace = pace
}

// Start begins generating frames
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.capturing {
		return ErrAlreadyCapturing
	}
	g.capturing = true
	return nil
}

// Stop ends generation
func (g *Generator) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.capturing {
		return ErrNotCapturing
	}
	g.capturing = false
	return nil
}

// Read synthesises the next frame
func (g *Generator) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	g.mu.Lock()
	if !g.capturing {
		g.mu.Unlock()
		return Frame{}, ErrNotCapturing
	}
	frame := Frame{
		Samples:    make([]float32, g.frameSize),
		SampleRate: g.sampleRate,
		Offset:     time.Duration(g.phase / float64(g.sampleRate) * float64(time.Second)),
	}
	if g.frequency > 0 {
		for i := range frame.Samples {
			t := (g.phase + float64(i)) / float64(g.sampleRate)
			var sample float64
			for _, h := range g.harmonics {
				sample += h.Amplitude * math.Sin(2*math.Pi*g.frequency*h.Multiple*t)
			}
			frame.Samples[i] = float32(sample * g.amplitude)
		}
	}
	g.phase += float64(g.frameSize)
	pace := g.pace
	g.mu.Unlock()

	if pace != nil {
		if err := pace(ctx, frame); err != nil {
			return Frame{}, err
		}
	}
	return frame, nil
}
