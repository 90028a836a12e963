// Package tone plays exercise target notes so the singer can hear the pitch
// they are aiming for.
package tone

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// rampTime is the fade in and out applied to each note to avoid clicks
const rampTime = 10 * time.Millisecond

// Oscillator is an io.Reader of mono float32 little-endian PCM. It plays one
// sine note at a time and is silent in between.
type Oscillator struct {
	sampleRate float64
	ramp       int

	mu        sync.Mutex
	volume    float64
	frequency float64
	phase     float64 // cycles, in [0, 1)
	elapsed   int     // samples played of the current note
	remaining int     // samples left of the current note
}

// NewOscillator creates a silent oscillator
func NewOscillator(sampleRate int, volume float64) *Oscillator {
	return &Oscillator{
		sampleRate: float64(sampleRate),
		ramp:       max(1, int(rampTime.Seconds()*float64(sampleRate))),
		volume:     volume,
	}
}

// Note starts a note of the given frequency and length, replacing any note
// still sounding. A non-positive frequency or duration silences the
// oscillator.
func (o *Oscillator) Note(frequency float64, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if frequency <= 0 || d <= 0 {
		o.remaining = 0
		return
	}
	o.frequency = frequency
	o.elapsed = 0
	o.remaining = int(d.Seconds() * o.sampleRate)
}

// SetVolume sets the peak amplitude, 0..1
func (o *Oscillator) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = max(0, min(1, volume))
}

// Sounding reports whether a note is playing
func (o *Oscillator) Sounding() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining > 0
}

// Read fills p with whole samples and never fails
func (o *Oscillator) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(p) / 4
	step := o.frequency / o.sampleRate
	for i := 0; i < n; i++ {
		var sample float64
		if o.remaining > 0 {
			envelope := math.Min(1, math.Min(float64(o.elapsed)/float64(o.ramp), float64(o.remaining)/float64(o.ramp)))
			sample = o.volume * envelope * math.Sin(2*math.Pi*o.phase)

			o.phase += step
			o.phase -= math.Floor(o.phase)
			o.elapsed++
			o.remaining--
		}
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(float32(sample)))
	}
	return n * 4, nil
}
