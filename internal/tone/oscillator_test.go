package tone

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func readSamples(t *testing.T, o *Oscillator, n int) []float64 {
	t.Helper()
	buf := make([]byte, 4*n)
	got, err := o.Read(buf)
	if err != nil || got != len(buf) {
		t.Fatalf("Read = %d, %v; want %d, nil", got, err, len(buf))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
	}
	return out
}

func TestOscillator_SilentByDefault(t *testing.T) {
	t.Parallel()

	o := NewOscillator(8000, 0.5)
	for i, s := range readSamples(t, o, 256) {
		if s != 0 {
			t.Fatalf("sample %d = %v, want silence", i, s)
		}
	}
}

func TestOscillator_Note(t *testing.T) {
	t.Parallel()

	const sampleRate = 8000
	o := NewOscillator(sampleRate, 0.5)
	o.Note(200, 500*time.Millisecond)
	if !o.Sounding() {
		t.Fatal("Sounding = false after Note")
	}

	samples := readSamples(t, o, sampleRate) // one second
	note := samples[:sampleRate/2]

	// 200 Hz for half a second rises through zero 100 times
	crossings := 0
	for i := 1; i < len(note); i++ {
		if note[i-1] <= 0 && note[i] > 0 {
			crossings++
		}
	}
	if crossings < 99 || crossings > 101 {
		t.Errorf("upward zero crossings = %d, want about 100", crossings)
	}

	peak := 0.0
	for _, s := range note {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak > 0.5+1e-6 || peak < 0.45 {
		t.Errorf("peak = %v, want close to the 0.5 volume", peak)
	}

	// Fade in from silence
	if math.Abs(note[0]) > 1e-9 || math.Abs(note[1]) > 0.01 {
		t.Errorf("note starts at %v, %v; want a ramp from 0", note[0], note[1])
	}

	for i, s := range samples[sampleRate/2:] {
		if s != 0 {
			t.Fatalf("sample %d after the note = %v, want silence", i, s)
		}
	}
	if o.Sounding() {
		t.Error("Sounding = true after the note ended")
	}
}

func TestOscillator_SilenceAndVolume(t *testing.T) {
	t.Parallel()

	o := NewOscillator(8000, 0.5)
	o.Note(440, time.Second)
	o.Note(0, time.Second)
	if o.Sounding() {
		t.Error("zero frequency did not silence the oscillator")
	}

	o.SetVolume(7)
	o.Note(440, time.Second)
	peak := 0.0
	for _, s := range readSamples(t, o, 4000) {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak > 1+1e-6 {
		t.Errorf("peak = %v with clamped volume, want <= 1", peak)
	}
}

func TestOscillator_PartialSample(t *testing.T) {
	t.Parallel()

	o := NewOscillator(8000, 0.5)
	n, err := o.Read(make([]byte, 10))
	if err != nil || n != 8 {
		t.Errorf("Read(10 bytes) = %d, %v; want 8, nil", n, err)
	}
}
