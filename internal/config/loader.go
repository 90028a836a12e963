package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xlemi/riyaz/internal/pitch"
)

// Load reads the YAML configuration file at path over the defaults and
// returns the validated result
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Keys left out keep their default values.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameSize < 64 {
		errs = append(errs, fmt.Errorf("audio.frame_size must be at least 64, got %d", cfg.Audio.FrameSize))
	}
	if cfg.Audio.Channels < 1 {
		errs = append(errs, fmt.Errorf("audio.channels must be at least 1, got %d", cfg.Audio.Channels))
	}
	if !(cfg.Audio.Amplification > 0) {
		errs = append(errs, fmt.Errorf("audio.amplification must be positive, got %g", cfg.Audio.Amplification))
	}
	if cfg.Audio.QueueDepth < 1 {
		errs = append(errs, fmt.Errorf("audio.queue_depth must be at least 1, got %d", cfg.Audio.QueueDepth))
	}

	// Pitch
	if cfg.Pitch.Method != pitch.MethodYIN && cfg.Pitch.Method != pitch.MethodFFT {
		errs = append(errs, fmt.Errorf("pitch.method %q is invalid; valid values: yin, fft", cfg.Pitch.Method))
	}
	if err := cfg.Pitch.Params().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pitch: %w", err))
	}
	if !(cfg.Pitch.ReferenceHz > 0) || math.IsInf(cfg.Pitch.ReferenceHz, 0) {
		errs = append(errs, fmt.Errorf("pitch.reference_hz must be positive, got %g", cfg.Pitch.ReferenceHz))
	}
	if !cfg.Pitch.AccuracyBasis.IsValid() {
		errs = append(errs, fmt.Errorf("pitch.accuracy_basis %q is invalid; valid values: grid, reference", cfg.Pitch.AccuracyBasis))
	}
	if rate := float64(cfg.Audio.SampleRate); rate > 0 && cfg.Pitch.MaxFrequency >= rate/2 {
		errs = append(errs, fmt.Errorf("pitch.max_frequency %g must be below the Nyquist frequency %g", cfg.Pitch.MaxFrequency, rate/2))
	}

	// History
	if cfg.History.Capacity < 1 {
		errs = append(errs, fmt.Errorf("history.capacity must be at least 1, got %d", cfg.History.Capacity))
	}

	// Exercise
	if !(cfg.Exercise.TempoBPM > 0) || math.IsInf(cfg.Exercise.TempoBPM, 0) {
		errs = append(errs, fmt.Errorf("exercise.tempo_bpm must be positive, got %g", cfg.Exercise.TempoBPM))
	}
	if _, err := pitch.DefaultMapper().ParseClass(cfg.Exercise.Root); err != nil {
		errs = append(errs, fmt.Errorf("exercise.root: %w", err))
	}
	if cfg.Exercise.Octave < 0 || cfg.Exercise.Octave > 8 {
		errs = append(errs, fmt.Errorf("exercise.octave must be in [0, 8], got %d", cfg.Exercise.Octave))
	}
	seen := make(map[string]bool)
	for i, p := range cfg.Exercise.Patterns {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("exercise.patterns[%d]: id is required", i))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("exercise.patterns[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("exercise.patterns[%d]: %w", i, err))
		}
	}

	// Tone
	if cfg.Tone.Volume < 0 || cfg.Tone.Volume > 1 {
		errs = append(errs, fmt.Errorf("tone.volume must be in [0, 1], got %g", cfg.Tone.Volume))
	}

	return errors.Join(errs...)
}
