package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/0xlemi/riyaz/internal/config"
	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/pitch"
)

const sampleYAML = `
log_level: debug

audio:
  sample_rate: 48000
  frame_size: 2048

pitch:
  method: fft
  reference_hz: 432
  accuracy_basis: reference

history:
  capacity: 50

exercise:
  tempo_bpm: 90
  root: "D#"
  loop: true
  patterns:
    - id: bhairav
      name: Bhairav Aaroh
      degrees: [C, Db, E, F, G, Ab, B, C]
      beats: 1

tone:
  enabled: true
  volume: 0.5

metrics:
  listen_addr: ":9464"
`

func TestDefault_Validates(t *testing.T) {
	t.Parallel()

	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogDebug || cfg.LogLevel.Slog() != slog.LevelDebug {
		t.Errorf("log_level: got %q", cfg.LogLevel)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FrameSize != 2048 {
		t.Errorf("audio: got %+v", cfg.Audio)
	}
	// Keys left out keep their defaults
	if cfg.Audio.Amplification != 8 || cfg.Audio.QueueDepth != 2 || cfg.Exercise.Octave != 4 {
		t.Errorf("defaults lost: audio %+v octave %d", cfg.Audio, cfg.Exercise.Octave)
	}
	if cfg.Pitch.Method != pitch.MethodFFT || cfg.Pitch.ReferenceHz != 432 || cfg.Pitch.AccuracyBasis != pitch.BasisReference {
		t.Errorf("pitch: got %+v", cfg.Pitch)
	}
	if diff := cmp.Diff(pitch.DefaultParams, cfg.Pitch.Params()); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if cfg.History.Capacity != 50 {
		t.Errorf("history.capacity: got %d", cfg.History.Capacity)
	}
	want := []exercise.Pattern{{
		ID:      "bhairav",
		Name:    "Bhairav Aaroh",
		Degrees: []string{"C", "Db", "E", "F", "G", "Ab", "B", "C"},
		Beats:   1,
	}}
	if diff := cmp.Diff(want, cfg.Exercise.Patterns); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
	if cfg.Exercise.Root != "D#" || cfg.Exercise.TempoBPM != 90 || !cfg.Exercise.Loop {
		t.Errorf("exercise: got %+v", cfg.Exercise)
	}
	if !cfg.Tone.Enabled || cfg.Tone.Volume != 0.5 || cfg.Metrics.ListenAddr != ":9464" {
		t.Errorf("tone/metrics: got %+v %+v", cfg.Tone, cfg.Metrics)
	}
}

func TestLoadFromReader_EmptyIsDefault(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{"", "{}"} {
		cfg, err := config.LoadFromReader(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("LoadFromReader(%q): %v", doc, err)
		}
		if diff := cmp.Diff(config.Default(), cfg); diff != "" {
			t.Errorf("LoadFromReader(%q) mismatch (-want +got):\n%s", doc, diff)
		}
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("audio:\n  sample_rat: 8000\n"))
	if err == nil || !strings.Contains(err.Error(), "sample_rat") {
		t.Fatalf("err = %v, want unknown field error", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	doc := `
log_level: verbose
audio:
  sample_rate: 0
  queue_depth: 0
pitch:
  method: autocorrelation
  threshold: 2
  accuracy_basis: nearest
history:
  capacity: 0
exercise:
  tempo_bpm: -5
  root: H
  patterns:
    - id: empty
      beats: 1
    - name: nameless
tone:
  volume: 3
`
	_, err := config.LoadFromReader(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected validation errors")
	}

	for _, want := range []string{
		"log_level", "audio.sample_rate", "audio.queue_depth", "pitch.method",
		"threshold", "pitch.accuracy_basis", "history.capacity", "exercise.tempo_bpm",
		"exercise.root", "patterns[0]", "patterns[1]", "tone.volume",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s:\n%v", want, err)
		}
	}
	if !errors.Is(err, pitch.ErrInvalidParams) || !errors.Is(err, exercise.ErrEmptyPattern) || !errors.Is(err, pitch.ErrUnknownNote) {
		t.Errorf("joined error lost its causes: %v", err)
	}
}

func TestValidate_Nyquist(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Audio.SampleRate = 3000
	if err := config.Validate(cfg); err == nil || !strings.Contains(err.Error(), "Nyquist") {
		t.Errorf("err = %v, want Nyquist error", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "riyaz.yaml")
	if err := os.WriteFile(path, []byte("history:\n  capacity: 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.History.Capacity != 10 {
		t.Errorf("capacity = %d, want 10", cfg.History.Capacity)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing): err = %v, want os.ErrNotExist", err)
	}
}
