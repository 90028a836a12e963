// Package config provides the configuration schema and loader for riyaz.
package config

import (
	"log/slog"

	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/history"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// LogLevel controls log verbosity
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching slog level; unknown values mean info
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure
type Config struct {
	LogLevel LogLevel       `yaml:"log_level"`
	Audio    AudioConfig    `yaml:"audio"`
	Pitch    PitchConfig    `yaml:"pitch"`
	History  HistoryConfig  `yaml:"history"`
	Exercise ExerciseConfig `yaml:"exercise"`
	Tone     ToneConfig     `yaml:"tone"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AudioConfig configures capture
type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	FrameSize     int     `yaml:"frame_size"`    // Samples per analysed frame
	Channels      int     `yaml:"channels"`      // Input channels, mixed down to mono
	Amplification float64 `yaml:"amplification"` // Gain applied to microphone input
	QueueDepth    int     `yaml:"queue_depth"`   // Frames buffered between capture and analysis
}

// PitchConfig configures estimation and scoring
type PitchConfig struct {
	Method        string      `yaml:"method"` // "yin" or "fft"
	MinFrequency  float64     `yaml:"min_frequency"`
	MaxFrequency  float64     `yaml:"max_frequency"`
	Threshold     float64     `yaml:"threshold"`
	MinRMS        float64     `yaml:"min_rms"`
	ReferenceHz   float64     `yaml:"reference_hz"`
	AccuracyBasis pitch.Basis `yaml:"accuracy_basis"`
}

// Params returns the estimator parameters
func (p PitchConfig) Params() pitch.Params {
	return pitch.Params{
		MinFrequency: p.MinFrequency,
		MaxFrequency: p.MaxFrequency,
		Threshold:    p.Threshold,
		MinRMS:       p.MinRMS,
	}
}

// HistoryConfig configures the judgment window
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// ExerciseConfig configures the sequencer and custom patterns
type ExerciseConfig struct {
	TempoBPM float64            `yaml:"tempo_bpm"`
	Root     string             `yaml:"root"`   // Note name of Sa
	Octave   int                `yaml:"octave"` // Octave of Sa
	Loop     bool               `yaml:"loop"`   // Loop every selected exercise
	Patterns []exercise.Pattern `yaml:"patterns"`
}

// ToneConfig configures playback of target notes
type ToneConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"` // 0..1
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // Empty disables the endpoint
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			SampleRate:    44100,
			FrameSize:     4096,
			Channels:      1,
			Amplification: 8,
			QueueDepth:    2,
		},
		Pitch: PitchConfig{
			Method:        pitch.MethodYIN,
			MinFrequency:  pitch.DefaultParams.MinFrequency,
			MaxFrequency:  pitch.DefaultParams.MaxFrequency,
			Threshold:     pitch.DefaultParams.Threshold,
			MinRMS:        pitch.DefaultParams.MinRMS,
			ReferenceHz:   pitch.ReferenceA4,
			AccuracyBasis: pitch.BasisGrid,
		},
		History: HistoryConfig{Capacity: history.DefaultCapacity},
		Exercise: ExerciseConfig{
			TempoBPM: exercise.DefaultTempo,
			Root:     "C",
			Octave:   exercise.DefaultOctave,
		},
		Tone: ToneConfig{Volume: 0.3},
	}
}
