// Package exercise holds the practice patterns and the sequencer that plays
// them as timed pitch targets.
package exercise

import (
	"errors"
	"fmt"

	"github.com/0xlemi/riyaz/internal/pitch"
)

// Errors
var (
	ErrEmptyPattern     = errors.New("pattern has no notes")
	ErrUnknownNote      = pitch.ErrUnknownNote
	ErrInvalidTempo     = errors.New("tempo must be a positive finite BPM")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrDuplicatePattern = errors.New("pattern id already registered")
	ErrUnknownPattern   = errors.New("unknown pattern")
	ErrNoExercise       = errors.New("no exercise selected")
	ErrAlreadyPlaying   = errors.New("exercise already playing")
	ErrNotPlaying       = errors.New("exercise not playing")
)

// Level groups patterns by difficulty
type Level string

const (
	LevelBasic        Level = "basic"
	LevelIntermediate Level = "intermediate"
	LevelCustom       Level = "custom"
)

// Pattern is a sequence of scale degrees written against a C-rooted
// template, so "D" is the second degree whatever the root.
type Pattern struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Level   Level    `yaml:"level"`
	Degrees []string `yaml:"degrees"`
	Beats   float64  `yaml:"beats"` // Duration of each note in beats
	Loop    bool     `yaml:"loop"`
}

// Len returns the number of notes in the pattern
func (p Pattern) Len() int {
	return len(p.Degrees)
}

// Validate checks that the pattern can be played
func (p Pattern) Validate() error {
	if len(p.Degrees) == 0 {
		return fmt.Errorf("pattern %q: %w", p.ID, ErrEmptyPattern)
	}
	if !(p.Beats > 0) {
		return fmt.Errorf("pattern %q: %w: beats %g must be positive", p.ID, ErrInvalidPattern, p.Beats)
	}
	if _, err := parseDegrees(pitch.DefaultTables(), p.Degrees); err != nil {
		return fmt.Errorf("pattern %q: %w", p.ID, err)
	}
	return nil
}

// clone returns a copy that shares no memory with p
func (p Pattern) clone() Pattern {
	p.Degrees = append([]string(nil), p.Degrees...)
	return p
}

func parseDegrees(t pitch.Tables, degrees []string) ([]pitch.PitchClass, error) {
	m, err := pitch.NewMapper(pitch.ReferenceA4, t)
	if err != nil {
		return nil, err
	}
	classes := make([]pitch.PitchClass, len(degrees))
	for i, d := range degrees {
		c, err := m.ParseClass(d)
		if err != nil {
			return nil, fmt.Errorf("degree %d: %w", i, err)
		}
		classes[i] = c
	}
	return classes, nil
}
