package session

import (
	"github.com/0xlemi/riyaz/internal/exercise"
)

// SelectExercise loads a pattern transposed to root
func (s *Session) SelectExercise(p exercise.Pattern, root string) error {
	return s.sequencer.Select(p, root)
}

// Play starts the loaded exercise. The session must be running.
func (s *Session) Play() error {
	if !s.Running() {
		return ErrNotRunning
	}
	return s.sequencer.Play()
}

// Pause pauses the exercise, keeping its position
func (s *Session) Pause() error {
	return s.sequencer.Pause()
}

// TogglePlay pauses a playing exercise and plays any other
func (s *Session) TogglePlay() error {
	if s.sequencer.Status().State == exercise.Playing {
		return s.Pause()
	}
	return s.Play()
}

// Seek moves the exercise to position i
func (s *Session) Seek(i int) error {
	return s.sequencer.Seek(i)
}

// SkipBack returns to the first note
func (s *Session) SkipBack() error {
	return s.sequencer.Seek(0)
}

// SkipForward moves to the next note
func (s *Session) SkipForward() error {
	return s.sequencer.Seek(s.sequencer.Status().Position + 1)
}

// SetTempo sets the exercise tempo in BPM
func (s *Session) SetTempo(bpm float64) error {
	return s.sequencer.SetTempo(bpm)
}

// SetRootScale changes the exercise root
func (s *Session) SetRootScale(root string) error {
	return s.sequencer.SetRoot(root)
}

// SetLoop overrides the exercise's loop flag
func (s *Session) SetLoop(loop bool) {
	s.sequencer.SetLoop(loop)
}

// ExerciseStatus returns a snapshot of the sequencer
func (s *Session) ExerciseStatus() exercise.Status {
	return s.sequencer.Status()
}
