package exercise

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/0xlemi/riyaz/internal/clock"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// DefaultTempo is the starting tempo in beats per minute
const DefaultTempo = 60.0

// DefaultOctave is the octave of the root (Sa) note
const DefaultOctave = 4

// State is the sequencer lifecycle state
type State int

const (
	Idle     State = iota // No exercise loaded
	Ready                 // Loaded, position fixed
	Playing               // Advancing on the tempo clock
	Finished              // Non-looping pattern played through
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step is one pattern degree transposed to the current root
type Step struct {
	Degree    string           // Degree as written in the pattern
	Note      string           // Transposed note name
	Class     pitch.PitchClass // Transposed pitch class
	Octave    int
	Swara     string  // Swara of the degree relative to the root
	Frequency float64 // In-tune frequency of the transposed note (Hz)
}

// Target is emitted each time the sequencer moves to a note
type Target struct {
	Step
	Pattern  string // ID of the pattern being played
	Position int
	Duration time.Duration // How long the note is held at the current tempo
	Time     time.Time
}

// Status is a snapshot of the sequencer
type Status struct {
	State    State
	Pattern  Pattern
	Position int
	Length   int
	Tempo    float64
	Interval time.Duration // Per-note interval at the current tempo
	Root     pitch.PitchClass
	RootName string
	Loop     bool
	Steps    []Step
}

// Option configures a Sequencer
type Option func(*Sequencer)

// WithClock sets the clock driving the ticks
func WithClock(c clock.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithMapper sets the mapper used for note names and target frequencies
func WithMapper(m *pitch.Mapper) Option {
	return func(s *Sequencer) { s.mapper = m }
}

// WithOctave sets the octave of the root note
func WithOctave(octave int) Option {
	return func(s *Sequencer) { s.octave = octave }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// Sequencer plays a pattern as a timed series of targets.
//
// Every tick emits the current note and schedules the next one after
// (60 / tempo) * beats, using the tempo in force when the timer is set.
// Changing the tempo never moves a timer that is already pending. Timers
// carry the generation they were scheduled in; any pause, seek, stop or
// selection bumps the generation so a callback that already fired is
// dropped instead of emitting a stale tick.
type Sequencer struct {
	emit   func(Target)
	clock  clock.Clock
	mapper *pitch.Mapper
	octave int
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	pattern  Pattern
	degrees  []pitch.PitchClass
	steps    []Step
	root     pitch.PitchClass
	position int
	tempo    float64
	loop     bool
	timer    clock.Timer
	gen      uint64
}

// NewSequencer creates an idle sequencer. emit is called with the
// sequencer's lock held, once per tick and in position order; it must not
// call back into the Sequencer.
func NewSequencer(emit func(Target), opts ...Option) *Sequencer {
	s := &Sequencer{
		emit:   emit,
		clock:  clock.Real(),
		mapper: pitch.DefaultMapper(),
		octave: DefaultOctave,
		logger: slog.Default(),
		tempo:  DefaultTempo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select loads a pattern transposed to root. On error nothing changes.
func (s *Sequencer) Select(p Pattern, root string) error {
	if len(p.Degrees) == 0 {
		return ErrEmptyPattern
	}
	if !(p.Beats > 0) || math.IsInf(p.Beats, 0) {
		return fmt.Errorf("%w: beats %g must be positive", ErrInvalidPattern, p.Beats)
	}
	rootClass, err := s.mapper.ParseClass(root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	degrees, err := parseDegrees(s.mapper.Tables(), p.Degrees)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.pattern = p.clone()
	s.degrees = degrees
	s.root = rootClass
	s.steps = s.transpose(degrees, p.Degrees, rootClass)
	s.loop = p.Loop
	s.position = 0
	s.state = Ready

	s.logger.Debug("exercise selected", "pattern", p.ID, "root", s.mapper.Tables().Name(rootClass), "notes", len(s.steps))
	return nil
}

// Play starts or resumes the exercise, emitting the current note at once.
// From Finished it restarts at the first note.
func (s *Sequencer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle:
		return ErrNoExercise
	case Playing:
		return ErrAlreadyPlaying
	case Finished:
		s.position = 0
	}

	s.state = Playing
	s.gen++
	s.tickLocked()
	return nil
}

// Pause stops playback, keeping the position
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return ErrNotPlaying
	}
	s.cancelLocked()
	s.state = Ready
	return nil
}

// Seek moves to position i, clamped to the pattern, and leaves the
// sequencer Ready
func (s *Sequencer) Seek(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle {
		return ErrNoExercise
	}
	s.cancelLocked()
	s.position = max(0, min(i, len(s.steps)-1))
	s.state = Ready
	return nil
}

// SetTempo changes the tempo used for the next scheduled tick
func (s *Sequencer) SetTempo(bpm float64) error {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidTempo, bpm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempo = bpm
	return nil
}

// SetRoot re-transposes the loaded pattern, keeping the position. With no
// pattern loaded the root is kept for reporting only; Select always takes
// its own root.
func (s *Sequencer) SetRoot(root string) error {
	rootClass, err := s.mapper.ParseClass(root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.root = rootClass
	if s.state != Idle {
		s.steps = s.transpose(s.degrees, s.pattern.Degrees, rootClass)
	}
	return nil
}

// SetLoop overrides the loaded pattern's loop flag
func (s *Sequencer) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
}

// Stop cancels the pending tick. A playing exercise becomes Ready. Stopping
// a stopped sequencer does nothing.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	if s.state == Playing {
		s.state = Ready
	}
}

// Status returns a snapshot of the sequencer
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Position: s.position,
		Length:   len(s.steps),
		Tempo:    s.tempo,
		Root:     s.root,
		RootName: s.mapper.Tables().Name(s.root),
		Loop:     s.loop,
	}
	if s.state != Idle {
		st.Pattern = s.pattern.clone()
		st.Interval = interval(s.tempo, s.pattern.Beats)
		st.Steps = append([]Step(nil), s.steps...)
	}
	return st
}

// tickLocked emits the note at the current position and schedules the next
func (s *Sequencer) tickLocked() {
	d := interval(s.tempo, s.pattern.Beats)
	s.emit(Target{
		Step:     s.steps[s.position],
		Pattern:  s.pattern.ID,
		Position: s.position,
		Duration: d,
		Time:     s.clock.Now(),
	})

	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.advance(gen) })
}

// advance runs when the current note's time is up
func (s *Sequencer) advance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != Playing {
		return
	}
	s.timer = nil

	switch {
	case s.position+1 < len(s.steps):
		s.position++
	case s.loop:
		s.position = 0
	default:
		// The position stays on the last note
		s.state = Finished
		s.logger.Debug("exercise finished", "pattern", s.pattern.ID)
		return
	}
	s.tickLocked()
}

func (s *Sequencer) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// transpose shifts each degree up by root semitones. Degrees that pass B
// carry into the next octave.
func (s *Sequencer) transpose(degrees []pitch.PitchClass, names []string, root pitch.PitchClass) []Step {
	tables := s.mapper.Tables()
	steps := make([]Step, len(degrees))
	for i, d := range degrees {
		raw := int(d) + int(root)
		class := pitch.PitchClass(raw % 12)
		octave := s.octave + raw/12
		steps[i] = Step{
			Degree:    names[i],
			Note:      tables.Name(class),
			Class:     class,
			Octave:    octave,
			Swara:     tables.DegreeSwara(d),
			Frequency: s.mapper.Frequency(class, octave),
		}
	}
	return steps
}

// interval is the length of one note of the given beats at bpm
func interval(bpm, beats float64) time.Duration {
	return time.Duration(60 / bpm * beats * float64(time.Second))
}
