package pitch

import (
	"fmt"
	"math"
	"strings"
)

// ReferenceA4 is the tuning reference (A4 = 440Hz)
const ReferenceA4 = 440.0

// a4Number is the semitone number of A4 counted from C-1, as in MIDI
const a4Number = 69

// PitchClass indexes the 12 equal-tempered pitch classes, 0 = C … 11 = B
type PitchClass int

// Valid reports whether pc is in [0, 12)
func (pc PitchClass) Valid() bool {
	return pc >= 0 && pc < 12
}

// Transpose shifts pc by semitones, wrapping within the octave
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return PitchClass(floorMod(int(pc)+semitones, 12))
}

// Tables holds the name lookups used by a Mapper. It is a plain value:
// every Mapper owns its copy.
type Tables struct {
	NoteNames  [12]string // Chromatic names starting at C
	SwaraNames [7]string  // Scale-degree names starting at Sa
	Diatonic   [12]int    // Degree of each natural pitch class in the major scale, -1 for accidentals
}

// DefaultTables returns the standard note and swara names
func DefaultTables() Tables {
	return Tables{
		NoteNames:  [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"},
		SwaraNames: [7]string{"Sa", "Re", "Ga", "Ma", "Pa", "Dha", "Ni"},
		Diatonic:   [12]int{0, -1, 1, -1, 2, 3, -1, 4, -1, 5, -1, 6},
	}
}

// Name returns the note name of pc
func (t Tables) Name(pc PitchClass) string {
	if !pc.Valid() {
		return ""
	}
	return t.NoteNames[pc]
}

// Swara folds a pitch class into the 7-entry swara table by index modulo 7.
// This is not a diatonic mapping: C# is Re and A is Ga.
func (t Tables) Swara(pc PitchClass) string {
	if !pc.Valid() {
		return ""
	}
	return t.SwaraNames[int(pc)%7]
}

// DegreeSwara names a scale degree written against a C-rooted template:
// naturals get their swara (D is Re), accidentals keep the note name.
func (t Tables) DegreeSwara(pc PitchClass) string {
	if !pc.Valid() {
		return ""
	}
	if degree := t.Diatonic[pc]; degree >= 0 {
		return t.SwaraNames[degree]
	}
	return t.NoteNames[pc]
}

// Note represents a frequency placed on the equal-tempered grid
type Note struct {
	Name           string     // e.g., "A", "A#", "B"
	Class          PitchClass // Index into the note name table
	Octave         int        // e.g., 4 for middle C (C4)
	Number         int        // Semitones above C-1 (MIDI note number)
	Swara          string     // Scale-degree label of Class
	Frequency      float64    // Frequency in Hz
	Cents          float64    // Deviation from the nearest grid note (-50 to +50)
	ReferenceCents float64    // Deviation from the reference A itself
}

// Mapper converts between frequencies and notes
type Mapper struct {
	reference float64
	tables    Tables
}

// NewMapper creates a mapper tuned to reference (Hz) with the given tables
func NewMapper(reference float64, tables Tables) (*Mapper, error) {
	if !validFrequency(reference) {
		return nil, fmt.Errorf("reference: %w: %g", ErrInvalidFrequency, reference)
	}
	return &Mapper{reference: reference, tables: tables}, nil
}

// DefaultMapper returns a mapper tuned to A4 = 440Hz
func DefaultMapper() *Mapper {
	return &Mapper{reference: ReferenceA4, tables: DefaultTables()}
}

// Reference returns the tuning reference in Hz
func (m *Mapper) Reference() float64 {
	return m.reference
}

// Tables returns a copy of the mapper's lookup tables
func (m *Mapper) Tables() Tables {
	return m.tables
}

// Map places a frequency on the grid
func (m *Mapper) Map(frequency float64) (Note, error) {
	if !validFrequency(frequency) {
		return Note{}, fmt.Errorf("%w: %g", ErrInvalidFrequency, frequency)
	}

	// Semitones from the reference, and the nearest grid point
	semitones := 12 * math.Log2(frequency/m.reference)
	rounded := math.Round(semitones)

	number := int(rounded) + a4Number
	class := PitchClass(floorMod(number, 12))

	return Note{
		Name:           m.tables.Name(class),
		Class:          class,
		Octave:         floorDiv(number, 12) - 1,
		Number:         number,
		Swara:          m.tables.Swara(class),
		Frequency:      frequency,
		Cents:          100 * (semitones - rounded),
		ReferenceCents: 100 * semitones,
	}, nil
}

// Frequency returns the in-tune frequency of class in octave; it is the
// inverse of Map and shares its anchor
func (m *Mapper) Frequency(class PitchClass, octave int) float64 {
	number := (octave+1)*12 + int(class)
	return m.reference * math.Pow(2, float64(number-a4Number)/12)
}

// ParseClass reads a note name such as "C", "f#" or "Bb"
func (m *Mapper) ParseClass(name string) (PitchClass, error) {
	return parseClass(m.tables, name)
}

func parseClass(t Tables, name string) (PitchClass, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownNote)
	}

	letter := strings.ToUpper(s[:1])
	base := -1
	for i, n := range t.NoteNames {
		if n == letter {
			base = i
			break
		}
	}
	if base < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, name)
	}

	switch accidental := s[1:]; accidental {
	case "":
		return PitchClass(base), nil
	case "#", "♯":
		return PitchClass(base).Transpose(1), nil
	case "b", "♭":
		return PitchClass(base).Transpose(-1), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, name)
	}
}

func validFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func floorMod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
