package pitch

import (
	"errors"
	"math"
	"testing"
)

func TestMapper_Map(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		frequency  float64
		wantName   string
		wantOctave int
		wantSwara  string
		wantCents  float64
	}{
		{"reference A4", 440, "A", 4, "Ga", 0},
		{"middle C", 261.6256, "C", 4, "Sa", 0},
		{"between A and A#", 466, "A#", 4, "Ma", -0.608},
		{"low E", 82.4069, "E", 2, "Pa", 0},
		{"B below middle C", 246.9417, "B", 3, "Pa", 0},
		{"quarter-tone sharp A", 440 * math.Pow(2, 0.25/12), "A", 4, "Ga", 25},
	}

	m := DefaultMapper()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			note, err := m.Map(test.frequency)
			if err != nil {
				t.Fatalf("Map(%g): %v", test.frequency, err)
			}
			if note.Name != test.wantName || note.Octave != test.wantOctave {
				t.Errorf("note = %s%d, want %s%d", note.Name, note.Octave, test.wantName, test.wantOctave)
			}
			if note.Swara != test.wantSwara {
				t.Errorf("swara = %s, want %s", note.Swara, test.wantSwara)
			}
			if math.Abs(note.Cents-test.wantCents) > 0.01 {
				t.Errorf("cents = %.3f, want %.3f", note.Cents, test.wantCents)
			}
		})
	}
}

func TestMapper_ReferenceCents(t *testing.T) {
	t.Parallel()

	note, err := DefaultMapper().Map(466)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if math.Abs(note.ReferenceCents-99.39) > 0.01 {
		t.Errorf("reference cents = %.3f, want ≈ 99.39", note.ReferenceCents)
	}
	if acc := Score(note.ReferenceCents); math.Abs(acc-80.12) > 0.01 {
		t.Errorf("accuracy against reference = %.3f, want ≈ 80.12", acc)
	}
}

func TestMapper_GridRoundTrip(t *testing.T) {
	t.Parallel()

	m := DefaultMapper()
	for octave := -1; octave <= 8; octave++ {
		for class := PitchClass(0); class < 12; class++ {
			f := m.Frequency(class, octave)
			note, err := m.Map(f)
			if err != nil {
				t.Fatalf("Map(%g): %v", f, err)
			}
			if note.Class != class || note.Octave != octave {
				t.Errorf("Map(Frequency(%d, %d)) = class %d octave %d", class, octave, note.Class, note.Octave)
			}
			if math.Abs(note.Cents) > 1e-9 {
				t.Errorf("%s%d: cents = %g, want 0", note.Name, octave, note.Cents)
			}
		}
	}
}

func TestMapper_CentsBounded(t *testing.T) {
	t.Parallel()

	m := DefaultMapper()
	for f := 50.0; f <= 2000; f += 0.37 {
		note, err := m.Map(f)
		if err != nil {
			t.Fatalf("Map(%g): %v", f, err)
		}
		if note.Cents < -50-1e-9 || note.Cents > 50+1e-9 {
			t.Fatalf("Map(%g).Cents = %g, outside [-50, 50]", f, note.Cents)
		}
		if !note.Class.Valid() {
			t.Fatalf("Map(%g).Class = %d", f, note.Class)
		}
	}
}

func TestMapper_InvalidFrequency(t *testing.T) {
	t.Parallel()

	m := DefaultMapper()
	for _, f := range []float64{0, -440, math.NaN(), math.Inf(1)} {
		if _, err := m.Map(f); !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("Map(%g): err = %v, want ErrInvalidFrequency", f, err)
		}
	}
	if _, err := NewMapper(0, DefaultTables()); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("NewMapper(0): err = %v, want ErrInvalidFrequency", err)
	}
}

func TestMapper_NegativeOctaves(t *testing.T) {
	t.Parallel()

	m := DefaultMapper()
	f := m.Frequency(11, -2) // one semitone below C-1
	note, err := m.Map(f)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if note.Name != "B" || note.Octave != -2 || note.Number != -1 {
		t.Errorf("got %s%d (number %d), want B-2 (number -1)", note.Name, note.Octave, note.Number)
	}
}

func TestMapper_AlternateReference(t *testing.T) {
	t.Parallel()

	m, err := NewMapper(432, DefaultTables())
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	note, err := m.Map(432)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if note.Name != "A" || math.Abs(note.Cents) > 1e-9 {
		t.Errorf("got %s %+.3f¢, want A +0¢", note.Name, note.Cents)
	}
}

func TestTables(t *testing.T) {
	t.Parallel()

	tables := DefaultTables()
	wantSwara := []string{"Sa", "Re", "Ga", "Ma", "Pa", "Dha", "Ni", "Sa", "Re", "Ga", "Ma", "Pa"}
	for pc := PitchClass(0); pc < 12; pc++ {
		if got := tables.Swara(pc); got != wantSwara[pc] {
			t.Errorf("Swara(%s) = %s, want %s", tables.Name(pc), got, wantSwara[pc])
		}
	}

	wantDegree := map[PitchClass]string{0: "Sa", 1: "C#", 2: "Re", 4: "Ga", 5: "Ma", 7: "Pa", 9: "Dha", 11: "Ni"}
	for pc, want := range wantDegree {
		if got := tables.DegreeSwara(pc); got != want {
			t.Errorf("DegreeSwara(%d) = %s, want %s", pc, got, want)
		}
	}

	if tables.Name(12) != "" || tables.Swara(-1) != "" {
		t.Error("out-of-range classes must map to empty names")
	}

	// Mutating a copy must not leak into other mappers.
	m := DefaultMapper()
	copied := m.Tables()
	copied.NoteNames[0] = "X"
	if m.Tables().NoteNames[0] != "C" {
		t.Error("mapper tables were mutated through a copy")
	}
}

func TestParseClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    PitchClass
		wantErr bool
	}{
		{"C", 0, false},
		{"c#", 1, false},
		{"Db", 1, false},
		{" G ", 7, false},
		{"B", 11, false},
		{"Cb", 11, false},
		{"A♯", 10, false},
		{"H", 0, true},
		{"", 0, true},
		{"C##", 0, true},
	}

	m := DefaultMapper()
	for _, test := range tests {
		got, err := m.ParseClass(test.in)
		if test.wantErr {
			if !errors.Is(err, ErrUnknownNote) {
				t.Errorf("ParseClass(%q): err = %v, want ErrUnknownNote", test.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClass(%q): %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseClass(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestPitchClass_Transpose(t *testing.T) {
	t.Parallel()

	if got := PitchClass(11).Transpose(2); got != 1 {
		t.Errorf("B+2 = %d, want 1", got)
	}
	if got := PitchClass(0).Transpose(-1); got != 11 {
		t.Errorf("C-1 = %d, want 11", got)
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cents float64
		want  float64
	}{
		{0, 100},
		{5, 99},
		{-5, 99},
		{50, 90},
		{98, 80.4},
		{250, 50},
		{500, 0},
		{-500, 0},
		{1200, 0},
		{math.NaN(), 0},
	}
	for _, test := range tests {
		if got := Score(test.cents); math.Abs(got-test.want) > 1e-9 {
			t.Errorf("Score(%g) = %g, want %g", test.cents, got, test.want)
		}
	}

	prev := Score(0)
	for c := 0.0; c <= 700; c += 0.5 {
		got := Score(c)
		if got > prev {
			t.Fatalf("Score not monotonic at %g: %g > %g", c, got, prev)
		}
		if got != Score(-c) {
			t.Fatalf("Score not symmetric at %g", c)
		}
		if got < 0 || got > 100 {
			t.Fatalf("Score(%g) = %g out of [0, 100]", c, got)
		}
		prev = got
	}
}

func TestJudge(t *testing.T) {
	t.Parallel()

	grid, err := NewJudge(DefaultMapper(), "")
	if err != nil {
		t.Fatalf("NewJudge: %v", err)
	}
	reference, err := NewJudge(DefaultMapper(), BasisReference)
	if err != nil {
		t.Fatalf("NewJudge: %v", err)
	}

	j, err := grid.Judge(Estimate{Frequency: 440, Confidence: 0.97})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if j.Name != "A" || j.Octave != 4 || j.Cents != 0 || j.Accuracy != 100 || j.Confidence != 0.97 {
		t.Errorf("440 Hz judgment = %+v", j)
	}

	j, err = grid.Judge(Estimate{Frequency: 466})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if math.Abs(j.Accuracy-99.88) > 0.01 {
		t.Errorf("grid accuracy = %.3f, want ≈ 99.88", j.Accuracy)
	}

	j, err = reference.Judge(Estimate{Frequency: 466})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if math.Abs(j.Accuracy-80.12) > 0.01 {
		t.Errorf("reference accuracy = %.3f, want ≈ 80.12", j.Accuracy)
	}

	if _, err := grid.Judge(NoPitch); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("Judge(NoPitch): err = %v, want ErrInvalidFrequency", err)
	}
	if _, err := NewJudge(DefaultMapper(), "just"); err == nil {
		t.Error("NewJudge with unknown basis: want error")
	}
}
