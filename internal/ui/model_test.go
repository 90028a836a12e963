package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/history"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// fakeController records the calls the UI makes
type fakeController struct {
	calls    []string
	status   exercise.Status
	history  []pitch.Judgment
	toggle   error
	tempo    float64
	root     string
	selected string
}

func (f *fakeController) SelectExercise(p exercise.Pattern, root string) error {
	f.calls = append(f.calls, "select")
	f.selected = p.ID
	f.root = root
	return nil
}

func (f *fakeController) TogglePlay() error {
	f.calls = append(f.calls, "toggle")
	return f.toggle
}

func (f *fakeController) SkipBack() error {
	f.calls = append(f.calls, "back")
	return nil
}

func (f *fakeController) SkipForward() error {
	f.calls = append(f.calls, "forward")
	return nil
}

func (f *fakeController) SetTempo(bpm float64) error {
	f.calls = append(f.calls, "tempo")
	f.tempo = bpm
	return nil
}

func (f *fakeController) SetRootScale(root string) error {
	f.calls = append(f.calls, "root")
	f.root = root
	return nil
}

func (f *fakeController) SetLoop(loop bool) {
	f.calls = append(f.calls, "loop")
	f.status.Loop = loop
}

func (f *fakeController) ExerciseStatus() exercise.Status { return f.status }
func (f *fakeController) History() []pitch.Judgment       { return f.history }
func (f *fakeController) Summary() history.Summary        { return history.Summarize(f.history) }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func newModel(c *fakeController) Model {
	return NewModel(c, exercise.NewCatalog().All(), 0, 60)
}

func TestModel_Keys(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	m := press(t, newModel(c),
		runes("2"),
		tea.KeyMsg{Type: tea.KeySpace},
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyLeft},
		runes("+"),
		runes("]"),
		runes("]"),
		runes("o"),
	)

	want := []string{"select", "toggle", "forward", "back", "tempo", "root", "root", "loop"}
	if diff := cmp.Diff(want, c.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if c.selected != "aaroh_avroh" {
		t.Errorf("selected %q, want aaroh_avroh", c.selected)
	}
	if c.tempo != 65 || m.tempo != 65 {
		t.Errorf("tempo = %v (model %v), want 65", c.tempo, m.tempo)
	}
	if c.root != "D" || m.root != 2 {
		t.Errorf("root = %s (model %d), want D", c.root, m.root)
	}
	if !c.status.Loop {
		t.Error("loop not toggled on")
	}
}

func TestModel_TempoClamped(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	m := newModel(c)
	for range 20 {
		m = press(t, m, runes("-"))
	}
	if m.tempo != minTempo {
		t.Errorf("tempo = %v, want %v", m.tempo, float64(minTempo))
	}
	for range 40 {
		m = press(t, m, runes("+"))
	}
	if m.tempo != maxTempo {
		t.Errorf("tempo = %v, want %v", m.tempo, float64(maxTempo))
	}

	// Root wraps around the octave
	m = press(t, m, runes("["))
	if c.root != "B" {
		t.Errorf("root = %s, want B", c.root)
	}
}

func TestModel_QuitAndErrors(t *testing.T) {
	t.Parallel()

	c := &fakeController{toggle: exercise.ErrNoExercise}
	m := press(t, newModel(c), tea.KeyMsg{Type: tea.KeySpace})
	if !m.statusErr || !strings.Contains(m.View(), exercise.ErrNoExercise.Error()) {
		t.Errorf("error not shown: status %q", m.status)
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func judgmentAt(name string, octave int, at time.Time) JudgmentMsg {
	return JudgmentMsg(pitch.Judgment{
		Note:     pitch.Note{Name: name, Octave: octave, Swara: "Ga", Frequency: 440, Cents: 1},
		Accuracy: 99.8,
		Time:     at,
	})
}

func TestModel_NoteStability(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := press(t, newModel(&fakeController{}), judgmentAt("A", 4, start))
	if m.stable == nil || m.stable.Name != "A" {
		t.Fatalf("first note not displayed")
	}

	// A brief B does not replace A
	m = press(t, m, judgmentAt("B", 4, start.Add(100*time.Millisecond)))
	if m.stable.Name != "A" {
		t.Errorf("displayed %s after a brief B", m.stable.Name)
	}

	// A sustained B does
	m = press(t, m, judgmentAt("B", 4, start.Add(450*time.Millisecond)))
	if m.stable.Name != "B" {
		t.Errorf("displayed %s after a sustained B", m.stable.Name)
	}

	// Silence clears the display
	m = press(t, m, TickMsg(start.Add(2*time.Second)))
	if m.stable != nil || m.current != nil {
		t.Error("display not cleared after silence")
	}
}

func TestModel_View(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := &fakeController{
		history: []pitch.Judgment{{Note: pitch.Note{Name: "G", Octave: 4}, Accuracy: 90}},
		status: exercise.Status{
			State:    exercise.Playing,
			Pattern:  exercise.Pattern{Name: "Sa Re Ga Ma", Level: exercise.LevelBasic},
			RootName: "C",
			Steps:    []exercise.Step{{Swara: "Sa"}, {Swara: "Re"}},
		},
	}
	m := press(t, newModel(c),
		judgmentAt("G#", 4, now),
		TargetMsg(exercise.Target{Step: exercise.Step{Note: "A", Octave: 4, Swara: "Dha", Frequency: 440}}),
		LevelMsg{RMS: 0.1, DB: -20},
	)

	view := m.View()
	for _, want := range []string{"Riyaz", "G", "Swara: Ga", "Target A4 (Dha)", "Sa Re Ga Ma", "Mostly G4", "playing", "-20.0 dB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	ended := press(t, newModel(&fakeController{}), SessionEndedMsg{Err: errors.New("device lost")})
	if v := ended.View(); !strings.Contains(v, "device lost") || !strings.Contains(v, "Not listening") {
		t.Errorf("ended view:\n%s", v)
	}
}

func TestAccuracyColor(t *testing.T) {
	t.Parallel()

	if accuracyColor(0) == accuracyColor(100) {
		t.Error("0% and 100% share a color")
	}
	if accuracyColor(150) != accuracyColor(100) || accuracyColor(-5) != accuracyColor(0) {
		t.Error("accuracy outside 0..100 is not clamped")
	}
	if got, want := accuracyColor(50), lipgloss.Color(offColor.BlendLab(inTuneColor, 0.5).Clamped().Hex()); got != want {
		t.Errorf("accuracyColor(50) = %v, want %v", got, want)
	}
}

func TestLevelMeter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		db   float64
		want int
	}{{-100, 0}, {-60, 0}, {-30, 15}, {0, 30}, {6, 30}}
	for _, test := range tests {
		got := strings.Count(levelMeter(test.db, meterWidth), "█")
		if got != test.want {
			t.Errorf("levelMeter(%v) filled %d, want %d", test.db, got, test.want)
		}
	}
}

// recordingSender collects messages instead of sending them to a program
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestListener(t *testing.T) {
	t.Parallel()

	r := &recordingSender{}
	l := NewListener(r)
	l.OnJudgment(pitch.Judgment{Seq: 1})
	l.OnTarget(exercise.Target{Position: 2})
	l.OnLevel(0.1, -20)
	l.OnLevel(0.2, -14) // throttled

	if len(r.msgs) != 3 {
		t.Fatalf("sent %d messages, want 3", len(r.msgs))
	}
	if j, ok := r.msgs[0].(JudgmentMsg); !ok || j.Seq != 1 {
		t.Errorf("msg 0 = %#v", r.msgs[0])
	}
	if tg, ok := r.msgs[1].(TargetMsg); !ok || tg.Position != 2 {
		t.Errorf("msg 1 = %#v", r.msgs[1])
	}
	if lv, ok := r.msgs[2].(LevelMsg); !ok || lv.DB != -20 {
		t.Errorf("msg 2 = %#v", r.msgs[2])
	}
}
