package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/history"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// Constants for UI behavior
const (
	// How long a note needs to be heard before it replaces the displayed one
	noteStabilityThreshold = 300 * time.Millisecond

	// How long the last note stays on screen once judgments stop
	noteHoldDuration = 500 * time.Millisecond

	tickInterval = 100 * time.Millisecond

	// Tempo slider range and step
	minTempo  = 40
	maxTempo  = 120
	tempoStep = 5

	sparkWidth = 50
	meterWidth = 30
)

// Controller is the session surface the UI drives
type Controller interface {
	SelectExercise(p exercise.Pattern, root string) error
	TogglePlay() error
	SkipBack() error
	SkipForward() error
	SetTempo(bpm float64) error
	SetRootScale(root string) error
	SetLoop(loop bool)
	ExerciseStatus() exercise.Status
	History() []pitch.Judgment
	Summary() history.Summary
}

// TickMsg represents a timer tick
type TickMsg time.Time

// JudgmentMsg carries a new pitch judgment
type JudgmentMsg pitch.Judgment

// TargetMsg carries the exercise note that just started
type TargetMsg exercise.Target

// LevelMsg carries the input level
type LevelMsg struct {
	RMS float64
	DB  float64
}

// SessionEndedMsg reports that the audio pipeline stopped
type SessionEndedMsg struct {
	Err error
}

// Model represents the UI state
type Model struct {
	controller Controller
	patterns   []exercise.Pattern
	tables     pitch.Tables

	current   *pitch.Judgment // Latest judgment
	stable    *pitch.Judgment // Judgment on screen
	candidate string          // Note waiting to become stable
	firstSeen time.Time       // When candidate was first heard
	lastHeard time.Time
	target    *exercise.Target
	level     LevelMsg
	root      pitch.PitchClass
	tempo     float64
	status    string
	statusErr bool
	ended     bool
	now       time.Time
	width     int
	height    int
}

// NewModel creates a new UI model. root and tempo are the starting
// exercise settings.
func NewModel(controller Controller, patterns []exercise.Pattern, root pitch.PitchClass, tempo float64) Model {
	return Model{
		controller: controller,
		patterns:   patterns,
		tables:     pitch.DefaultTables(),
		root:       root,
		tempo:      tempo,
		level:      LevelMsg{DB: -100},
	}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.now = time.Time(msg)
		// Clear the display once the singer has been quiet for a while
		if m.current != nil && m.now.Sub(m.lastHeard) > noteHoldDuration {
			m.current = nil
			m.stable = nil
			m.candidate = ""
		}
		return m, tick()

	case JudgmentMsg:
		m.observe(pitch.Judgment(msg))

	case TargetMsg:
		target := exercise.Target(msg)
		m.target = &target

	case LevelMsg:
		m.level = msg

	case SessionEndedMsg:
		m.ended = true
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setStatus("Audio input stopped")
		}
	}

	return m, nil
}

// observe applies the note stability rule: a new note only replaces the
// displayed one after it has been heard for noteStabilityThreshold
func (m *Model) observe(j pitch.Judgment) {
	m.current = &j
	m.lastHeard = j.Time

	name := fmt.Sprintf("%s%d", j.Name, j.Octave)
	if m.stable != nil && fmt.Sprintf("%s%d", m.stable.Name, m.stable.Octave) == name {
		m.stable = &j
		m.candidate = ""
		return
	}
	if m.candidate != name {
		m.candidate = name
		m.firstSeen = j.Time
	}
	if m.stable == nil || j.Time.Sub(m.firstSeen) >= noteStabilityThreshold {
		m.stable = &j
		m.candidate = ""
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ", "space":
		m.report(m.controller.TogglePlay())

	case "left", "h":
		m.report(m.controller.SkipBack())

	case "right", "l":
		m.report(m.controller.SkipForward())

	case "+", "=":
		m.changeTempo(tempoStep)

	case "-", "_":
		m.changeTempo(-tempoStep)

	case "[":
		m.changeRoot(-1)

	case "]":
		m.changeRoot(1)

	case "o":
		st := m.controller.ExerciseStatus()
		m.controller.SetLoop(!st.Loop)
		if !st.Loop {
			m.setStatus("Loop on")
		} else {
			m.setStatus("Loop off")
		}

	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.selectExercise(int(key[0] - '1'))
		}
	}
	return m, nil
}

func (m *Model) selectExercise(i int) {
	if i >= len(m.patterns) {
		return
	}
	p := m.patterns[i]
	if err := m.controller.SelectExercise(p, m.tables.Name(m.root)); err != nil {
		m.setError(err)
		return
	}
	m.target = nil
	m.setStatus(fmt.Sprintf("Selected %s in %s. Press space to play", p.Name, m.tables.Name(m.root)))
}

func (m *Model) changeTempo(delta float64) {
	tempo := math.Max(minTempo, math.Min(maxTempo, m.tempo+delta))
	if err := m.controller.SetTempo(tempo); err != nil {
		m.setError(err)
		return
	}
	m.tempo = tempo
}

func (m *Model) changeRoot(delta int) {
	root := m.root.Transpose(delta)
	if err := m.controller.SetRootScale(m.tables.Name(root)); err != nil {
		m.setError(err)
		return
	}
	m.root = root
}

func (m *Model) report(err error) {
	if err != nil {
		m.setError(err)
		return
	}
	m.status = ""
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Riyaz - Vocal Pitch Trainer"))
	b.WriteString("\n")

	b.WriteString(m.viewPitch())
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Level %s %6.1f dB", levelMeter(m.level.DB, meterWidth), m.level.DB)))
	b.WriteString("\n")
	b.WriteString(m.viewHistory())
	b.WriteString("\n\n")
	b.WriteString(m.viewExercise())
	b.WriteString("\n")

	if m.status != "" {
		style := infoStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render("1-9 exercise • space play/pause • ←/→ skip • +/- tempo • [/] root • o loop • q quit"))
	return b.String()
}

func (m Model) viewPitch() string {
	j := m.stable
	if j == nil {
		j = m.current
	}
	if j == nil {
		if m.ended {
			return infoStyle.Render("Not listening")
		}
		return infoStyle.Render("Listening for audio...")
	}

	accuracy := lipgloss.NewStyle().Bold(true).Foreground(accuracyColor(j.Accuracy)).
		Render(fmt.Sprintf("%.1f%%", j.Accuracy))
	info := infoStyle.Render(fmt.Sprintf("Swara: %s | Frequency: %.2f Hz | Cents: %+.1f | Accuracy: ", j.Swara, j.Frequency, j.Cents))

	lines := []string{renderNote(j.Name, j.Octave), info + accuracy}
	if m.target != nil && m.current != nil {
		off := 1200 * math.Log2(m.current.Frequency/m.target.Frequency)
		lines = append(lines, infoStyle.Render(fmt.Sprintf("Target %s%d (%s): %+.0f cents away", m.target.Note, m.target.Octave, m.target.Swara, off)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewHistory() string {
	judgments := m.controller.History()
	if len(judgments) == 0 {
		return infoStyle.Render("History: no notes yet")
	}
	if len(judgments) > sparkWidth {
		judgments = judgments[len(judgments)-sparkWidth:]
	}
	accuracies := make([]float64, len(judgments))
	for i, j := range judgments {
		accuracies[i] = j.Accuracy
	}

	sum := m.controller.Summary()
	return infoStyle.Render("History ") + sparkline(accuracies) + "\n" +
		infoStyle.Render(fmt.Sprintf("Mean accuracy %.1f%% | Mean deviation %.1f cents | Mostly %s", sum.MeanAccuracy, sum.MeanAbsCents, sum.DominantNote))
}

func (m Model) viewExercise() string {
	st := m.controller.ExerciseStatus()

	var lines []string
	if st.State == exercise.Idle {
		lines = append(lines, "No exercise selected")
	} else {
		lines = append(lines, fmt.Sprintf("%s (%s) | Sa = %s | %s", st.Pattern.Name, st.Pattern.Level, st.RootName, st.State))

		steps := make([]string, len(st.Steps))
		for i, step := range st.Steps {
			label := fmt.Sprintf(" %s ", step.Swara)
			if i == st.Position {
				label = currentStepStyle.Render(label)
			}
			steps[i] = label
		}
		lines = append(lines, strings.Join(steps, ""))
	}

	loop := "off"
	if st.Loop {
		loop = "on"
	}
	lines = append(lines, fmt.Sprintf("Tempo %.0f BPM | Root %s | Loop %s", m.tempo, m.tables.Name(m.root), loop))

	for i, p := range m.patterns {
		if i >= 9 {
			break
		}
		lines = append(lines, infoStyle.Render(fmt.Sprintf("%d. %s", i+1, p.Name)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
