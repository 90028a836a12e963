package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// levelInterval is how often level updates are forwarded to the UI
const levelInterval = 200 * time.Millisecond

// Sender is the part of tea.Program the listener needs
type Sender interface {
	Send(msg tea.Msg)
}

// Listener forwards session output to a running program as messages
type Listener struct {
	sender Sender

	mu        sync.Mutex
	lastLevel time.Time
}

// NewListener creates a listener sending to s
func NewListener(s Sender) *Listener {
	return &Listener{sender: s}
}

// OnJudgment sends a JudgmentMsg
func (l *Listener) OnJudgment(j pitch.Judgment) {
	l.sender.Send(JudgmentMsg(j))
}

// OnTarget sends a TargetMsg
func (l *Listener) OnTarget(t exercise.Target) {
	l.sender.Send(TargetMsg(t))
}

// OnLevel sends a LevelMsg, at most once per levelInterval
func (l *Listener) OnLevel(rms, db float64) {
	l.mu.Lock()
	if time.Since(l.lastLevel) < levelInterval {
		l.mu.Unlock()
		return
	}
	l.lastLevel = time.Now()
	l.mu.Unlock()

	l.sender.Send(LevelMsg{RMS: rms, DB: db})
}
