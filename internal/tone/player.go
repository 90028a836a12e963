package tone

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player sends an Oscillator to the default output device
type Player struct {
	osc    *Oscillator
	ctx    *oto.Context
	player *oto.Player

	mu     sync.Mutex
	closed bool
}

// NewPlayer opens the output device and starts streaming silence. Only one
// oto context may exist per process.
func NewPlayer(sampleRate int, volume float64) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	osc := NewOscillator(sampleRate, volume)
	p := &Player{osc: osc, ctx: ctx, player: ctx.NewPlayer(osc)}
	p.player.Play()
	return p, nil
}

// Play sounds frequency for d
func (p *Player) Play(frequency float64, d time.Duration) {
	p.osc.Note(frequency, d)
}

// Silence cuts the current note short
func (p *Player) Silence() {
	p.osc.Note(0, 0)
}

// Close stops playback. The oto context itself lives until the process
// exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.player.Close()
}
