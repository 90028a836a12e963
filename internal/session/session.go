// Package session runs one practice session: it pulls frames from an audio
// source, judges their pitch, keeps the recent history and plays exercise
// targets on a tempo clock.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xlemi/riyaz/internal/audio"
	"github.com/0xlemi/riyaz/internal/clock"
	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/history"
	"github.com/0xlemi/riyaz/internal/observe"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// Errors
var (
	ErrNotRunning     = errors.New("session not running")
	ErrAlreadyRunning = errors.New("session already running")
)

// DefaultQueueDepth is the number of frames buffered between capture and
// analysis
const DefaultQueueDepth = 2

// targetQueue bounds the targets waiting for the listener
const targetQueue = 16

// Listener receives the session's output. Judgments and levels arrive from
// the analysis goroutine in frame order; targets arrive from a separate
// goroutine in position order. The two streams are not ordered relative to
// each other.
type Listener interface {
	OnJudgment(j pitch.Judgment)
	OnTarget(t exercise.Target)
	OnLevel(rms, db float64)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Judgment func(pitch.Judgment)
	Target   func(exercise.Target)
	Level    func(rms, db float64)
}

func (l ListenerFuncs) OnJudgment(j pitch.Judgment) {
	if l.Judgment != nil {
		l.Judgment(j)
	}
}

func (l ListenerFuncs) OnTarget(t exercise.Target) {
	if l.Target != nil {
		l.Target(t)
	}
}

func (l ListenerFuncs) OnLevel(rms, db float64) {
	if l.Level != nil {
		l.Level(rms, db)
	}
}

// Option configures a Session
type Option func(*Session)

// WithListener sets the receiver of judgments, targets and levels
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithClock sets the clock for judgment timestamps and exercise ticks
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metric instruments
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithHistoryCapacity sets how many judgments are kept
func WithHistoryCapacity(n int) Option {
	return func(s *Session) { s.history = history.New(n) }
}

// WithQueueDepth sets the capture queue depth
func WithQueueDepth(n int) Option {
	return func(s *Session) { s.queueDepth = max(1, n) }
}

// WithOctave sets the octave of the exercise root
func WithOctave(octave int) Option {
	return func(s *Session) { s.octave = octave }
}

// WithBackpressure makes capture wait for analysis instead of dropping the
// oldest queued frame. Use it for file input, where every frame matters and
// nothing is lost by waiting.
func WithBackpressure() Option {
	return func(s *Session) { s.backpressure = true }
}

// Session owns the pitch pipeline and the exercise sequencer. The history
// and sequencer state are only changed by the session's own goroutines and
// by its control methods; readers get snapshots.
type Session struct {
	source       audio.Source
	estimator    pitch.Estimator
	judge        *pitch.Judge
	listener     Listener
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *observe.Metrics
	history      *history.Buffer
	sequencer    *exercise.Sequencer
	queueDepth   int
	octave       int
	backpressure bool
	targets      chan exercise.Target

	seq uint64 // owned by the analysis goroutine

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates a stopped session
func New(source audio.Source, estimator pitch.Estimator, judge *pitch.Judge, opts ...Option) *Session {
	s := &Session{
		source:     source,
		estimator:  estimator,
		judge:      judge,
		listener:   ListenerFuncs{},
		clock:      clock.Real(),
		logger:     slog.Default(),
		history:    history.New(history.DefaultCapacity),
		queueDepth: DefaultQueueDepth,
		octave:     exercise.DefaultOctave,
		targets:    make(chan exercise.Target, targetQueue),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.sequencer = exercise.NewSequencer(s.enqueueTarget,
		exercise.WithClock(s.clock),
		exercise.WithMapper(judge.Mapper()),
		exercise.WithOctave(s.octave),
		exercise.WithLogger(s.logger),
	)
	return s
}

// Start acquires the source, clears the history and starts the pipeline.
// The pipeline runs until Stop, until ctx is cancelled, or until the source
// reports io.EOF.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if err := s.source.Start(); err != nil {
		return fmt.Errorf("start source: %w", err)
	}

	s.history.Reset()
	s.seq = 0
	for len(s.targets) > 0 {
		<-s.targets
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.err = nil
	s.running = true

	frames := make(chan audio.Frame, s.queueDepth)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.capture(gctx, frames) })
	g.Go(func() error { return s.analyze(gctx, frames) })

	var dispatcher sync.WaitGroup
	dispatcher.Add(1)
	go func() {
		defer dispatcher.Done()
		s.dispatch(runCtx)
	}()

	go func() {
		err := g.Wait()
		cancel()
		dispatcher.Wait()
		s.finish(err, done)
	}()

	s.metrics.ActiveSessions.Add(ctx, 1)
	s.logger.Info("session started", "queue_depth", s.queueDepth)
	return nil
}

// Stop cancels the pipeline and the pending exercise tick, waits for the
// in-flight frame and releases the source. Stopping a stopped session does
// nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// finish releases what Start acquired; it runs once per Start
func (s *Session) finish(runErr error, done chan struct{}) {
	s.sequencer.Stop()
	if err := s.source.Stop(); err != nil {
		s.logger.Warn("release audio source", "err", err)
		runErr = errors.Join(runErr, fmt.Errorf("stop source: %w", err))
	}
	if runErr != nil {
		s.logger.Error("session failed", "err", runErr)
	} else {
		s.logger.Info("session stopped", "judgments", s.seq)
	}

	s.metrics.ActiveSessions.Add(context.Background(), -1)

	s.mu.Lock()
	s.running = false
	s.err = runErr
	close(done)
	s.mu.Unlock()
}

// capture moves frames from the source into the queue
func (s *Session) capture(ctx context.Context, frames chan<- audio.Frame) error {
	for {
		frame, err := s.source.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				close(frames)
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}

		if s.backpressure {
			select {
			case frames <- frame:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		// Keep latency bounded: when analysis falls behind, the oldest
		// queued frame makes room for the newest
		for queued := false; !queued; {
			select {
			case frames <- frame:
				queued = true
			case <-ctx.Done():
				return nil
			default:
				select {
				case <-frames:
					s.metrics.DroppedFrames.Add(ctx, 1)
				default:
				}
			}
		}
	}
}

// analyze judges queued frames in arrival order
func (s *Session) analyze(ctx context.Context, frames <-chan audio.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := s.process(ctx, frame); err != nil {
				return err
			}
		}
	}
}

// process runs one frame through estimation and judgment
func (s *Session) process(ctx context.Context, frame audio.Frame) error {
	rms, db := audio.Level(frame)
	s.listener.OnLevel(rms, db)

	start := time.Now()
	estimate, err := s.estimator.Estimate(frame)
	s.metrics.RecordFrame(ctx, estimate.Voiced(), time.Since(start))
	if err != nil {
		return fmt.Errorf("estimate pitch: %w", err)
	}
	if !estimate.Voiced() {
		return nil
	}

	j, err := s.judge.Judge(estimate)
	if err != nil {
		s.logger.Debug("judge frame", "err", err, "frequency", estimate.Frequency)
		return nil
	}
	s.seq++
	j.Seq = s.seq
	j.Time = s.clock.Now()
	j.Offset = frame.Offset

	s.history.Append(j)
	s.metrics.RecordJudgment(ctx, j.Name, j.Accuracy)
	s.listener.OnJudgment(j)
	return nil
}

// enqueueTarget is the sequencer's emit hook. It runs under the sequencer
// lock, so it never blocks.
func (s *Session) enqueueTarget(t exercise.Target) {
	select {
	case s.targets <- t:
	default:
		s.logger.Warn("exercise target dropped", "pattern", t.Pattern, "position", t.Position)
	}
}

// dispatch delivers targets to the listener until ctx is done
func (s *Session) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.targets:
			s.metrics.RecordTarget(ctx, t.Pattern)
			s.listener.OnTarget(t)
		}
	}
}

// Running reports whether the pipeline is running
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the current run ends. Before the first Start it is
// already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Err reports why the last run ended; nil for Stop, cancellation and EOF
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// History returns the recent judgments, oldest first
func (s *Session) History() []pitch.Judgment {
	return s.history.Snapshot()
}

// Summary summarises the recent judgments
func (s *Session) Summary() history.Summary {
	return s.history.Summary()
}
