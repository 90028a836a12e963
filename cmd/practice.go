package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/0xlemi/riyaz/internal/audio"
	"github.com/0xlemi/riyaz/internal/config"
	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/observe"
	"github.com/0xlemi/riyaz/internal/pitch"
	"github.com/0xlemi/riyaz/internal/session"
	"github.com/0xlemi/riyaz/internal/tone"
	"github.com/0xlemi/riyaz/internal/ui"
)

type practiceOptions struct {
	exercise string
	root     string
	tempo    float64
	simulate float64
	tone     bool
	logFile  string
}

func newPracticeCmd(global *globalOptions) *cobra.Command {
	opts := &practiceOptions{}

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Sing along with live pitch feedback",
		Long: `Listen to the microphone and show the sung note, its swara and how far it
is from the nearest note. Keys 1-9 load an exercise, space plays and pauses
it, [ and ] change the root, + and - change the tempo, o toggles looping
and q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			applyPracticeFlags(cmd, cfg, opts)
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runPractice(cmd.Context(), cfg, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.exercise, "exercise", "e", "", "exercise to load at startup (see 'riyaz exercises')")
	fs.StringVarP(&opts.root, "root", "r", "", "root note (Sa) of the exercise, e.g. C or F#")
	fs.Float64VarP(&opts.tempo, "tempo", "t", 0, "exercise tempo in beats per minute")
	fs.Float64Var(&opts.simulate, "simulate", 0, "use a synthetic tone of this frequency (Hz) instead of the microphone")
	fs.BoolVar(&opts.tone, "tone", false, "play each exercise note through the speakers")
	fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file; logs are discarded when unset")
	return cmd
}

// applyPracticeFlags copies the flags the user set over the config values
func applyPracticeFlags(cmd *cobra.Command, cfg *config.Config, opts *practiceOptions) {
	fs := cmd.Flags()
	if fs.Changed("root") {
		cfg.Exercise.Root = opts.root
	}
	if fs.Changed("tempo") {
		cfg.Exercise.TempoBPM = opts.tempo
	}
	if fs.Changed("tone") {
		cfg.Tone.Enabled = opts.tone
	}
}

func runPractice(parent context.Context, cfg *config.Config, opts *practiceOptions) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("practice needs an interactive terminal; use 'riyaz analyze' for files")
	}

	// The alternate screen owns stdout, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics have to exist before the session asks for the default set.
	if cfg.Metrics.ListenAddr != "" {
		shutdown, err := serveMetrics(cfg.Metrics.ListenAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	catalog, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	patterns := catalog.All()
	if cfg.Exercise.Loop {
		for i := range patterns {
			patterns[i].Loop = true
		}
	}

	estimator, judge, err := newAnalyser(cfg)
	if err != nil {
		return err
	}
	root, err := judge.Mapper().ParseClass(cfg.Exercise.Root)
	if err != nil {
		return fmt.Errorf("exercise root: %w", err)
	}

	source := newPracticeSource(cfg, opts)

	listeners := fanout{}
	if cfg.Tone.Enabled {
		player, err := tone.NewPlayer(cfg.Audio.SampleRate, cfg.Tone.Volume)
		if err != nil {
			return err
		}
		defer player.Close()
		listeners = append(listeners, session.ListenerFuncs{
			Target: func(t exercise.Target) { player.Play(t.Frequency, t.Duration) },
		})
	}

	sess := session.New(source, estimator, judge,
		session.WithListener(&listeners),
		session.WithLogger(logger),
		session.WithHistoryCapacity(cfg.History.Capacity),
		session.WithQueueDepth(cfg.Audio.QueueDepth),
		session.WithOctave(cfg.Exercise.Octave),
	)
	if err := sess.SetTempo(cfg.Exercise.TempoBPM); err != nil {
		return err
	}
	if opts.exercise != "" {
		p, err := lookupPattern(patterns, opts.exercise)
		if err != nil {
			return err
		}
		if err := sess.SelectExercise(p, cfg.Exercise.Root); err != nil {
			return err
		}
	}

	model := ui.NewModel(sess, patterns, root, cfg.Exercise.TempoBPM)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	listeners = append(listeners, ui.NewListener(program))

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start listening: %w", err)
	}
	defer sess.Stop()

	go func() {
		<-sess.Done()
		program.Send(ui.SessionEndedMsg{Err: sess.Err()})
	}()

	logger.Info("practice started",
		"source", sourceName(opts),
		"method", cfg.Pitch.Method,
		"reference_hz", cfg.Pitch.ReferenceHz,
		"root", cfg.Exercise.Root,
		"tempo", cfg.Exercise.TempoBPM,
	)

	_, runErr := program.Run()
	sess.Stop()

	// A signal ends the program the same way q does
	if errors.Is(runErr, tea.ErrInterrupted) || (errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil) {
		runErr = nil
	}
	if runErr != nil {
		return fmt.Errorf("run ui: %w", runErr)
	}

	summary := sess.Summary()
	logger.Info("practice finished",
		"judgments", summary.Count,
		"mean_accuracy", summary.MeanAccuracy,
		"dominant_note", summary.DominantNote,
	)
	return nil
}

// newPracticeSource returns the microphone, or a tone generator paced in
// real time when --simulate is given
func newPracticeSource(cfg *config.Config, opts *practiceOptions) audio.Source {
	if opts.simulate > 0 {
		gen := audio.NewGenerator(cfg.Audio.SampleRate, cfg.Audio.FrameSize, opts.simulate)
		gen.Pace(realTime)
		return gen
	}

	capturer := audio.NewPortAudioCapturer(cfg.Audio.FrameSize, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.QueueDepth)
	capturer.SetAmplification(float32(cfg.Audio.Amplification))
	return capturer
}

// realTime waits for as long as the frame lasts
func realTime(ctx context.Context, f audio.Frame) error {
	t := time.NewTimer(time.Duration(f.Duration() * float64(time.Second)))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func sourceName(opts *practiceOptions) string {
	if opts.simulate > 0 {
		return fmt.Sprintf("simulated %gHz", opts.simulate)
	}
	return "microphone"
}

func lookupPattern(patterns []exercise.Pattern, id string) (exercise.Pattern, error) {
	for _, p := range patterns {
		if p.ID == id {
			return p, nil
		}
	}
	return exercise.Pattern{}, fmt.Errorf("%w: %q", exercise.ErrUnknownPattern, id)
}

// serveMetrics exposes the Prometheus endpoint. The returned
// function flushes the meter provider and closes the server.
func serveMetrics(addr string, logger *slog.Logger) (func(), error) {
	provider, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "err", err)
		}
	}()
	logger.Info("metrics endpoint listening", "addr", ln.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "err", err)
		}
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("meter provider shutdown", "err", err)
		}
	}, nil
}

// fanout delivers session output to several listeners in order. It is
// filled before the session starts and only read afterwards.
type fanout []session.Listener

func (f *fanout) OnJudgment(j pitch.Judgment) {
	for _, l := range *f {
		l.OnJudgment(j)
	}
}

func (f *fanout) OnTarget(t exercise.Target) {
	for _, l := range *f {
		l.OnTarget(t)
	}
}

func (f *fanout) OnLevel(rms, db float64) {
	for _, l := range *f {
		l.OnLevel(rms, db)
	}
}
