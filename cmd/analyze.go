package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/0xlemi/riyaz/internal/audio"
	"github.com/0xlemi/riyaz/internal/config"
	"github.com/0xlemi/riyaz/internal/history"
	"github.com/0xlemi/riyaz/internal/pitch"
	"github.com/0xlemi/riyaz/internal/session"
)

type analyzeOptions struct {
	json bool
	hop  int
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze FILE.wav",
		Short: "Judge the pitch of a recording",
		Long: `Run the pitch pipeline over a WAV file and print one line per voiced frame,
followed by a summary. When stdout is not a terminal the summary goes to
stderr so the output stays one judgment per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}

			// Diagnostics only; stdout carries the results.
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			out := cmd.OutOrStdout()
			summaryOut := out
			if f, ok := out.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
				summaryOut = cmd.ErrOrStderr()
			}

			source := audio.NewWAVSource(args[0], cfg.Audio.FrameSize, opts.hop)
			return runAnalyze(cmd.Context(), cfg, source, newJudgmentWriter(out, opts.json), summaryOut,
				session.WithLogger(logger))
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print judgments as JSON lines")
	cmd.Flags().IntVar(&opts.hop, "hop", 0, "samples between frame starts; defaults to the frame size")
	return cmd
}

// runAnalyze drives a session over source to the end of the input and
// writes the summary of every judgment
func runAnalyze(ctx context.Context, cfg *config.Config, source audio.Source, w *judgmentWriter, summaryOut io.Writer, opts ...session.Option) error {
	estimator, judge, err := newAnalyser(cfg)
	if err != nil {
		return err
	}

	// The session history is a sliding window; the summary covers the whole
	// file, so judgments are collected here as well.
	var all []pitch.Judgment
	listener := session.ListenerFuncs{
		Judgment: func(j pitch.Judgment) {
			all = append(all, j)
			w.Write(j)
		},
	}

	opts = append(opts,
		session.WithListener(listener),
		session.WithBackpressure(),
		session.WithHistoryCapacity(cfg.History.Capacity),
	)
	sess := session.New(source, estimator, judge, opts...)
	if err := sess.Start(ctx); err != nil {
		return err
	}
	<-sess.Done()

	if err := sess.Err(); err != nil {
		return err
	}
	if err := w.Err(); err != nil {
		return fmt.Errorf("write judgments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	writeSummary(summaryOut, history.Summarize(all))
	return nil
}

func writeSummary(w io.Writer, s history.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "no pitched frames found")
		return
	}
	fmt.Fprintf(w, "%d judgments, mean accuracy %.1f%%, mean deviation %.1f¢ (σ %.1f¢), mostly %s (%.0f%%)\n",
		s.Count, s.MeanAccuracy, s.MeanAbsCents, s.CentsStdDev, s.DominantNote, 100*s.DominantShare)
}

// judgmentWriter prints judgments as text or JSON lines and keeps the
// first write error
type judgmentWriter struct {
	w    io.Writer
	enc  *json.Encoder
	mu   sync.Mutex
	err  error
	json bool
}

func newJudgmentWriter(w io.Writer, asJSON bool) *judgmentWriter {
	return &judgmentWriter{w: w, enc: json.NewEncoder(w), json: asJSON}
}

// judgmentRecord is the JSON form of a judgment
type judgmentRecord struct {
	Offset         float64 `json:"offset_s"`
	Note           string  `json:"note"`
	Octave         int     `json:"octave"`
	Swara          string  `json:"swara"`
	Frequency      float64 `json:"frequency_hz"`
	Cents          float64 `json:"cents"`
	ReferenceCents float64 `json:"reference_cents"`
	Accuracy       float64 `json:"accuracy"`
	Confidence     float64 `json:"confidence"`
}

func (jw *judgmentWriter) Write(j pitch.Judgment) {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.err != nil {
		return
	}
	if jw.json {
		jw.err = jw.enc.Encode(judgmentRecord{
			Offset:         j.Offset.Seconds(),
			Note:           j.Name,
			Octave:         j.Octave,
			Swara:          j.Swara,
			Frequency:      j.Frequency,
			Cents:          j.Cents,
			ReferenceCents: j.ReferenceCents,
			Accuracy:       j.Accuracy,
			Confidence:     j.Confidence,
		})
		return
	}
	_, jw.err = fmt.Fprintf(jw.w, "%8s  %s\n", formatOffset(j.Offset), j)
}

func (jw *judgmentWriter) Err() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.err
}

// formatOffset renders a stream position as m:ss.mmm
func formatOffset(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
