// Command riyaz is a pitch trainer for singers: it listens to the
// microphone, shows the note being sung and how far it is from the grid,
// and plays scale exercises to sing along with.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/0xlemi/riyaz/internal/config"
	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/pitch"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "riyaz: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "riyaz",
		Short:         "Pitch trainer for singers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newPracticeCmd(opts),
		newAnalyzeCmd(opts),
		newExercisesCmd(opts),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, opts *globalOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// loadConfig reads the config file, or the defaults when none was given,
// and applies the global flag overrides
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %q not found", o.configPath)
			}
			return nil, err
		}
		cfg = loaded
	}

	if o.logLevel != "" {
		cfg.LogLevel = config.LogLevel(o.logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.Slog()}))
}

// ── Pipeline ───────────────────────────────────────────────────────────────────

// newCatalog returns the built-in exercises plus the ones from the config
func newCatalog(cfg *config.Config) (*exercise.Catalog, error) {
	catalog := exercise.NewCatalog()
	for _, p := range cfg.Exercise.Patterns {
		if err := catalog.Add(p); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// newAnalyser builds the estimator and judge described by the pitch section
func newAnalyser(cfg *config.Config) (pitch.Estimator, *pitch.Judge, error) {
	estimator, err := pitch.NewEstimator(cfg.Pitch.Method, cfg.Pitch.Params())
	if err != nil {
		return nil, nil, fmt.Errorf("create estimator: %w", err)
	}

	mapper, err := pitch.NewMapper(cfg.Pitch.ReferenceHz, pitch.DefaultTables())
	if err != nil {
		return nil, nil, fmt.Errorf("create mapper: %w", err)
	}

	judge, err := pitch.NewJudge(mapper, cfg.Pitch.AccuracyBasis)
	if err != nil {
		return nil, nil, fmt.Errorf("create judge: %w", err)
	}
	return estimator, judge, nil
}
