package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xlemi/riyaz/internal/exercise"
	"github.com/0xlemi/riyaz/internal/pitch"
)

func newExercisesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List the available exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := newCatalog(cfg)
			if err != nil {
				return err
			}
			return listExercises(cmd.OutOrStdout(), catalog.All())
		},
	}
}

// listExercises prints one row per pattern with its notes as swaras. The
// key column is the number that selects the pattern in practice mode.
func listExercises(w io.Writer, patterns []exercise.Pattern) error {
	mapper := pitch.DefaultMapper()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tID\tNAME\tLEVEL\tBEATS\tNOTES")
	for i, p := range patterns {
		key := "-"
		if i < 9 {
			key = fmt.Sprint(i + 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%s\n", key, p.ID, p.Name, p.Level, p.Beats, swaras(mapper, p.Degrees))
	}
	return tw.Flush()
}

func swaras(mapper *pitch.Mapper, degrees []string) string {
	tables := mapper.Tables()
	names := make([]string, len(degrees))
	for i, d := range degrees {
		names[i] = d
		if pc, err := mapper.ParseClass(d); err == nil {
			names[i] = tables.DegreeSwara(pc)
		}
	}
	return strings.Join(names, " ")
}
