package cmd

import (
	"fmt"
	"io"

	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/tracing"
	"github.com/spf13/cobra"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded transition traces.",
}

var traceShowCmd = &cobra.Command{
	Use:   "show <file.sqlite3>",
	Short: "Print the transitions and dropped requests of a recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		trace, err := tracing.ReadTrace(cmd.Context(), reader)
		if err != nil {
			return err
		}

		printTrace(cmd.OutOrStdout(), trace)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceShowCmd)
}

func printTrace(w io.Writer, trace tracing.Trace) {
	fmt.Fprintf(w, "%d transitions\n", len(trace.Transitions))

	for _, t := range trace.Transitions {
		fmt.Fprintf(w, "  %10.1fms - %10.1fms  %-5s %d -> %d\n",
			t.StartMs, t.EndMs, t.TriggerKind, t.FromIndex, t.ToIndex)
	}

	fmt.Fprintf(w, "%d dropped requests\n", len(trace.Dropped))

	for _, d := range trace.Dropped {
		target := ""
		if d.TargetIndex >= 0 {
			target = fmt.Sprintf(" %d", d.TargetIndex)
		}

		fmt.Fprintf(w, "  %10.1fms  %s%s\n", d.TimeMs, d.TriggerKind, target)
	}
}
