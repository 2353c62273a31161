package cmd

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/bokamoso/signin/config"
	"github.com/bokamoso/signin/simulation"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	duration  time.Duration
	script    string
	record    bool
	logEvents bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay interactions against the carousel on a virtual clock.",
	Long: "`simulate --duration 30s --script \"next@7s,prev@7.2s,goto:2@12s\"` " +
		"mounts the carousel, applies each scripted request at its time and " +
		"prints every transition and dropped request.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := simulateOptions{}
		opts.duration, _ = cmd.Flags().GetDuration("duration")
		opts.script, _ = cmd.Flags().GetString("script")
		opts.record, _ = cmd.Flags().GetBool("record")
		opts.logEvents, _ = cmd.Flags().GetBool("events")

		b, flush, err := withTelemetry(cmd.Context(), simulation.MakeBuilder(), cfg)
		if err != nil {
			return err
		}
		defer flush()

		return runSimulate(cmd.OutOrStdout(), b, cfg, opts)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Duration("duration", 30*time.Second,
		"Virtual time to run for.")
	simulateCmd.Flags().String("script", "",
		"Comma-separated requests: next@T, prev@T, goto:I@T.")
	simulateCmd.Flags().Bool("record", false,
		"Record transitions into a SQLite file.")
	simulateCmd.Flags().Bool("events", false,
		"Also print every engine event.")
}

func runSimulate(
	out io.Writer,
	b simulation.Builder,
	cfg config.Config,
	opts simulateOptions,
) error {
	steps, err := parseScript(opts.script)
	if err != nil {
		return err
	}

	b = b.WithConfig(cfg).WithLogger(log.New(out, "", 0))
	if opts.record {
		b = b.WithRecorder()
	}

	if opts.logEvents {
		b = b.WithEventLogging()
	}

	s, err := b.BuildVirtual()
	if err != nil {
		return err
	}

	runErr := replay(s, steps, opts.duration)

	if err := s.Terminate(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		return runErr
	}

	c := s.Controller()
	fmt.Fprintf(out, "%v, final slide %d: %q by %s\n",
		opts.duration, c.CurrentIndex(),
		c.ActiveSlide().Quote, c.ActiveSlide().Author)

	if s.RecordFile() != "" {
		fmt.Fprintf(out, "trace written to %s\n", s.RecordFile())
	}

	return nil
}

func replay(
	s *simulation.Simulation,
	steps []scriptStep,
	duration time.Duration,
) error {
	for _, step := range steps {
		if step.At > duration {
			break
		}

		if err := s.RunUntil(step.At); err != nil {
			return err
		}

		if err := step.apply(s.Controller()); err != nil {
			return fmt.Errorf("at %v: %w", step.At, err)
		}
	}

	return s.RunUntil(duration)
}
