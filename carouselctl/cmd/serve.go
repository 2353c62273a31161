package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bokamoso/signin/simulation"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the carousel on the wall clock with a monitoring API.",
	Long: "`serve` mounts the carousel, prefetches its images from the asset " +
		"base URL and serves the monitoring API until interrupted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			cfg.MonitorPort = port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := simulation.MakeBuilder().
			WithConfig(cfg).
			WithLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags)).
			WithMonitor()

		if open, _ := cmd.Flags().GetBool("open"); open {
			b = b.WithBrowser()
		}

		b, flush, err := withTelemetry(ctx, b, cfg)
		if err != nil {
			return err
		}
		defer flush()

		s, err := b.BuildRealTime()
		if err != nil {
			return err
		}

		serveErr := s.Serve(ctx)
		if err := s.Terminate(); err != nil && serveErr == nil {
			serveErr = err
		}

		if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
			return serveErr
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "carousel stopped")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0,
		"Monitor port, overriding SIGNIN_CAROUSEL_MONITOR_PORT.")
	serveCmd.Flags().Bool("open", false,
		"Open the monitor page in a browser.")
}
