// Package cmd provides the command-line interface for the sign-in carousel.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bokamoso/signin/config"
	"github.com/bokamoso/signin/simulation"
	"github.com/bokamoso/signin/telemetry"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carouselctl",
	Short: "carouselctl runs and inspects the sign-in screen carousel.",
	Long: `carouselctl runs and inspects the sign-in screen carousel. ` +
		`It can replay scripted interactions on a virtual clock, serve a ` +
		`live carousel with a monitoring API, and check slide decks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"Load SIGNIN_CAROUSEL_* settings from this file if it exists.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")

	return config.Load(envFile)
}

// withTelemetry adds span export to b when an endpoint is configured. The
// returned function flushes pending spans.
func withTelemetry(
	ctx context.Context,
	b simulation.Builder,
	cfg config.Config,
) (simulation.Builder, func(), error) {
	if cfg.OTelEndpoint == "" {
		return b, func() {}, nil
	}

	provider, shutdown, err := telemetry.Setup(ctx,
		cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return b, nil, fmt.Errorf("telemetry: %w", err)
	}

	flush := func() {
		if err := shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}

	return b.WithOTel(provider), flush, nil
}
