package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "sigaa-cli",
	Short: "sigaa-cli reads grades, attendance and enrollments off the SIGAA academic portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)
		tel, err := telemetry.SetupFromFile(cmd.Context(), "sigaa-cli", *telemetryPath)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		otelTelemetry = tel
		return nil
	},
}

var (
	configPath    *string
	telemetryPath *string
	dumpDir       *string
	verbose       *bool
)

var otelTelemetry telemetry.Telemetry

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "config.json5", "The config file, values in <name>.local.json5 take priority.")
	telemetryPath = flags.String("telemetry", "telemetry.json5", "The OTLP exporter config, exporting is disabled when it doesn't exist.")
	dumpDir = flags.String("dump", "", "Writes every HTTP exchange with the portal into this directory.")
	verbose = flags.BoolP("verbose", "v", false, "Logs debug output.")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	shutdownErr := otelTelemetry.Shutdown(context.Background())
	if shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "telemetry shutdown:", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
