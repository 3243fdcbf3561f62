package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicrew/backend/internal/infrastructure/observability"
	"github.com/medicrew/backend/pkg/config"
)

const Version = "0.1.0"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "medicrew",
	Short: "MediCrew - AI medical consultation team",
	Long: `MediCrew runs a team of AI clinicians (triage, general practice and
specialists) over reported symptoms and keeps the patient portal's storage.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(consultCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// loadConfig reads configuration and sends logs to stderr so stdout only
// carries command output
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-cli", cfg.Server.Env, logLevel)
	observability.SetLogOutput(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}, level)
	return cfg, nil
}
