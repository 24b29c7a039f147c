package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/logging"
)

// Version is set at build time via -ldflags "-X github.com/lemans-dev/sdr-whatsapp/cmd.Version=v1.0.0"
var Version = "1.0.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "sdr",
	Short:        "WhatsApp SDR bot for Le Mans Loteamentos e Construtora",
	Long:         "Receives WhatsApp messages from Evolution API or Twilio, buffers message bursts, routes them to specialised LLM agents and replies.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sdr %s\n", Version)
		},
	}
}

// loadConfig reads .env and the environment and installs the default logger.
func loadConfig() (*config.Config, error) {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose || cfg.Server.Debug {
		level = "DEBUG"
	}
	logging.Setup(level, cfg.Log.Format)
	return cfg, nil
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
