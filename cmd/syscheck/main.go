package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"syscheck/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "syscheck",
	Short: "Device prerequisite diagnostics dashboard",
	Long: `syscheck verifies the prerequisites a field deployment needs before it
can go live: a working camera, a position fix, QR scanning and a reachable
backend. It serves a live dashboard plus a JSON API, or runs the checks
once from the command line.`,
}

var rootConfigPath string

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "config.yaml", "path to configuration file (YAML)")
	rootCmd.AddCommand(
		newServeCmd(),
		newCheckCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("syscheck command failed")
	}
}
