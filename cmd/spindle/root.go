package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/spindle/internal/cli"
	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "spindle",
	Short: "Spindle is a state runtime for single-owner view models",
	Long: `Spindle serializes Inputs into a versioned State, emits Events and supervises
side-jobs. The bundled counter demo can be driven from a REPL or over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "spindle.yaml", "Settings file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadOptions resolves settings from the config file, the environment and flags,
// in increasing precedence.
func loadOptions(cmd *cobra.Command) (cli.Options, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, err := config.LoadFile(path)
	if err != nil {
		return cli.Options{}, err
	}
	settings = settings.FromEnv()

	if cmd.Flags().Changed("log-level") {
		settings.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Lookup("strategy") != nil && cmd.Flags().Changed("strategy") {
		settings.Inputs.Strategy, _ = cmd.Flags().GetString("strategy")
	}
	if err := settings.Validate(); err != nil {
		return cli.Options{}, err
	}

	session, _ := cmd.Flags().GetString("session")
	return cli.Options{
		Settings:  settings,
		SessionID: session,
		Logger:    logging.New(settings.Level()),
	}, nil
}
