package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/spindle/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the counter view model over HTTP",
	Long: `Exposes the counter demo as a JSON API: POST /inputs, GET /state, the
/states and /events SSE streams, /health, /info and, unless disabled, /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			opts.Settings.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunServer(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().StringP("session", "s", "", "Session ID to restore and save the State under")
	serveCmd.Flags().String("strategy", "", "Input strategy: fifo, lifo or parallel")
}
