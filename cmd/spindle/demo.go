package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/spindle/internal/cli"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Drive the counter view model from a REPL",
	Long: `Starts the counter demo and reads commands from stdin, one per line:
inc [n] [delay], dec [n] [delay], multi [delay], reset, fail,
tick start [interval], tick stop, :state and quit.

With --session and a Redis address the State survives restarts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunSession(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Bool("json", false, "Read JSON string lines and write JSON frames")
	demoCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and system messages")
	demoCmd.Flags().StringP("session", "s", "", "Session ID to restore and save the State under")
	demoCmd.Flags().String("strategy", "", "Input strategy: fifo, lifo or parallel")

	rootCmd.RunE = demoCmd.RunE
	rootCmd.Flags().AddFlagSet(demoCmd.Flags())
}
