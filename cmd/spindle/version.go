package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/spindle"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of spindle",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("spindle version %s\n", strings.TrimSpace(spindle.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
