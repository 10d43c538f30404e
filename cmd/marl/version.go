package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marlkit/marl"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of marl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marl version %s\n", marl.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
