package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var getCmd = &cobra.Command{
	Use:   "get <model> <key>",
	Short: "Print one document",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fatal("Failed to open database", err)
		}

		inst, err := db.Get(ctx, args[0], args[1])
		if err != nil {
			fatal("Failed to get document", err)
		}

		data, err := yaml.Marshal(encodeInstance(inst))
		if err != nil {
			fatal("Failed to render document", err)
		}
		fmt.Fprint(os.Stdout, string(data))
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
