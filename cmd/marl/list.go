package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list <model>",
	Short: "List all documents of a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fatal("Failed to open database", err)
		}

		cur, err := db.Find(ctx, args[0], nil)
		if err != nil {
			fatal("Failed to list documents", err)
		}
		instances, err := cur.All()
		if err != nil {
			fatal("Failed to read documents", err)
		}

		if listJSON {
			out := make([]map[string]any, 0, len(instances))
			for _, inst := range instances {
				out = append(out, encodeInstance(inst))
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(out); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, inst := range instances {
			fmt.Println(inst.Key(), summaryOf(inst))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
