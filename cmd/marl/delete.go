package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <model> <key>",
	Short: "Delete one document",
	Long: `Delete a document through the model layer, so delete cascades
declared in the schema propagate to referenced documents.`,
	Args: cobra.ExactArgs(2),
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
		if err := inst.Delete(ctx); err != nil {
			fatal("Failed to delete document", err)
		}
		fmt.Println("Deleted", args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
