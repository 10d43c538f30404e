package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marlkit/marl/pkg/adapters/fsstore"
)

var watchCmd = &cobra.Command{
	Use:   "watch [collection]",
	Short: "Stream document change events until interrupted",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		collection := ""
		if len(args) == 1 {
			collection = args[0]
		}

		store := fsstore.New(fsstore.Config{
			Path:      dataDir,
			Logger:    slog.Default(),
			MustExist: true,
		})
		if err := store.Initialize(ctx); err != nil {
			fatal("Failed to open data directory", err)
		}

		events, err := store.Watch(ctx, collection)
		if err != nil {
			fatal("Failed to start watcher", err)
		}

		for e := range events {
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
