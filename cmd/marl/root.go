package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marlkit/marl"
)

var (
	verbose    bool
	dataDir    string
	schemaPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marl",
	Short: "A declarative object-document mapper over plain YAML files",
	Long: `Marl maps declared models onto schemaless document collections.
The CLI works against a data directory of YAML documents and a schema
file describing the models stored in it.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := marl.DefaultLogger(verbose)
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", ".", "Data directory")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Schema file (default <dir>/schema.yaml)")
}

func schemaFile() string {
	if schemaPath != "" {
		return schemaPath
	}
	return filepath.Join(dataDir, "schema.yaml")
}

// openDB loads the schema file and opens the data directory.
func openDB(ctx context.Context) (*marl.DB, error) {
	reg, err := marl.LoadSchema(schemaFile())
	if err != nil {
		return nil, err
	}
	return marl.OpenDir(ctx, dataDir, reg,
		marl.WithMustExist(true),
		marl.WithLogger(slog.Default()),
	)
}
