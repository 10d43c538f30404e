package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const starterSchema = `# Marl model declarations.
models:
  - name: note
    attrs:
      - name: title
        kind: text
        required: true
        maxlength: 200
      - name: body
        kind: text
      - name: created
        kind: datetime
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a marl data directory",
	Long:  `Create the data directory and a starter schema file if they do not exist.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			fatal("Failed to create data directory", err)
		}

		path := schemaFile()
		if _, err := os.Stat(path); err == nil {
			fmt.Println("Schema file already exists:", path)
			return
		}
		if err := os.WriteFile(path, []byte(starterSchema), 0o644); err != nil {
			fatal("Failed to write schema file", err)
		}
		fmt.Println("Initialized marl data directory in", dataDir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
