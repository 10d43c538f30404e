package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/marlkit/marl"
	"github.com/marlkit/marl/pkg/adapters/fsstore"
	"github.com/marlkit/marl/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every stored document against the schema",
	Long: `Walk all collections the schema declares and report documents that
no longer satisfy their model: bad value shapes, violated constraints,
and failed object invariants.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		reg, err := marl.LoadSchema(schemaFile())
		if err != nil {
			fatal("Failed to load schema", err)
		}
		store := fsstore.New(fsstore.Config{
			Path:      dataDir,
			Logger:    slog.Default(),
			MustExist: true,
		})
		if err := store.Initialize(ctx); err != nil {
			fatal("Failed to open data directory", err)
		}

		problems := 0
		checked := 0
		for _, name := range reg.Models() {
			s, err := reg.Lookup(name)
			if err != nil {
				fatal("Failed to resolve model", err)
			}
			n, p, err := validateCollection(ctx, store, s)
			if err != nil {
				fatal("Failed to scan "+s.Collection(), err)
			}
			checked += n
			problems += p
		}

		fmt.Printf("checked %d documents, %d with problems\n", checked, problems)
		if problems > 0 {
			os.Exit(1)
		}
	},
}

func validateCollection(ctx context.Context, store *fsstore.Store, s *schema.Schema) (checked, problems int, err error) {
	cur, err := store.Find(ctx, s.Collection(), nil)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close()

	for cur.Next() {
		doc := cur.Document()
		checked++
		bad := false

		values := make(map[string]schema.Value)
		for _, attr := range s.Attrs() {
			field, _ := s.Field(attr)
			if field.Kind() == schema.ManyKind {
				continue
			}
			v, err := field.Decode(doc.Fields[attr])
			if err != nil {
				fmt.Printf("%s/%s %s: %v\n", s.Collection(), doc.Key, attr, err)
				bad = true
				continue
			}
			v, errs := field.Validate(v)
			for _, fe := range errs {
				fmt.Printf("%s/%s %s: %s\n", s.Collection(), doc.Key, attr, fe.Error())
			}
			if len(errs) > 0 {
				bad = true
				continue
			}
			values[attr] = v
		}
		if !bad {
			for _, fe := range s.CheckInvariant(values) {
				fmt.Printf("%s/%s: %s\n", s.Collection(), doc.Key, fe.Error())
				bad = true
			}
		}
		if bad {
			problems++
		}
	}
	return checked, problems, cur.Err()
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
