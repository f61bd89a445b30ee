package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linuxgroove/market-trends/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the stored data files against the JSON Schemas",
	Long: "Validate manifest.json, combined.json, and every monthly partition file " +
		"under --data-dir against the schemas shipped in schemas/.",
	RunE: runValidate,
}

var validateSchemaDir string

func init() {
	validateCmd.Flags().StringVar(&validateSchemaDir, "schema-dir", "", "Directory holding the JSON Schemas (default: auto-detected schemas/)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	schemaDir := validateSchemaDir
	if schemaDir == "" {
		schemaDir = schemas.DefaultDir()
	}
	if schemaDir == "" {
		return fmt.Errorf("schemas directory not found; pass --schema-dir")
	}

	results, err := schemas.ValidateDataDir(schemaDir, dataDir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(os.Stdout, "No data files found under %s\n", dataDir)
		return nil
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stdout, "FAIL %s\n     %v\n", r.Path, r.Err)
			continue
		}
		fmt.Fprintf(os.Stdout, "OK   %s\n", r.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(results))
	}
	fmt.Fprintf(os.Stdout, "All %d file(s) valid\n", len(results))
	return nil
}
