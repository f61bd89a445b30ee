// Package schemas validates the on-disk data artifacts (partition files,
// manifest.json, combined.json) against the JSON Schemas shipped under
// schemas/.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema file names under the schemas directory.
const (
	PartitionSchema = "partition.schema.json"
	ManifestSchema  = "manifest.schema.json"
	CombinedSchema  = "combined.schema.json"
)

// DefaultDir locates the schemas directory relative to the working
// directory, walking up a couple of levels so the validate command works
// from subdirectories too. Returns "" when none is found.
func DefaultDir() string {
	for _, candidate := range []string{
		"schemas",
		filepath.Join("..", "schemas"),
		filepath.Join("..", "..", "schemas"),
	} {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs
		}
	}
	return ""
}

// FieldError is a single schema violation at one field path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports every schema violation found in one document.
type ValidationError struct {
	Path   string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed validation:\n", e.Path)
	for i, fe := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, fe.Field, fe.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ValidateFile validates one JSON document against one schema file.
// Schemas are loaded by file reference so relative $ref between schema
// files resolves.
func ValidateFile(schemaPath, docPath string) error {
	schemaAbs, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	docAbs, err := filepath.Abs(docPath)
	if err != nil {
		return fmt.Errorf("failed to resolve document path: %w", err)
	}
	if _, err := os.Stat(docAbs); err != nil {
		return fmt.Errorf("document not readable: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewReferenceLoader("file://"+filepath.ToSlash(schemaAbs)),
		gojsonschema.NewReferenceLoader("file://"+filepath.ToSlash(docAbs)),
	)
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", schemaAbs, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Path: docPath, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// Result is the validation outcome for one data file.
type Result struct {
	Path string
	Err  error // nil when the file is valid
}

// Ok reports whether every result passed.
func Ok(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// ValidateDataDir checks every artifact under dataDir: manifest.json and
// combined.json at the top level, and each source's monthly partition
// files one level down. Files the store never writes (absent manifest,
// empty data dir) are simply not reported. The returned error covers only
// traversal failures; per-file outcomes are in the results.
func ValidateDataDir(schemaDir, dataDir string) ([]Result, error) {
	var results []Result

	for _, top := range []struct{ file, schema string }{
		{"manifest.json", ManifestSchema},
		{"combined.json", CombinedSchema},
	} {
		path := filepath.Join(dataDir, top.file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		results = append(results, Result{
			Path: path,
			Err:  ValidateFile(filepath.Join(schemaDir, top.schema), path),
		})
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return results, nil
		}
		return results, fmt.Errorf("failed to read data dir: %w", err)
	}

	partitionSchema := filepath.Join(schemaDir, PartitionSchema)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dataDir, entry.Name()))
		if err != nil {
			return results, fmt.Errorf("failed to read source dir %s: %w", entry.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			path := filepath.Join(dataDir, entry.Name(), f.Name())
			results = append(results, Result{Path: path, Err: ValidateFile(partitionSchema, path)})
		}
	}
	return results, nil
}
