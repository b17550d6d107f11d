package modulemap

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tristendillon/stager/core/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var (
	ErrSchemaViolation = errors.New("module map does not match schema")
	ErrMissingModule   = errors.New("mapped file is missing")
)

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Validate checks an encoded JSON module map against the embedded schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate module map: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

// Verify reports every mapped file that does not exist under destRoot, and
// every mapped path that would resolve outside it.
func Verify(mm *models.ModuleMap, destRoot string) []error {
	var errs []error
	for _, key := range mm.Keys() {
		rel := mm.Modules[key]
		target := filepath.Join(destRoot, filepath.FromSlash(rel))

		back, err := filepath.Rel(destRoot, target)
		if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
			errs = append(errs, fmt.Errorf("%s: %s points outside %s", key, rel, destRoot))
			continue
		}

		info, err := os.Stat(target)
		if err != nil || !info.Mode().IsRegular() {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrMissingModule, key, rel))
		}
	}
	return errs
}
