package modulemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/walker"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ErrUnknownFormat = errors.New("unknown module map format")

// Generate builds the module map from what is on disk under destRoot. Each
// <repo>/<internal><ext> file becomes users/<owner>/<repo>:<internal>.
// Nothing from the traversal is consulted, so the map always matches the tree.
func Generate(destRoot, owner, ext string, now time.Time, exclude ...string) (*models.ModuleMap, error) {
	files, err := walker.NewTreeWalker(exclude...).Walk(destRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", destRoot, err)
	}

	mm := models.NewModuleMap(owner, now)
	for _, f := range files {
		_, internal, _ := strings.Cut(f.RelPath, "/")
		key := models.LogicalPath(owner, f.Repo, internal, ext)

		if prev, dup := mm.Modules[key]; dup {
			logger.Warn("Module %s maps to both %s and %s, keeping %s", key, prev, f.RelPath, prev)
			continue
		}
		mm.Modules[key] = f.RelPath
	}

	logger.Debug("Module map for %s has %d entries", destRoot, len(mm.Modules))
	return mm, nil
}

// Marshal encodes the map in the given format. Keys are sorted by both
// encoders, so equal maps encode to equal bytes.
func Marshal(mm *models.ModuleMap, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(mm, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode module map: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(mm); err != nil {
			return nil, fmt.Errorf("failed to encode module map: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode module map: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Write persists the map at path, replacing any previous file.
func Write(mm *models.ModuleMap, path, format string) error {
	data, err := Marshal(mm, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write module map %s: %w", path, err)
	}
	return nil
}

// Load reads a module map written by Write. The format follows the file
// extension; anything that is not .yaml/.yml is read as JSON.
func Load(path string) (*models.ModuleMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module map %s: %w", path, err)
	}

	var mm models.ModuleMap
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mm)
	default:
		err = json.Unmarshal(data, &mm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse module map %s: %w", path, err)
	}
	if mm.Modules == nil {
		mm.Modules = make(map[string]string)
	}
	return &mm, nil
}
