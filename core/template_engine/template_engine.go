package template_engine

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/shared"
)

//go:embed all:templates
var TemplateFS embed.FS

var ErrExists = errors.New("file already exists")

type TemplateRef struct {
	Path  string
	IsDir bool
}

func (tr TemplateRef) IsFile() bool {
	return !tr.IsDir
}

func (tr TemplateRef) IsDirectory() bool {
	return tr.IsDir
}

// TEMPLATES lists the embedded templates by use.
var TEMPLATES = struct {
	INIT   TemplateRef
	CONFIG TemplateRef
}{
	INIT:   TemplateRef{Path: "init", IsDir: true},
	CONFIG: TemplateRef{Path: "init/stager.yaml.tmpl"},
}

// InitData feeds the init templates.
type InitData struct {
	Owner     string
	RawDir    string
	DestDir   string
	EntryRepo string
	EntryPath string
	Repos     []string
	Now       time.Time
}

type TemplateEngine struct {
	funcMap   template.FuncMap
	overwrite bool
}

func getDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     shared.ToTitle,
		"trim":      strings.TrimSpace,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"join":      strings.Join,

		"date": func(t time.Time) string { return t.Format("2006-01-02") },
		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},
	}
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{funcMap: getDefaultFuncMap()}
}

// SetOverwrite lets generation replace files that already exist.
func (te *TemplateEngine) SetOverwrite(overwrite bool) {
	te.overwrite = overwrite
}

func (te *TemplateEngine) AddFunc(name string, fn interface{}) {
	te.funcMap[name] = fn
}

// GenerateFile renders a single template to outputPath.
func (te *TemplateEngine) GenerateFile(templateRef TemplateRef, outputPath string, data interface{}) error {
	if templateRef.IsDirectory() {
		return fmt.Errorf("cannot generate file from directory reference: %s", templateRef.Path)
	}
	return te.generateFileFromPath(path.Join("templates", templateRef.Path), outputPath, data)
}

// GenerateFolder renders every file under a directory template into
// outputDir and returns the paths it wrote. Nothing is written when any
// target already exists and overwrite is off.
func (te *TemplateEngine) GenerateFolder(templateRef TemplateRef, outputDir string, data interface{}) ([]string, error) {
	if templateRef.IsFile() {
		return nil, fmt.Errorf("cannot generate folder from file reference: %s", templateRef.Path)
	}

	templateDir := path.Join("templates", templateRef.Path)
	logger.Debug("Generating folder from template reference: %s", templateDir)

	type job struct{ src, dst string }
	var jobs []job
	err := fs.WalkDir(TemplateFS, templateDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(p, templateDir+"/")
		dst := filepath.Join(outputDir, filepath.FromSlash(strings.TrimSuffix(rel, ".tmpl")))
		jobs = append(jobs, job{src: p, dst: dst})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk template %s: %w", templateRef.Path, err)
	}

	if !te.overwrite {
		for _, j := range jobs {
			if _, err := os.Stat(j.dst); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrExists, j.dst)
			}
		}
	}

	written := make([]string, 0, len(jobs))
	for _, j := range jobs {
		logger.Debug("Generating file from path: %s", j.src)
		if err := te.generateFileFromPath(j.src, j.dst, data); err != nil {
			return written, err
		}
		written = append(written, j.dst)
	}
	return written, nil
}

func (te *TemplateEngine) generateFileFromPath(templatePath, outputPath string, data interface{}) error {
	content, err := TemplateFS.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", templatePath, err)
	}

	if !te.overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, outputPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if !strings.HasSuffix(templatePath, ".tmpl") {
		return os.WriteFile(outputPath, content, 0644)
	}

	tmpl, err := template.New(path.Base(templatePath)).Funcs(te.funcMap).Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	defer outputFile.Close()

	if err := tmpl.Execute(outputFile, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", templatePath, err)
	}

	return nil
}

// ListTemplates returns the embedded files behind templateRef, relative to
// the templates root.
func (te *TemplateEngine) ListTemplates(templateRef TemplateRef) ([]string, error) {
	if templateRef.IsFile() {
		return []string{templateRef.Path}, nil
	}

	var templates []string
	err := fs.WalkDir(TemplateFS, path.Join("templates", templateRef.Path), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			templates = append(templates, strings.TrimPrefix(p, "templates/"))
		}
		return nil
	})

	return templates, err
}
