package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tristendillon/stager/core/logger"
)

// FileName is the config file looked up in the working directory.
const FileName = "stager.yaml"

const envPrefix = "STAGER"

var (
	ErrMissingOwner   = errors.New("owner is required")
	ErrMissingEntry   = errors.New("entry.repo and entry.path are required")
	ErrInvalidFormat  = errors.New("module_map.format must be json or yaml")
	ErrSameDirs       = errors.New("dest_dir and raw_dir must not overlap")
	ErrFormatMismatch = errors.New("module_map.file extension does not match module_map.format")
)

type Config struct {
	Owner     string    `mapstructure:"owner" yaml:"owner"`
	RawDir    string    `mapstructure:"raw_dir" yaml:"raw_dir"`
	DestDir   string    `mapstructure:"dest_dir" yaml:"dest_dir"`
	Extension string    `mapstructure:"extension" yaml:"extension"`
	RootEntry string    `mapstructure:"root_entry" yaml:"root_entry"`
	Verbose   bool      `mapstructure:"verbose" yaml:"verbose"`
	Entry     Entry     `mapstructure:"entry" yaml:"entry"`
	ModuleMap ModuleMap `mapstructure:"module_map" yaml:"module_map"`
	Fetch     Fetch     `mapstructure:"fetch" yaml:"fetch"`
	Watch     Watch     `mapstructure:"watch" yaml:"watch"`
}

// Entry names the script every closure starts from.
type Entry struct {
	Repo string `mapstructure:"repo" yaml:"repo"`
	Path string `mapstructure:"path" yaml:"path"`
}

type ModuleMap struct {
	File   string `mapstructure:"file" yaml:"file"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Fetch struct {
	BaseURL string   `mapstructure:"base_url" yaml:"base_url"`
	Repos   []string `mapstructure:"repos" yaml:"repos"`
}

type Watch struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

func Default() *Config {
	return &Config{
		RawDir:    "raw",
		DestDir:   "staging",
		Extension: ".js",
		RootEntry: "index",
		ModuleMap: ModuleMap{
			File:   "",
			Format: "json",
		},
		Fetch: Fetch{
			BaseURL: "https://earthengine.googlesource.com",
		},
		Watch: Watch{
			Debounce: 500 * time.Millisecond,
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("raw_dir", def.RawDir)
	v.SetDefault("dest_dir", def.DestDir)
	v.SetDefault("extension", def.Extension)
	v.SetDefault("root_entry", def.RootEntry)
	v.SetDefault("verbose", def.Verbose)
	v.SetDefault("module_map.file", def.ModuleMap.File)
	v.SetDefault("module_map.format", def.ModuleMap.Format)
	v.SetDefault("fetch.base_url", def.Fetch.BaseURL)
	v.SetDefault("watch.debounce", def.Watch.Debounce)

	// Bound so AutomaticEnv can see keys that have no default.
	for _, key := range []string{"owner", "entry.repo", "entry.path"} {
		_ = v.BindEnv(key)
	}
}

// Load reads configPath, or stager.yaml from the working directory when
// configPath is empty. A missing default file is not an error: defaults and
// STAGER_* environment variables still apply. Relative directories are
// resolved against the config file's directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working dir: %w", err)
	}

	filePath := configPath
	if filePath == "" {
		candidate := filepath.Join(baseDir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			filePath = candidate
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
		baseDir = filepath.Dir(filePath)
		logger.Debug("Config file found: %s", filePath)
	} else {
		logger.Debug("No config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.RawDir = absFrom(baseDir, cfg.RawDir)
	cfg.DestDir = absFrom(baseDir, cfg.DestDir)
	logger.Debug("Config: %+v", cfg)

	return &cfg, nil
}

func absFrom(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks the settings a stage run cannot do without.
func (c *Config) Validate() error {
	var errs []error
	if c.Owner == "" {
		errs = append(errs, ErrMissingOwner)
	}
	if c.Entry.Repo == "" || c.Entry.Path == "" {
		errs = append(errs, ErrMissingEntry)
	}
	switch c.ModuleMap.Format {
	case "json", "yaml":
		if !formatMatchesFile(c.ModuleMap.Format, c.ModuleMap.File) {
			errs = append(errs, fmt.Errorf("%w: %s is not %s", ErrFormatMismatch, c.ModuleMap.File, c.ModuleMap.Format))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidFormat, c.ModuleMap.Format))
	}
	if c.RawDir != "" && c.DestDir != "" && Overlaps(c.RawDir, c.DestDir) {
		errs = append(errs, ErrSameDirs)
	}
	return errors.Join(errs...)
}

// EntryPath is the absolute path of the entry script in raw storage.
func (c *Config) EntryPath() string {
	return filepath.Join(c.RawDir, c.Entry.Repo, filepath.FromSlash(c.Entry.Path))
}

// ModuleMapFile is the configured map file name, or module_map.<format>
// when none is set.
func (c *Config) ModuleMapFile() string {
	if c.ModuleMap.File != "" {
		return c.ModuleMap.File
	}
	format := c.ModuleMap.Format
	if format == "" {
		format = "json"
	}
	return "module_map." + format
}

// ModuleMapPath is where the module map is written.
func (c *Config) ModuleMapPath() string {
	file := c.ModuleMapFile()
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DestDir, file)
}

// Overlaps reports whether a and b are the same directory or one lies
// inside the other.
func Overlaps(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	return a == b || within(a, b) || within(b, a)
}

func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// formatMatchesFile accepts an empty file name, which is derived from the
// format, and otherwise requires .json for json and .yaml/.yml for yaml.
func formatMatchesFile(format, file string) bool {
	if file == "" {
		return true
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return format == "yaml"
	default:
		return format == "json"
	}
}
