/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/config"
	"github.com/tristendillon/stager/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "stager",
	Short: "Stages the dependency closure of an Earth Engine script.",
	Long: `Stager follows users/<owner>/<repo>:<path> imports from an entry script,
copies every script it reaches into a clean staging directory and writes a
module map that tells a bundler where each import lives.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		logger.SetColor(!noColor)
		if logfile != "" {
			f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logFileHandle = f
			logger.AddPlainWriterForAll(f)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFileHandle != nil {
			_ = logFileHandle.Close()
		}
	},
}

var (
	cfgFile       string
	logfile       string
	logFileHandle *os.File
	verbose       bool
	noColor       bool

	ownerFlag string
	rawFlag   string
	destFlag  string
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "File to write logs to")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "Owner used in module map keys")
	rootCmd.PersistentFlags().StringVar(&rawFlag, "raw", "", "Raw storage root holding one directory per repository")
	rootCmd.PersistentFlags().StringVar(&destFlag, "dest", "", "Staging directory, wiped on every run")
}

// loadConfig reads the config file and layers command-line overrides on top.
// entryArg, when set, is "<repo>/<path>".
func loadConfig(entryArg string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Verbose = true
	}
	logger.SetVerbose(cfg.Verbose)

	if ownerFlag != "" {
		cfg.Owner = ownerFlag
	}
	if rawFlag != "" {
		cfg.RawDir = absPath(rawFlag)
	}
	if destFlag != "" {
		cfg.DestDir = absPath(destFlag)
	}

	if entryArg != "" {
		repo, path, err := splitEntry(entryArg)
		if err != nil {
			return nil, err
		}
		cfg.Entry.Repo = repo
		cfg.Entry.Path = path
	}

	return cfg, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func splitEntry(s string) (string, string, error) {
	repo, path, ok := strings.Cut(strings.Trim(s, "/"), "/")
	if !ok || repo == "" || path == "" {
		return "", "", fmt.Errorf("entry must be written as <repo>/<path>, got %q", s)
	}
	return repo, path, nil
}
