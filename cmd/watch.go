/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/generator"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [repo/path]",
	Short: "Restages whenever a script in raw storage changes",
	Long: `Runs stage once, then watches the raw storage root and runs it again after
changes settle. Changes to files outside the closure are ignored unless the
last run had unresolved imports.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("watch called")
		cfg, err := loadConfig(firstArg(args))
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		stager := generator.NewStager(cfg)
		var mu sync.Mutex
		incomplete := false

		stage := func() error {
			mu.Lock()
			defer mu.Unlock()

			result, err := stager.Run(ctx, false)
			if err != nil {
				return err
			}
			incomplete = len(result.Closure.Missing) > 0
			generator.RenderSummary(cmd.OutOrStdout(), result.Summary)
			return nil
		}

		fw, err := watcher.NewFileWatcher(cfg.RawDir, watchExcludes(cfg.RawDir, cfg.DestDir), cfg.Watch.Debounce)
		if err != nil {
			return err
		}
		defer fw.Close()

		fw.OnStart(func() error {
			logger.Info("Watching %s", cfg.RawDir)
			return stage()
		})
		fw.OnChange(func(changed []string) error {
			mu.Lock()
			relevant := incomplete
			for _, path := range changed {
				if stager.InClosure(path) {
					relevant = true
					if affected := stager.AffectedBy(path); len(affected) > 0 {
						logger.Debug("%s is imported by %d closure files", path, len(affected))
					}
				}
			}
			mu.Unlock()

			if !relevant {
				logger.Debug("Ignoring %d changes outside the closure", len(changed))
				return nil
			}
			logger.Info("Restaging after %d changes", len(changed))
			return stage()
		})
		fw.OnClose(func() error {
			logger.Info("Stopped watching")
			return nil
		})

		return fw.Watch(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchExcludes keeps the staging output from triggering restages when it
// sits under the raw root.
func watchExcludes(rawDir, destDir string) []string {
	rel, err := filepath.Rel(rawDir, destDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{rel}
}
