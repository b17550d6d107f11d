/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/generator"
	"github.com/tristendillon/stager/core/logger"
)

var (
	dryRun       bool
	stageTimeout time.Duration
)

var stageCmd = &cobra.Command{
	Use:   "stage [repo/path]",
	Short: "Stages the dependency closure of the entry script",
	Long: `Resolves every users/... import reachable from the entry script, copies the
files into the staging directory (which is wiped first) and writes the module map.
The entry comes from the config file unless given as an argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("stage called")
		cfg, err := loadConfig(firstArg(args))
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		if stageTimeout > 0 {
			var cancelTimeout context.CancelFunc
			ctx, cancelTimeout = context.WithTimeout(ctx, stageTimeout)
			defer cancelTimeout()
		}

		result, err := generator.NewStager(cfg).Run(ctx, dryRun)
		if err != nil {
			return fmt.Errorf("stage failed: %w", err)
		}

		out := cmd.OutOrStdout()
		generator.RenderMissing(out, result.Closure, cfg.RawDir)
		generator.RenderCycles(out, result.Cycles, cfg.RawDir)
		generator.RenderSummary(out, result.Summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)

	stageCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve the closure without touching the staging directory")
	stageCmd.Flags().DurationVar(&stageTimeout, "timeout", 0, "Abort between phases once this much time has passed")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
