/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/generator"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/shared"
)

var depsCmd = &cobra.Command{
	Use:   "deps [repo/path]",
	Short: "Prints the dependency closure of the entry script",
	Long:  `Resolves the closure like stage does and prints it as a tree, without writing anything.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("deps called")
		cfg, err := loadConfig(firstArg(args))
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		stager := generator.NewStager(cfg)
		if trees, err := stager.SourceTrees(); err == nil {
			logger.Debug("Raw storage holds %d %s", len(trees), shared.Plural(len(trees), "repository", "repositories"))
		}
		closure, err := stager.Closure()
		if err != nil {
			return err
		}

		logger.Info("%d %s across %d %s",
			len(closure.Files), shared.Plural(len(closure.Files), "file", "files"),
			len(closure.Repos()), shared.Plural(len(closure.Repos()), "repository", "repositories"))
		models.BuildClosureTree(closure).PrintTree(logger.INFO)

		out := cmd.OutOrStdout()
		generator.RenderMissing(out, closure, cfg.RawDir)
		generator.RenderCycles(out, stager.Cycles(), cfg.RawDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
