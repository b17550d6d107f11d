/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/template_engine"
)

var (
	force     bool
	initEntry string
	initRepos []string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Writes a starter stager.yaml",
	Long:  `Creates a stager.yaml (and a .gitignore for the staging directory) in dir, or the working directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("init called")
		dir := firstArg(args)
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}

		data := template_engine.InitData{
			Owner:   ownerFlag,
			RawDir:  rawFlag,
			DestDir: destFlag,
			Repos:   initRepos,
			Now:     time.Now(),
		}
		if initEntry != "" {
			repo, path, err := splitEntry(initEntry)
			if err != nil {
				return err
			}
			data.EntryRepo, data.EntryPath = repo, path
		}

		engine := template_engine.NewTemplateEngine()
		engine.SetOverwrite(force)
		written, err := engine.GenerateFolder(template_engine.TEMPLATES.INIT, dir, data)
		if errors.Is(err, template_engine.ErrExists) {
			return fmt.Errorf("%w; use --force to overwrite", err)
		}
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		for _, p := range written {
			logger.Info("Wrote %s", p)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Next Steps:\n")
		if data.Owner == "" || data.EntryRepo == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  - fill in owner and entry in stager.yaml\n")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - stager fetch\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  - stager stage\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing files")
	initCmd.Flags().StringVar(&initEntry, "entry", "", "Entry script as <repo>/<path>")
	initCmd.Flags().StringSliceVar(&initRepos, "repo", nil, "Repository to list under fetch.repos (owner/name), repeatable")
}
