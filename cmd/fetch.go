/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/fetch"
	"github.com/tristendillon/stager/core/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [owner/repo...]",
	Short: "Clones or updates script repositories into raw storage",
	Long: `Clones each repository into <raw_dir>/<repo>, or pulls it when a working copy
already exists. Without arguments the fetch.repos list from the config is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("fetch called")
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			names = cfg.Fetch.Repos
		}
		if len(names) == 0 {
			return fmt.Errorf("no repositories given and fetch.repos is empty")
		}

		refs := make([]fetch.RepoRef, 0, len(names))
		for _, name := range names {
			ref, err := fetch.ParseRepoRef(name)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		failed := 0
		for _, res := range fetch.NewGitFetcher(cfg.Fetch.BaseURL, cfg.RawDir).FetchAll(ctx, refs) {
			if res.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d repositories failed to fetch", failed, len(refs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
