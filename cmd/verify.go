/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/modulemap"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks the module map against the staging directory",
	Long: `Loads the module map, validates it against the module map schema when it is
JSON, and checks that every mapped file exists inside the staging directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("verify called")
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}

		mapPath := cfg.ModuleMapPath()
		if strings.HasSuffix(mapPath, ".json") {
			data, err := os.ReadFile(mapPath)
			if err != nil {
				return fmt.Errorf("failed to read module map: %w", err)
			}
			if err := modulemap.Validate(data); err != nil {
				return err
			}
		}

		mm, err := modulemap.Load(mapPath)
		if err != nil {
			return err
		}

		problems := modulemap.Verify(mm, cfg.DestDir)
		for _, p := range problems {
			logger.Error("%v", p)
		}
		if len(problems) > 0 {
			return errors.Join(problems...)
		}

		logger.Info("Module map OK: %d entries in %s", len(mm.Modules), mapPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
