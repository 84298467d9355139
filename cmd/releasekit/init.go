package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/releasekit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .releasekit/ with a default config",
	Long: `Create the .releasekit directory (config.yaml, drafts/, logs/ and
plugins/) in the project directory. Existing files are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		if err := config.Init(dir); err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", cfg.ProjectConfigPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
