package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/commerce-assistant/internal/config"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

var (
	catalogDir  string
	artifactDir string
	verbose     bool
	noColor     bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "assistantctl",
	Short:         "Operate the commerce assistant from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if catalogDir != "" {
			cfg.CatalogDir = catalogDir
			cfg.PostgresDSN = ""
		}
		if artifactDir != "" {
			cfg.ArtifactDir = artifactDir
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "tenant catalog directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&artifactDir, "artifact-dir", "", "index artifact directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}
