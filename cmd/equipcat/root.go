package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"equipcat/internal/config"
	"equipcat/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput   bool
		outputFormat string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:           "equipcat",
		Short:         "Equipcat serves an equipment catalog and manages its media library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := format.ForName(outputFormat)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			if cmd.Flags().Changed("output") {
				jsonOutput = true
			}

			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "structured output format: json|yaml (implies --json)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newAdminCmd(cfg, &jsonOutput),
		newImportCmd(cfg, &jsonOutput),
		newMediaCmd(cfg, &jsonOutput),
	)

	return cmd
}
