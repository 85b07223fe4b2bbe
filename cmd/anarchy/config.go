package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skyline-hq/anarchy/pkg/cli"
)

var configFlags struct {
	output string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file with environment overrides applied and
report the first validation failure.

Examples:
  anarchy config validate --config anarchy.yaml
  ANARCHY_SETTINGS_BACKEND=sqlite anarchy config validate -c anarchy.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		source := cfgFile
		if source == "" {
			source = "defaults"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration valid (%s)\n", source)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := cli.ParseFormat(configFlags.output)
		if err != nil {
			return cli.NewConfigError("--output", err.Error())
		}
		if format == cli.FormatText || format == cli.FormatCSV {
			format = cli.FormatYAML
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)

	configShowCmd.Flags().StringVarP(&configFlags.output, "output", "o", "yaml", "output format: yaml, json")
}
