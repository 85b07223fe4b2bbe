package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"skyline-hq/anarchy/pkg/cli"
	"skyline-hq/anarchy/pkg/errorcheck"
)

var checksFlags struct {
	output string
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Manage the error-check policy table",
	Long: `Show and change when each host validation check is disabled.

Every check has one of three policies:
  Never        the check always runs
  WithAnarchy  the check is disabled while anarchy mode applies
  Always       the check is disabled for every tool

Changes are saved to the configured settings store.`,
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every check with its policy",
	Args:  cobra.NoArgs,
	RunE:  listChecks,
}

var checksSetCmd = &cobra.Command{
	Use:   "set <category|index> <policy>",
	Short: "Set the policy of one check",
	Long: `Set the policy of one check, addressed by category name or display index.

Examples:
  anarchy checks set InWater Always
  anarchy checks set 0 WithAnarchy`,
	Args: cobra.ExactArgs(2),
	RunE: setCheck,
}

var checksResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore every check to its default policy",
	Args:  cobra.NoArgs,
	RunE:  resetChecks,
}

func init() {
	rootCmd.AddCommand(checksCmd)
	checksCmd.AddCommand(checksListCmd, checksSetCmd, checksResetCmd)

	checksCmd.PersistentFlags().StringVarP(&checksFlags.output, "output", "o", "text", "output format: text, json, yaml, csv")
}

// checkTable renders the policy table.
type checkTable []errorcheck.ErrorCheck

func (t checkTable) Header() []string {
	return []string{"index", "category", "policy", "default"}
}

func (t checkTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			c.Category.String(),
			c.Policy.String(),
			c.DefaultPolicy.String(),
		})
	}
	return rows
}

func printChecks(cmd *cobra.Command, registry *errorcheck.Registry) error {
	format, err := cli.ParseFormat(checksFlags.output)
	if err != nil {
		return cli.NewConfigError("--output", err.Error())
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), checkTable(registry.All()))
}

func listChecks(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), cmd.ErrOrStderr(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	return printChecks(cmd, a.registry)
}

func setCheck(cmd *cobra.Command, args []string) error {
	policy, err := errorcheck.ParsePolicy(args[1])
	if err != nil {
		return cli.NewConfigError("policy", err.Error())
	}

	ctx := context.Background()
	a, err := newApp(ctx, cmd.ErrOrStderr(), appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if index, convErr := strconv.Atoi(args[0]); convErr == nil {
		err = a.registry.SetPolicyByIndex(ctx, index, policy)
	} else {
		err = a.registry.SetPolicy(ctx, errorcheck.Category(args[0]), policy)
	}
	if err != nil {
		return cli.NewCommandError("checks set", err)
	}

	a.logger.Info("policy changed", "check", args[0], "policy", policy.String(), "backend", a.store.Backend())
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], policy)
	return nil
}

func resetChecks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd.ErrOrStderr(), appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.ResetDefaults(ctx); err != nil {
		return cli.NewCommandError("checks reset", err)
	}
	return printChecks(cmd, a.registry)
}
