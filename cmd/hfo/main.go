// Package main is the cmd/hfo entry point and command registration hub.
// The actual subcommand implementations live in the cmd_*.go files
// alongside this one, split by capability port.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/version"
)

// Global flags shared by every subcommand.
var (
	jsonOutput bool
	rootOverride string
)

// rootCmd is the base command; every capability port hangs a subcommand
// off of it.
var rootCmd = &cobra.Command{
	Use:           "hfo",
	Short:         "hfo — the knowledge forge orchestration fabric",
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the build version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSONLine(map[string]string{"version": version.Full(), "commit": version.GitCommit}, version.Full())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON on stdout")
	rootCmd.PersistentFlags().StringVar(&rootOverride, "root", "", "project root (overrides HFO_ROOT and the upward marker walk)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return newUsageError("%w", err) })

	rootCmd.AddCommand(supervisorCmd)
	rootCmd.AddCommand(anchorCmd)
	rootCmd.AddCommand(governanceCmd)
	rootCmd.AddCommand(adversarialCmd)
	rootCmd.AddCommand(prospectorCmd)
	rootCmd.AddCommand(strangeLoopCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(compilerCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hfo:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error onto the §6.4 exit code contract: 0 success
// (never reached here), 1 domain failure (violation, drift, denied wish,
// preflight fail), 2 usage error (a flag parse failure, wrapped as
// usageError by the root command's flag error hook). Positional-argument
// errors from cobra's Args validators are not wrapped and exit 1.
func exitCodeFor(err error) int {
	if _, ok := err.(*usageError); ok {
		return 2
	}
	return 1
}

// usageError marks a cobra-level flag problem as distinct from a
// domain failure, so exitCodeFor can return 2 instead of 1.
type usageError struct{ error }

func newUsageError(format string, args ...any) error {
	return &usageError{fmt.Errorf(format, args...)}
}
