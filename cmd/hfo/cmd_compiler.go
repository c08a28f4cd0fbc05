package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obsidian-forge/hfo/pkg/compiler"
)

var compilerCmd = &cobra.Command{
	Use:   "compiler",
	Short: "five-pass wish pipeline compiler (C13)",
}

func newCompiler(a *app) *compiler.Compiler {
	stateDir := a.cfg.Paths.PipelineState
	return compiler.New(a.store, a.pub, a.cfg.Generation, newModelClient(a, "expensive"), stateDir)
}

var compileDryRun bool

var compilerCompileCmd = &cobra.Command{
	Use:   "compile <wish_id> <intent...>",
	Short: "compile a fresh wish from Pass 1 through Pass 5",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compiler")
		if err != nil {
			return err
		}
		defer a.Close()

		wishID, intent := args[0], strings.Join(args[1:], " ")
		p, err := newCompiler(a).Compile(withTimeoutBackground(), wishID, intent, compileDryRun)
		if err != nil && p == nil {
			return err
		}
		if perr := printResult(p, func() { fmt.Printf("compile %s: status=%s pass=%d\n", wishID, p.Status, p.CurrentPass) }); perr != nil {
			return perr
		}
		return err
	},
}

var pass1DryRun bool

var compilerPass1Cmd = &cobra.Command{
	Use:   "pass1 <wish_id> <intent...>",
	Short: "preview Pass 1 only: translate intent to scenario text and validate, without continuing to Pass 2-5",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compiler")
		if err != nil {
			return err
		}
		defer a.Close()

		wishID, intent := args[0], strings.Join(args[1:], " ")
		p, err := newCompiler(a).CompilePass1(withTimeoutBackground(), wishID, intent, pass1DryRun)
		if err != nil && p == nil {
			return err
		}
		if perr := printResult(p, func() { fmt.Printf("pass1 %s: verdict=%s\n", wishID, p.PassResults[1].Verdict) }); perr != nil {
			return perr
		}
		return err
	},
}

var resumeFromPass int

var compilerResumeCmd = &cobra.Command{
	Use:   "resume <wish_id>",
	Short: "re-enter a persisted pipeline at --from-pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compiler")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := newCompiler(a).Resume(withTimeoutBackground(), args[0], resumeFromPass)
		if err != nil && p == nil {
			return err
		}
		if perr := printResult(p, func() { fmt.Printf("resume %s: status=%s pass=%d\n", args[0], p.Status, p.CurrentPass) }); perr != nil {
			return perr
		}
		return err
	},
}

var compilerStatusCmd = &cobra.Command{
	Use:   "status <wish_id>",
	Short: "show a persisted pipeline's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compiler")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := newCompiler(a).Status(args[0])
		if err != nil {
			return err
		}
		return printResult(p, func() { fmt.Printf("status %s: status=%s pass=%d\n", args[0], p.Status, p.CurrentPass) })
	},
}

var compilerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every wish_id with a persisted pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compiler")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := newCompiler(a).List()
		if err != nil {
			return err
		}
		return printResult(ids, func() {
			for _, id := range ids {
				fmt.Println(id)
			}
		})
	},
}

func init() {
	compilerCompileCmd.Flags().BoolVar(&compileDryRun, "dry-run", false, "skip the Pass 1 model call, use deterministic stand-in scenario text (no other pass calls a model)")
	compilerPass1Cmd.Flags().BoolVar(&pass1DryRun, "dry-run", false, "skip the model call, use deterministic stand-in text")
	compilerResumeCmd.Flags().IntVar(&resumeFromPass, "from-pass", 1, "pass number to resume from (1-5)")

	compilerCmd.AddCommand(compilerCompileCmd, compilerPass1Cmd, compilerResumeCmd, compilerStatusCmd, compilerListCmd)
}
