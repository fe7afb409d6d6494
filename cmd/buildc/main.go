// Command buildc is the build-script compiler's debug CLI: one subcommand
// per pipeline stage (tokens/ast/ir/bytecode), in the spirit of the
// teacher's own single-binary CLI wrapping its lex/parse/plan/execute
// pipeline behind cobra subcommands.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildc-lang/buildc/internal/compiler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var file string
	var debug bool
	var maxErrors int

	root := &cobra.Command{
		Use:           "buildc",
		Short:         "Inspect each stage of the build-script compiler pipeline",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&file, "file", "f", "-", "source file to compile (- for stdin)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable per-stage debug logging")
	root.PersistentFlags().IntVar(&maxErrors, "max-errors", 0, "stop after this many diagnostics (0 = no limit)")

	run := func(stage compiler.Stage, dump func(*compiler.Result) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			src, err := readSource(file)
			if err != nil {
				return err
			}
			result, err := compiler.Compile(src, stage, compiler.Options{Debug: debug, MaxErrors: maxErrors})
			if err != nil {
				return err
			}
			for _, d := range result.Reporter.Diagnostics() {
				fmt.Fprintln(os.Stderr, d.String())
			}
			if err := dump(result); err != nil {
				return err
			}
			if result.HasErrors() {
				return fmt.Errorf("compilation failed")
			}
			return nil
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "tokens",
			Short: "Print the token stream",
			RunE:  run(compiler.StageTokens, dumpTokens),
		},
		&cobra.Command{
			Use:   "ast",
			Short: "Print the parsed AST",
			RunE:  run(compiler.StageAST, dumpAST),
		},
		&cobra.Command{
			Use:   "ir",
			Short: "Print the generated SSA IR",
			RunE:  run(compiler.StageIR, dumpIR),
		},
		&cobra.Command{
			Use:   "bytecode",
			Short: "Print the assembled bytecode",
			RunE:  run(compiler.StageBytecode, dumpBytecode),
		},
	)

	return root
}

func readSource(file string) (string, error) {
	if file == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(b), nil
}
