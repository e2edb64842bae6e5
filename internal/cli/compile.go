package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soypat/gsdfvm/sdfbuild"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scene.yaml>",
		Short: "Compile a scene to a bytecode program file",
		Long: `Compile a scene operator tree to a linear bytecode program.

Without --output only the program statistics are printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output program file path")

	return cmd
}

func runCompile(opts *CompileOptions, scenePath string, cmd *cobra.Command) error {
	s, prog, err := loadScene(opts.RootOptions, scenePath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %s: %d instruction(s), peak stack %d, %d bytes\n",
		s.Name, prog.InstructionCount(), prog.PeakStackDepth(), len(prog.Bytes()))
	if opts.Output == "" {
		return nil
	}
	fp, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "creating output file", err)
	}
	defer fp.Close()
	if _, err = prog.WriteTo(fp); err != nil {
		return WrapExitError(ExitFailure, "writing program", err)
	}
	if err = fp.Close(); err != nil {
		return WrapExitError(ExitFailure, "closing output file", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote program to %s\n", opts.Output)
	return nil
}

// NewDisasmCommand creates the disasm command.
func NewDisasmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <program|scene.yaml>",
		Short: "Disassemble a compiled program or scene",
		Long: `Print one line per instruction: byte offset, opcode, kind and arguments.

Files ending in .yaml or .yml are compiled first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDisasm(opts *RootOptions, path string, cmd *cobra.Command) error {
	var prog *sdfbuild.Program
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var err error
		_, prog, err = loadScene(opts, path)
		if err != nil {
			return err
		}
	default:
		fp, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening program", err)
		}
		defer fp.Close()
		prog, err = sdfbuild.ReadProgram(fp)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading program "+path, err)
		}
	}
	if _, err := prog.Disassemble(cmd.OutOrStdout()); err != nil {
		return WrapExitError(ExitFailure, "disassembling", err)
	}
	return nil
}
