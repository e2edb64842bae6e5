package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Quiet   bool
	Workers int

	logger *slog.Logger
}

// Logger returns the logger configured by the global flags. Every record carries
// the build_id of the invocation so concurrent runs can be told apart.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

func (o *RootOptions) setupLogger(w io.Writer) {
	if o.Quiet {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	o.logger = slog.New(h).With("build_id", uuid.Must(uuid.NewV7()).String())
}

// NewRootCommand creates the root command for the gsdfvm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gsdfvm",
		Short: "gsdfvm - SDF bytecode compiler and mesher",
		Long: `Compile solids described as signed distance field operator trees into
bytecode, then mesh, slice or disassemble them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Workers < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid worker count %d", opts.Workers))
			}
			if opts.Verbose && opts.Quiet {
				return NewExitError(ExitCommandError, "--verbose and --quiet are mutually exclusive")
			}
			opts.setupLogger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress log output")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "mesher worker goroutines (0 uses all CPUs)")

	cmd.AddCommand(NewMeshCommand(opts))
	cmd.AddCommand(NewSliceCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewDisasmCommand(opts))
	cmd.AddCommand(NewOpsCommand(opts))

	return cmd
}
