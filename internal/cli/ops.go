package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soypat/gsdfvm/scene"
)

// NewOpsCommand creates the ops command listing scene operators.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ops",
		Short:         "List operators available in scene files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scene.Ops() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
