package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bingwamta/databot/core/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "databot "+buildinfo.String())
		},
	}
}
