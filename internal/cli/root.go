// Package cli implements the databot command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// ConfigPath overrides the CONFIG_PATH environment variable.
	ConfigPath string
}

// NewRootCommand creates the databot root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "databot",
		Short:         "Bingwa Data Deals Telegram bot",
		Long:          "Sells prepaid data bundles over Telegram and collects payment with an M-PESA STK push.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config file (default $CONFIG_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewVersionCommand())
	return cmd
}
