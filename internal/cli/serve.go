package cli

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/bingwamta/databot/core/cmd"
	"github.com/bingwamta/databot/internal/app"
)

// NewServeCommand creates the serve command that runs the bot.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(cmd.Context(), serveOptions(rootOpts))
		},
	}
}

func serveOptions(rootOpts *RootOptions) corecmd.Options {
	return corecmd.Options{
		ConfigPath: rootOpts.ConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.New(ctx, cfg.(*app.Config))
		},
	}
}
