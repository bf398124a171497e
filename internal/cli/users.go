package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	corecmd "github.com/bingwamta/databot/core/cmd"
	"github.com/bingwamta/databot/internal/app"
	"github.com/bingwamta/databot/internal/directory"
)

type usersOptions struct {
	countOnly bool
}

// NewUsersCommand creates the users command that inspects the user directory.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &usersOptions{}
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users or print directory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadStorageConfig(corecmd.ResolveConfigPath(rootOpts.ConfigPath, corecmd.DefaultConfigEnvVar))
			if err != nil {
				return err
			}
			store, err := app.InspectDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return runUsers(cmd, store, opts, time.Now())
		},
	}
	cmd.Flags().BoolVar(&opts.countOnly, "count", false, "print totals only")
	return cmd
}

func runUsers(cmd *cobra.Command, store directory.Directory, opts *usersOptions, now time.Time) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if opts.countOnly {
		st, err := store.Stats(ctx, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "total: %d\nactive_24h: %d\nnew_7d: %d\n", st.Total, st.ActiveLastDay, st.JoinedLastWeek)
		return nil
	}
	users, err := store.List(ctx)
	if err != nil {
		return err
	}
	return writeUsers(out, users)
}

func writeUsers(w io.Writer, users []directory.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tJOINED\tLAST ACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			u.ID, u.DisplayName(),
			u.JoinedAt.UTC().Format(time.RFC3339),
			u.LastActiveAt.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
