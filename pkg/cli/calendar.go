package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cadence/pkg/auth"
	"github.com/harrisonrobin/cadence/pkg/google"
)

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Mirror every task into Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			cal, err := a.calendar(cmd.Context())
			if err != nil {
				return err
			}
			res, err := google.NewMirror(cal, a.logger).MirrorAll(cmd.Context(), a.store.List(""))
			fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d of %d tasks to %q", res.Mirrored, a.store.Len(), a.cfg.Calendar.Name)
			if res.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d without a due date", res.Skipped)
			}
			if res.Removed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", removed %d stale events", res.Removed)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
}

// NewAuthCommand creates the auth command.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Calendar access, replacing any stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := configDir(rootOpts)
			if err != nil {
				return err
			}
			if err := auth.Reset(dir); err != nil {
				return err
			}
			if _, err := auth.GetClient(cmd.Context(), dir, auth.Scopes); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Authentication successful")
			return nil
		},
	}
}
