// Package cli is the cadence command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cadence/pkg/api"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	ConfigDir string
}

// NewRootCommand creates the root command for the cadence CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cadence",
		Short: "cadence - recurring task client",
		Long: `A command-line client for a recurring-task server.

Log in, list your daily, weekly and monthly tasks, and create, edit or
delete them. Confirmed changes can optionally be mirrored into Google
Calendar as recurring events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "config directory (default ~/.config/cadence)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// reportError prints err unless it is an API failure; the controllers have
// already shown those through the console.
func reportError(w io.Writer, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
