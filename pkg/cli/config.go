package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cadence/pkg/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-api-url <url>",
		Short: "Set the task server base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, rootOpts, func(cfg *config.Config) {
				cfg.APIURL = args[0]
			}, "API URL set to: %s\n", args[0])
		},
	})

	var enable bool
	setCalendar := &cobra.Command{
		Use:   "set-calendar <name>",
		Short: "Set the Google Calendar tasks are mirrored into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, rootOpts, func(cfg *config.Config) {
				cfg.Calendar.Name = args[0]
				if cmd.Flags().Changed("enable") {
					cfg.Calendar.Enabled = enable
				}
			}, "Default calendar set to: %s\n", args[0])
		},
	}
	setCalendar.Flags().BoolVar(&enable, "enable", true, "mirror task changes automatically")
	cmd.AddCommand(setCalendar)

	return cmd
}

func loadConfig(opts *RootOptions) (string, *config.Config, error) {
	dir, err := configDir(opts)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

func updateConfig(cmd *cobra.Command, opts *RootOptions, change func(*config.Config), format string, a ...any) error {
	dir, cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	change(cfg)
	if err := config.SaveTo(dir, cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
	return nil
}
