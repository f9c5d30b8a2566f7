package cli

import (
	"errors"
	"fmt"

	"github.com/msomdec/taskmate/internal/config"
	"github.com/spf13/cobra"
)

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
	}
	cmd.AddCommand(configInitCmd(opts))
	cmd.AddCommand(configShowCmd(opts))
	return cmd
}

func configInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.yaml with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.configDir
			if dir == "" {
				dir = config.DefaultDir()
			}
			cfg := config.Default()
			if opts.serverURL != "" {
				cfg.ServerURL = opts.serverURL
			}

			path, err := config.WriteDefault(dir, cfg, force)
			if errors.Is(err, config.ErrExists) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func configShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"config_dir:              %s\nserver_url:              %s\ntimeout:                 %s\nlog_level:               %s\nnotifications:           %s\nprofile_insert_attempts: %d\n",
				cfg.Dir, cfg.ServerURL, cfg.Timeout, cfg.LogLevel, cfg.Notifications, cfg.ProfileInsertAttempts)
			return nil
		},
	}
}
