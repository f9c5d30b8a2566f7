// Package cli implements the taskmate command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/msomdec/taskmate/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir string
	serverURL string
}

// loadConfig reads the client settings, applying the --server-url flag last.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.serverURL != "" {
		cfg.ServerURL = o.serverURL
	}
	return cfg, nil
}

// app builds the client for a command. Callers must Close it.
func (o *rootOptions) app(cmd *cobra.Command) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// NewRootCommand builds the full command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "taskmate",
		Short: "Taskmate - personal tasks synced to a remote backend",
		Long: `Taskmate keeps a personal task list and profile in sync with a taskmate server.

Run "taskmate serve" to start a server, then "taskmate register" or "taskmate login".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "Configuration directory (default $XDG_CONFIG_HOME/taskmate)")
	root.PersistentFlags().StringVar(&opts.serverURL, "server-url", "", "Override the server_url setting")

	root.AddCommand(serveCmd())
	root.AddCommand(registerCmd(opts))
	root.AddCommand(loginCmd(opts))
	root.AddCommand(logoutCmd(opts))
	root.AddCommand(whoamiCmd(opts))
	root.AddCommand(tasksCmd(opts))
	root.AddCommand(profileCmd(opts))
	root.AddCommand(configCmd(opts))
	root.AddCommand(versionCmd(version))
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "taskmate", version)
		},
	}
}
