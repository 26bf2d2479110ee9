// Package cli wires configuration, storage, services and the HTTP API into
// the entityvault command.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "entityvault",
		Short:        "entityvault - typed user and organization store",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: search ENTITYVAULT_CONFIG, ./entityvault.yaml, ~/.config/entityvault)")

	cmd.AddCommand(serveCmd(&configPath))
	cmd.AddCommand(usersCmd(&configPath))
	cmd.AddCommand(configCmd(&configPath))
	return cmd
}
