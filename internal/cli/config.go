package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"entityvault/internal/config"
)

func configCmd(configPath *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	c.AddCommand(configInitCmd(configPath))
	c.AddCommand(configShowCmd(configPath))
	return c
}

func configInitCmd(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.InitPath(*configPath, os.LookupEnv)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(out, "# source: %s\n# %s\n", path, cfg.Summary())

			if cfg.Database.DSN != "" {
				redacted := *cfg
				redacted.Database.DSN = "<redacted>"
				cfg = &redacted
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
