package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"care-ledger/internal/platform/config"
)

func addConfig(topLevel *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addConfigInit(cmd, ro)
	addConfigShow(cmd, ro)

	topLevel.AddCommand(cmd)
}

func addConfigInit(parent *cobra.Command, ro *RootOptions) {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(ro.ConfigPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", ro.ConfigPath)
			}
			if err := config.Save(config.Default(), ro.ConfigPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", ro.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Overwrite an existing file.")

	parent.AddCommand(cmd)
}

func addConfigShow(parent *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config (file + env)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.loadConfig()
			if err != nil {
				return err
			}
			// No mostrar secretos.
			if cfg.Remote.APIKey != "" {
				cfg.Remote.APIKey = "***"
			}
			if cfg.Auth.APIKey != "" {
				cfg.Auth.APIKey = "***"
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}

	parent.AddCommand(cmd)
}
