package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tgienger/stash/internal/config"
	"github.com/tgienger/stash/internal/db"
)

func newMigrateCommand(e *env) *cobra.Command {
	var rollback int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Show the schema version or roll it back",
		Long: `The schema is brought up to date every time stash opens the database.
--rollback reverts to an older version until the next run migrates forward
again. Rolling back below 2 drops all tag groups and collections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("rollback") {
				if err := e.db.Rollback(rollback); err != nil {
					return err
				}
			}
			v, err := e.db.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (latest %d)\n", v, db.LatestSchemaVersion())
			return nil
		},
	}

	cmd.Flags().IntVar(&rollback, "rollback", 0, "target schema version")
	return cmd
}

func newConfigCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
		// The config commands never open the database.
		PersistentPreRunE: e.loadConfig,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(e.cfg)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			if err := e.cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	})

	var defaults bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: `Writes the configuration stash would use to the config file.
--defaults writes the built-in defaults instead, which repairs a file that
no longer validates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if defaults {
				cfg = config.DefaultConfig()
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("refusing to write invalid config (try --defaults): %w", err)
			}
			if err := cfg.Save(e.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", e.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&defaults, "defaults", false, "write the built-in defaults")
	cmd.AddCommand(initCmd)
	return cmd
}
