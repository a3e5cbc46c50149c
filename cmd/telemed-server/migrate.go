package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/db"
	"github.com/Sushasan11/Bespoke-Health-sub001/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(migrateSubCmd("up", "Apply pending migrations", func(cmd *cobra.Command, m *db.Migrator) error {
		if err := m.Up(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	}))
	cmd.AddCommand(migrateSubCmd("down", "Roll back the latest migration", func(cmd *cobra.Command, m *db.Migrator) error {
		if err := m.Down(cmd.Context()); err != nil {
			return err
		}
		return printVersion(cmd, m)
	}))
	cmd.AddCommand(migrateSubCmd("status", "Show migration status", func(cmd *cobra.Command, m *db.Migrator) error {
		return m.Status(cmd.Context())
	}))
	return cmd
}

func migrateSubCmd(use, short string, run func(*cobra.Command, *db.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			m, err := db.NewMigrator(rt.pool, migrations.FS, rt.logger)
			if err != nil {
				return err
			}
			defer m.Close()
			return run(cmd, m)
		},
	}
}

func printVersion(cmd *cobra.Command, m *db.Migrator) error {
	v, err := m.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database is at version %d\n", v)
	return nil
}
