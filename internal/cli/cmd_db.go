package cli

import (
	"context"
	"fmt"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/spf13/cobra"
)

func newDBCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database file and schema operations",
		Example: "  pos db migrate\n" +
			"  pos --json db version",
	}
	cmd.AddCommand(
		newDBMigrateCommand(deps),
		newDBVersionCommand(deps),
		newDBPathCommand(deps),
	)
	return cmd
}

func newDBMigrateCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the database and bring its schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("db migrate does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(_ context.Context, svc services) error {
				migration := svc.store.Migration()
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"path":            svc.store.Path(),
						"from_version":    migration.FromVersion,
						"to_version":      migration.ToVersion,
						"applied":         migration.Applied,
						"created":         migration.Created,
						"recreated":       migration.Recreated,
						"recreate_reason": migration.RecreateReason,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				state := "up to date"
				switch {
				case migration.Created:
					state = "created"
				case migration.Recreated:
					state = "recreated (" + migration.RecreateReason + ")"
				case len(migration.Applied) > 0:
					state = fmt.Sprintf("migrated %v", migration.Applied)
				}
				_, err := fmt.Fprintf(
					deps.out,
					"schema v%d -> v%d: %s\n",
					migration.FromVersion,
					migration.ToVersion,
					state,
				)
				return err
			})
		},
	}
}

func newDBVersionCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the stored and supported schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("db version does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				stored, err := svc.store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				supported := storage.CurrentSchemaVersion()
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"schema_version":    stored,
						"supported_version": supported,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "schema_version=%d supported_version=%d\n", stored, supported)
				return err
			})
		},
	}
}

func newDBPathCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database and config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("db path does not accept positional arguments")
			}
			cfg, report, err := loadCommandConfig(deps)
			if err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, map[string]any{
					"db_path":       cfg.Storage.Path,
					"config_path":   report.ConfigPath,
					"config_loaded": report.ConfigLoaded,
				}))
			}
			_, err = fmt.Fprintf(
				deps.out,
				"db=%s config=%s (%s)\n",
				cfg.Storage.Path,
				report.ConfigPath,
				boolToState(report.ConfigLoaded, "loaded", "not found"),
			)
			return mapCommandError(err)
		},
	}
}
