package cli

import (
	"context"
	"fmt"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/spf13/cobra"
)

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database location, schema version and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				version, err := svc.store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				products, err := svc.products.List(ctx, storage.ProductFilter{})
				if err != nil {
					return err
				}
				categories, err := svc.categories.List(ctx)
				if err != nil {
					return err
				}
				orders, err := svc.orders.List(ctx)
				if err != nil {
					return err
				}

				payload := map[string]any{
					"db_path":        svc.store.Path(),
					"schema_version": version,
					"products":       len(products),
					"categories":     len(categories),
					"orders":         len(orders),
				}
				if deps.globals.JSON {
					return printJSON(deps.out, payload)
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(
					deps.out,
					"db=%s schema=v%d products=%d categories=%d orders=%d\n",
					svc.store.Path(),
					version,
					len(products),
					len(categories),
					len(orders),
				)
				return err
			})
		},
	}
}

func newDoctorCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run config and database health checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("doctor does not accept positional arguments")
			}

			type doctorCheck struct {
				Name    string `json:"name"`
				OK      bool   `json:"ok"`
				Message string `json:"message"`
			}
			checks := []doctorCheck{}

			cfg, report, cfgErr := loadCommandConfig(deps)
			if cfgErr != nil {
				checks = append(checks, doctorCheck{Name: "config", OK: false, Message: cfgErr.Error()})
			} else {
				checks = append(checks, doctorCheck{
					Name:    "config",
					OK:      true,
					Message: fmt.Sprintf("%s (%s)", report.ConfigPath, boolToState(report.ConfigLoaded, "loaded", "defaults")),
				})

				store, openErr := storage.Open(cmd.Context(), storage.Options{
					Path:        cfg.Storage.Path,
					BusyTimeout: cfg.Storage.BusyTimeout,
				})
				if openErr != nil {
					checks = append(checks, doctorCheck{Name: "database", OK: false, Message: openErr.Error()})
				} else {
					version, versionErr := store.SchemaVersion(cmd.Context())
					_ = store.Close()
					switch {
					case versionErr != nil:
						checks = append(checks, doctorCheck{Name: "database", OK: false, Message: versionErr.Error()})
					case version != storage.CurrentSchemaVersion():
						checks = append(checks, doctorCheck{
							Name:    "database",
							OK:      false,
							Message: fmt.Sprintf("schema v%d, expected v%d", version, storage.CurrentSchemaVersion()),
						})
					default:
						checks = append(checks, doctorCheck{
							Name:    "database",
							OK:      true,
							Message: fmt.Sprintf("%s (schema v%d)", cfg.Storage.Path, version),
						})
					}
				}
			}

			if deps.globals.JSON {
				if err := printJSON(deps.out, map[string]any{"checks": checks}); err != nil {
					return mapCommandError(err)
				}
			} else if !deps.globals.Quiet {
				for _, check := range checks {
					if _, err := fmt.Fprintf(deps.out, "%s: %s (%s)\n", check.Name, boolToState(check.OK, "ok", "fail"), check.Message); err != nil {
						return mapCommandError(err)
					}
				}
			}

			for _, check := range checks {
				if !check.OK {
					return asExitError(ExitCodeHealthCheck, fmt.Errorf("doctor: one or more checks failed"))
				}
			}
			return nil
		},
	}
}
