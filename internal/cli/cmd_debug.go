package cli

import (
	"context"
	"fmt"
	"strings"

	debugpkg "github.com/SigitArif/POS/internal/debug"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/spf13/cobra"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debug",
		Short:   "Diagnostics helpers",
		Example: "  pos debug bundle --output ./pos-debug.json",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Collect database and build diagnostics into a JSON bundle",
		Example: "  pos debug bundle --output ./pos-debug.json\n" +
			"  pos --json debug bundle --output ./pos-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("debug bundle does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("debug bundle requires --output")
			}

			bundle := debugpkg.NewBundle(nowFn())
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}

			_, report, cfgErr := loadCommandConfig(deps)
			bundle.AddCheck("config", cfgErr, fmt.Sprintf("%s (%s)", report.ConfigPath, boolToState(report.ConfigLoaded, "loaded", "defaults")))
			if cfgErr == nil {
				storeErr := withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
					info, err := collectStoreInfo(ctx, svc)
					if err != nil {
						return err
					}
					bundle.Store = info
					if info.Migration.Recreated {
						bundle.Notes = append(bundle.Notes, "database was recreated: "+info.Migration.RecreateReason)
					}
					return nil
				})
				bundle.AddCheck("database", storeErr, "reachable")
			}

			if err := debugpkg.WriteBundle(outputPath, bundle); err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{"output": outputPath, "healthy": bundle.Healthy()})
			}
			if deps.globals.Quiet {
				return nil
			}
			_, err := fmt.Fprintf(deps.out, "debug bundle written: %s\n", outputPath)
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON bundle path")
	return cmd
}

func collectStoreInfo(ctx context.Context, svc services) (*debugpkg.StoreInfo, error) {
	version, err := svc.store.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	history, err := svc.store.MigrationHistory(ctx)
	if err != nil {
		return nil, err
	}
	products, err := svc.products.List(ctx, storage.ProductFilter{})
	if err != nil {
		return nil, err
	}
	categories, err := svc.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := svc.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	return &debugpkg.StoreInfo{
		Path:                svc.store.Path(),
		SchemaVersion:       version,
		SupportedVersion:    storage.CurrentSchemaVersion(),
		Migration:           svc.store.Migration(),
		History:             history,
		Products:            len(products),
		Categories:          len(categories),
		Orders:              len(orders),
		ActiveSubscriptions: svc.store.ActiveSubscriptions(),
	}, nil
}
