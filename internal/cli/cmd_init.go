package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SigitArif/POS/internal/app"
	"github.com/spf13/cobra"
)

const defaultInitConfig = `[storage]
path = ""
busy_timeout = "5s"

[logging]
level = "info"
format = "json"
file = ""
max_size_mb = 10
max_files = 5
compress = false

[report]
default_range_days = 7

[metrics]
listen_addr = ""
`

func newInitCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the database",
		Example: "  pos init\n" +
			"  pos --config ./pos.toml --db ./pos.db --yes init",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}

			_, report, err := loadCommandConfig(deps)
			if err != nil {
				return mapCommandError(err)
			}
			configPath := report.ConfigPath
			yes := deps.globals != nil && deps.globals.Yes

			if err := writeDefaultConfig(configPath, yes); err != nil {
				return mapCommandError(err)
			}

			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				version, err := svc.store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"initialized":    true,
						"db_path":        svc.store.Path(),
						"config_path":    configPath,
						"schema_version": version,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				if _, err := fmt.Fprintf(deps.out, "initialized database: %s (schema v%d)\n", svc.store.Path(), version); err != nil {
					return err
				}
				_, err = fmt.Fprintf(deps.out, "wrote config: %s\n", configPath)
				return err
			})
		},
	}
}

// writeDefaultConfig leaves an existing file alone unless overwrite is set.
func writeDefaultConfig(path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: config path is required", app.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("init: create config directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("init: stat config path: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultInitConfig), 0o600); err != nil {
		return fmt.Errorf("init: write config: %w", err)
	}
	return nil
}
