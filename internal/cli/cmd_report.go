package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SigitArif/POS/internal/report"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/spf13/cobra"
)

const reportDateLayout = "2006-01-02"

func newReportCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Revenue and profit reports",
		Example: "  pos report today\n" +
			"  pos report range --from 2026-04-01 --to 2026-04-30\n" +
			"  pos report export --output april.xlsx --from 2026-04-01 --to 2026-04-30",
	}
	cmd.AddCommand(
		newReportTodayCommand(deps),
		newReportRangeCommand(deps),
		newReportExportCommand(deps),
	)
	return cmd
}

func newReportTodayCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Revenue and profit since local midnight",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("report today does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				orders, err := svc.orders.List(ctx)
				if err != nil {
					return err
				}
				return printRollup(deps, "today", report.Today(orders, nowFn()), nil)
			})
		},
	}
}

func newReportRangeCommand(deps commandDeps) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Revenue and profit over an inclusive date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("report range does not accept positional arguments")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				window, err := resolveWindow(from, to, svc.cfg.Report.DefaultRangeDays)
				if err != nil {
					return err
				}
				orders, err := svc.orders.List(ctx)
				if err != nil {
					return err
				}
				return printRollup(deps, "range", report.Range(orders, window), &window)
			})
		},
	}
	addWindowFlags(cmd, &from, &to)
	return cmd
}

func newReportExportCommand(deps commandDeps) *cobra.Command {
	var from, to, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the orders of a date range to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("report export does not accept positional arguments")
			}
			if strings.TrimSpace(output) == "" {
				return usageErrorf("report export requires --output")
			}
			return withServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				window, err := resolveWindow(from, to, svc.cfg.Report.DefaultRangeDays)
				if err != nil {
					return err
				}
				orders, err := svc.orders.List(ctx)
				if err != nil {
					return err
				}
				if err := writeWorkbook(output, orders, window); err != nil {
					return err
				}

				rollup := report.Range(orders, window)
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"output": output,
						"window": window,
						"orders": rollup.Orders,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "exported %d orders: %s\n", rollup.Orders, output)
				return err
			})
		},
	}
	addWindowFlags(cmd, &from, &to)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination .xlsx file")
	return cmd
}

func addWindowFlags(cmd *cobra.Command, from, to *string) {
	cmd.Flags().StringVar(from, "from", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(to, "to", "", "Last day of the range (YYYY-MM-DD, defaults to today)")
}

// resolveWindow builds the report window from the flags. Without --from the
// window covers the last defaultDays days including today.
func resolveWindow(from, to string, defaultDays int) (report.Window, error) {
	now := nowFn()
	end := now
	if strings.TrimSpace(to) != "" {
		parsed, err := time.ParseInLocation(reportDateLayout, strings.TrimSpace(to), now.Location())
		if err != nil {
			return report.Window{}, usageErrorf("invalid --to %q: expected YYYY-MM-DD", to)
		}
		end = parsed
	}
	if strings.TrimSpace(from) == "" {
		if defaultDays < 1 {
			defaultDays = 1
		}
		return report.LastDays(end, defaultDays-1), nil
	}
	start, err := time.ParseInLocation(reportDateLayout, strings.TrimSpace(from), now.Location())
	if err != nil {
		return report.Window{}, usageErrorf("invalid --from %q: expected YYYY-MM-DD", from)
	}
	return report.NewWindow(start, end), nil
}

func writeWorkbook(path string, orders []storage.SalesOrder, window report.Window) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create output directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("export: open output: %w", err)
	}
	if err := report.WriteXLSX(file, orders, window); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: close output: %w", err)
	}
	return nil
}

func printRollup(deps commandDeps, label string, rollup report.Rollup, window *report.Window) error {
	if deps.globals.JSON {
		payload := map[string]any{
			"report":  label,
			"revenue": formatMoney(rollup.Revenue),
			"profit":  formatMoney(rollup.Profit),
			"orders":  rollup.Orders,
		}
		if window != nil {
			payload["from"] = window.Start.Format(reportDateLayout)
			payload["to"] = window.End.Format(reportDateLayout)
		}
		return printJSON(deps.out, payload)
	}
	if deps.globals.Quiet {
		return nil
	}
	if window != nil {
		_, err := fmt.Fprintf(
			deps.out,
			"%s from=%s to=%s orders=%d revenue=%s profit=%s\n",
			label,
			window.Start.Format(reportDateLayout),
			window.End.Format(reportDateLayout),
			rollup.Orders,
			formatMoney(rollup.Revenue),
			formatMoney(rollup.Profit),
		)
		return err
	}
	_, err := fmt.Fprintf(
		deps.out,
		"%s orders=%d revenue=%s profit=%s\n",
		label,
		rollup.Orders,
		formatMoney(rollup.Revenue),
		formatMoney(rollup.Profit),
	)
	return err
}
