package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/SigitArif/POS/internal/report"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newWatchCommand(deps commandDeps) *cobra.Command {
	var (
		from        string
		to          string
		metricsAddr string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live today and date-range totals as orders change",
		Example: "  pos watch\n" +
			"  pos watch --from 2026-04-01 --metrics-addr 127.0.0.1:9464",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("watch does not accept positional arguments")
			}
			if count < 0 {
				return usageErrorf("watch --count must not be negative")
			}
			return withLongRunningServices(cmd.Context(), deps, func(ctx context.Context, svc services) error {
				window, err := resolveWindow(from, to, svc.cfg.Report.DefaultRangeDays)
				if err != nil {
					return err
				}

				addr := svc.cfg.Metrics.ListenAddr
				if cmd.Flags().Changed("metrics-addr") {
					addr = metricsAddr
				}
				if strings.TrimSpace(addr) != "" {
					stop, err := serveMetrics(addr, svc)
					if err != nil {
						return err
					}
					defer stop()
				}

				return runWatch(ctx, deps, svc, window, count)
			})
		},
	}
	addWindowFlags(cmd, &from, &to)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many updates (0 runs until interrupted)")
	return cmd
}

func runWatch(ctx context.Context, deps commandDeps, svc services, window report.Window, count int) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stopSignals()

	sub, err := svc.orders.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	tracker := report.NewTracker(ctx, sub, window, nowFn)
	defer tracker.Close()

	seen := 0
	for summary := range tracker.Summaries() {
		if summary.Err != nil {
			svc.logger.Error("watch: order stream failed", "error", summary.Err)
			return summary.Err
		}
		if err := printSummary(deps, summary); err != nil {
			return err
		}
		seen++
		if count > 0 && seen >= count {
			return nil
		}
	}
	return nil
}

func serveMetrics(addr string, svc services) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("watch: listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.logger.Error("watch: metrics server stopped", "error", err)
		}
	}()
	svc.logger.Info("watch: serving metrics", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func printSummary(deps commandDeps, summary report.Summary) error {
	if deps.globals.JSON {
		return json.NewEncoder(deps.out).Encode(map[string]any{
			"at":            summary.At.Format(time.RFC3339),
			"today_revenue": formatMoney(summary.Today.Revenue),
			"today_profit":  formatMoney(summary.Today.Profit),
			"today_orders":  summary.Today.Orders,
			"from":          summary.Window.Start.Format(reportDateLayout),
			"to":            summary.Window.End.Format(reportDateLayout),
			"range_revenue": formatMoney(summary.Range.Revenue),
			"range_profit":  formatMoney(summary.Range.Profit),
			"range_orders":  summary.Range.Orders,
		})
	}
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(
		deps.out,
		"%s today revenue=%s profit=%s | %s..%s revenue=%s profit=%s orders=%d\n",
		summary.At.Format("15:04:05"),
		formatMoney(summary.Today.Revenue),
		formatMoney(summary.Today.Profit),
		summary.Window.Start.Format(reportDateLayout),
		summary.Window.End.Format(reportDateLayout),
		formatMoney(summary.Range.Revenue),
		formatMoney(summary.Range.Profit),
		summary.Range.Orders,
	)
	return err
}
