package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/SigitArif/POS/internal/app"
	"github.com/SigitArif/POS/internal/config"
	poslog "github.com/SigitArif/POS/internal/log"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
)

const defaultCommandTimeout = 30 * time.Second

var (
	loadConfigFn = config.Load
	nowFn        = time.Now
	logOutput    io.Writer = os.Stderr
)

type services struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.Store
	products   *app.ProductService
	categories *app.CategoryService
	orders     *app.SalesOrderService
}

func loadCommandConfig(deps commandDeps) (config.Config, config.LoadReport, error) {
	loadOpts := config.LoadOptions{}
	if deps.globals != nil {
		if configPath := strings.TrimSpace(deps.globals.ConfigPath); configPath != "" {
			loadOpts.ConfigPath = configPath
		}
		if dbPath := strings.TrimSpace(deps.globals.DBPath); dbPath != "" {
			loadOpts.Flags.DBPath = &dbPath
		}
		if level := strings.TrimSpace(deps.globals.LogLevel); level != "" {
			loadOpts.Flags.LogLevel = &level
		}
	}
	cfg, report, err := loadConfigFn(loadOpts)
	if err != nil {
		return config.Config{}, report, fmt.Errorf("load config: %w", err)
	}
	return cfg, report, nil
}

// withServices runs fn against an open store under the command timeout.
func withServices(cmdCtx context.Context, deps commandDeps, fn func(context.Context, services) error) error {
	timeout := defaultCommandTimeout
	if deps.globals != nil && deps.globals.Timeout > 0 {
		timeout = deps.globals.Timeout
	}
	ctx, cancel := context.WithTimeout(cmdCtx, timeout)
	defer cancel()
	return runWithServices(ctx, deps, fn)
}

// withLongRunningServices is withServices without the default timeout. An
// explicit --timeout still bounds it.
func withLongRunningServices(cmdCtx context.Context, deps commandDeps, fn func(context.Context, services) error) error {
	ctx := cmdCtx
	if deps.globals != nil && deps.globals.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(cmdCtx, deps.globals.Timeout)
		defer cancel()
	}
	return runWithServices(ctx, deps, fn)
}

func runWithServices(ctx context.Context, deps commandDeps, fn func(context.Context, services) error) error {
	cfg, _, err := loadCommandConfig(deps)
	if err != nil {
		return mapCommandError(err)
	}

	logger, logCloser, err := poslog.NewLogger(poslog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		Compress:  cfg.Logging.Compress,
	}, logOutput)
	if err != nil {
		return mapCommandError(fmt.Errorf("init logger: %w", err))
	}
	defer logCloser.Close()

	handle := storage.NewHandle(storage.Options{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
		Logger:      logger,
	})
	defer handle.Close()

	store, err := handle.Get(ctx)
	if err != nil {
		return mapCommandError(fmt.Errorf("open store: %w", err))
	}

	svc := services{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		products:   app.NewProductService(store.Products),
		categories: app.NewCategoryService(store.Categories),
		orders: app.NewSalesOrderService(
			store.SalesOrders,
			store.SalesOrderItems,
			store.Products,
			app.WithClock(nowFn),
			app.WithLogger(logger),
		),
	}
	return mapCommandError(fn(ctx, svc))
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func boolToState(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseMoney(flag, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, usageErrorf("--%s must be a decimal amount: %q", flag, raw)
	}
	return value, nil
}
