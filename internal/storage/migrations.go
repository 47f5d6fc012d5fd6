package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SigitArif/POS/internal/metrics"
)

// BaselineSchemaVersion is the oldest on-disk version that can be upgraded in
// place. Anything older is recreated empty.
const BaselineSchemaVersion = 3

// Migration upgrades the schema from Version-1 to Version inside one
// transaction. Up must be idempotent: applying it to an already-upgraded
// schema leaves column and row counts unchanged.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx, logger *slog.Logger) error
}

// MigrationReport describes what opening a store did to the schema.
type MigrationReport struct {
	FromVersion    int    `json:"from_version"`
	ToVersion      int    `json:"to_version"`
	Applied        []int  `json:"applied,omitempty"`
	Created        bool   `json:"created"`
	Recreated      bool   `json:"recreated"`
	RecreateReason string `json:"recreate_reason,omitempty"`
}

var defaultMigrations = []Migration{
	{
		Version:     4,
		Description: "add products base_price and product_code",
		Up:          migrateProductsV4,
	},
	{
		Version:     5,
		Description: "create sales_orders and sales_order_items",
		Up:          migrateSalesTablesV5,
	},
	{
		Version:     6,
		Description: "rekey sales tables with text identifiers",
		Up:          migrateTextKeysV6,
	},
	{
		Version:     7,
		Description: "snapshot product fields on sales_order_items",
		Up:          migrateItemSnapshotV7,
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// RunMigrations brings the database to the newest version in migrations.
//
// A database with no version stamp and no tables gets the target schema
// directly. Category values are folded on every upgrade path and on a file
// already at the target. A stamp below the baseline, or a failing step, triggers a
// destructive recreate of the whole store. A stamp newer than the code fails
// with ErrSchemaTooNew and leaves the file untouched.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration, logger *slog.Logger) (MigrationReport, error) {
	if db == nil {
		return MigrationReport{}, fmt.Errorf("run migrations: db is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	target := maxMigrationVersion(ordered)

	current, err := readSchemaVersion(ctx, db)
	if err != nil {
		return MigrationReport{}, err
	}
	report := MigrationReport{FromVersion: current, ToVersion: current}

	if current > target {
		return report, fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, target)
	}
	if current == target {
		if err := repairCategories(ctx, db, logger); err != nil {
			return report, err
		}
		return report, nil
	}

	if current == 0 {
		empty, err := hasNoUserTables(ctx, db)
		if err != nil {
			return report, err
		}
		if empty {
			if err := createTargetSchema(ctx, db, target); err != nil {
				return report, err
			}
			logger.Info("schema created", "version", target)
			report.ToVersion = target
			report.Created = true
			return report, nil
		}
	}

	if current < BaselineSchemaVersion {
		reason := fmt.Sprintf("schema version %d predates baseline %d", current, BaselineSchemaVersion)
		return recreateStore(ctx, db, target, reason, report, logger)
	}

	if err := ensureLedger(ctx, db); err != nil {
		return report, err
	}

	for _, migration := range ordered {
		if migration.Version <= report.ToVersion {
			continue
		}
		if err := applyMigration(ctx, db, migration, logger); err != nil {
			logger.Error("schema migration failed", "version", migration.Version, "error", err)
			return recreateStore(ctx, db, target, err.Error(), report, logger)
		}
		metrics.MigrationsAppliedTotal.WithLabelValues(strconv.Itoa(migration.Version)).Inc()
		logger.Info("schema migration applied", "version", migration.Version, "description", migration.Description)
		report.Applied = append(report.Applied, migration.Version)
		report.ToVersion = migration.Version
	}

	return report, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration, logger *slog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
	}

	if err := migration.Up(tx, logger); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
	}

	if err := recordMigration(tx, migration.Version, migration.Description); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
	}
	return nil
}

// repairCategories folds category values in a file that is already at the
// target version but was written without folding.
func repairCategories(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repair categories: begin tx: %w", err)
	}
	if err := normalizeCategories(tx, logger); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("repair categories: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repair categories: commit: %w", err)
	}
	return nil
}

func createTargetSchema(ctx context.Context, db *sql.DB, target int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create schema: begin tx: %w", err)
	}
	if err := buildTargetSchema(tx, target, "create schema"); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create schema: commit: %w", err)
	}
	return nil
}

// recreateStore drops every table and rebuilds the target schema. All data is
// lost; this is the last-resort path and is always logged.
func recreateStore(ctx context.Context, db *sql.DB, target int, reason string, report MigrationReport, logger *slog.Logger) (MigrationReport, error) {
	metrics.MigrationFallbacksTotal.WithLabelValues("store_recreate").Inc()
	logger.Warn("recreating store, existing data discarded", "from_version", report.FromVersion, "to_version", target, "reason", reason)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("recreate store: begin tx: %w", err)
	}

	tables, err := userTables(tx)
	if err != nil {
		_ = tx.Rollback()
		return report, fmt.Errorf("recreate store: %w", err)
	}
	for _, table := range tables {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + quoteIdent(table)); err != nil {
			_ = tx.Rollback()
			return report, fmt.Errorf("recreate store: drop %s: %w", table, err)
		}
	}

	if err := buildTargetSchema(tx, target, "recreate store"); err != nil {
		_ = tx.Rollback()
		return report, err
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("recreate store: commit: %w", err)
	}

	report.ToVersion = target
	report.Applied = nil
	report.Recreated = true
	report.RecreateReason = reason
	return report, nil
}

func buildTargetSchema(tx *sql.Tx, target int, op string) error {
	for _, stmt := range targetSchemaStatements() {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return recordMigration(tx, target, op)
}

func recordMigration(tx *sql.Tx, version int, description string) error {
	if _, err := tx.Exec(createMigrationsLedger); err != nil {
		return fmt.Errorf("record schema migration v%d: %w", version, err)
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO schema_migrations(version, description, applied_at) VALUES (?, ?, ?)`,
		version, description, nowUTCString(),
	); err != nil {
		return fmt.Errorf("record schema migration v%d: %w", version, err)
	}
	// PRAGMA arguments cannot be bound.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("stamp schema version v%d: %w", version, err)
	}
	return nil
}

func ensureLedger(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createMigrationsLedger); err != nil {
		return fmt.Errorf("create migrations ledger: %w", err)
	}
	return nil
}

func readSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func hasNoUserTables(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> 'schema_migrations'
	`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect tables: %w", err)
	}
	return count == 0, nil
}

func userTables(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func maxMigrationVersion(migrations []Migration) int {
	maxVersion := 0
	for _, migration := range migrations {
		if migration.Version > maxVersion {
			maxVersion = migration.Version
		}
	}
	return maxVersion
}

type columnInfo struct {
	Name    string
	Type    string
	NotNull bool
}

func tableColumns(tx *sql.Tx, table string) ([]columnInfo, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		cols = append(cols, columnInfo{Name: name, Type: strings.ToUpper(colType), NotNull: notNull != 0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return cols, nil
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	cols, err := tableColumns(tx, table)
	if err != nil {
		return false, err
	}
	for _, col := range cols {
		if strings.EqualFold(col.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

func columnType(tx *sql.Tx, table, column string) (string, bool, error) {
	cols, err := tableColumns(tx, table)
	if err != nil {
		return "", false, err
	}
	for _, col := range cols {
		if strings.EqualFold(col.Name, column) {
			return col.Type, true, nil
		}
	}
	return "", false, nil
}

func tableExists(tx *sql.Tx, table string) (bool, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func nowUTCString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
