package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/SigitArif/POS/internal/metrics"
)

const (
	createProductsTableV3 = `
		CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price REAL NOT NULL,
			category TEXT NOT NULL
		)`

	createSalesOrdersTableV5 = `
		CREATE TABLE IF NOT EXISTS sales_orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date_time INTEGER NOT NULL,
			total_revenue REAL NOT NULL,
			total_profit REAL NOT NULL
		)`

	createSalesOrderItemsTableV5 = `
		CREATE TABLE IF NOT EXISTS sales_order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sales_order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			profit REAL NOT NULL
		)`

	salesOrdersColumnsV6 = `(
			id TEXT NOT NULL PRIMARY KEY,
			date_time INTEGER NOT NULL,
			total_revenue REAL NOT NULL,
			total_profit REAL NOT NULL
		)`

	salesOrderItemsColumnsV6 = `(
			id TEXT NOT NULL PRIMARY KEY,
			sales_order_id TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			profit REAL NOT NULL
		)`
)

func migrateProductsV4(tx *sql.Tx, logger *slog.Logger) error {
	for _, stmt := range []string{createProductsTableV3, createCategoriesTable} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	hasBasePrice, err := columnExists(tx, tableProducts, "base_price")
	if err != nil {
		return err
	}
	if !hasBasePrice {
		if _, err := tx.Exec(`ALTER TABLE products ADD COLUMN base_price REAL NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add base_price: %w", err)
		}
		if _, err := tx.Exec(`UPDATE products SET base_price = price`); err != nil {
			return fmt.Errorf("backfill base_price: %w", err)
		}
	}

	hasCode, err := columnExists(tx, tableProducts, "product_code")
	if err != nil {
		return err
	}
	if !hasCode {
		if _, err := tx.Exec(`ALTER TABLE products ADD COLUMN product_code TEXT`); err != nil {
			return fmt.Errorf("add product_code: %w", err)
		}
	}
	return normalizeCategories(tx, logger)
}

// normalizeCategories rewrites category values stored before names were
// folded on write, then rebuilds categories from the merged names so every
// product category is listed once. Folding runs in Go because SQLite lower()
// only handles ASCII.
func normalizeCategories(tx *sql.Tx, logger *slog.Logger) error {
	hasProducts, err := tableExists(tx, tableProducts)
	if err != nil {
		return err
	}
	hasCategories, err := tableExists(tx, tableCategories)
	if err != nil {
		return err
	}

	var productValues, categoryNames []string
	if hasProducts {
		if productValues, err = queryStrings(tx, `SELECT DISTINCT category FROM products`); err != nil {
			return fmt.Errorf("normalize categories: %w", err)
		}
	}
	if hasCategories {
		if categoryNames, err = queryStrings(tx, `SELECT name FROM categories`); err != nil {
			return fmt.Errorf("normalize categories: %w", err)
		}
	}

	rewritten := 0
	for _, value := range productValues {
		normalized := NormalizeCategory(value)
		if normalized == value {
			continue
		}
		if _, err := tx.Exec(`UPDATE products SET category = ? WHERE category = ?`, normalized, value); err != nil {
			return fmt.Errorf("normalize product category %q: %w", value, err)
		}
		rewritten++
	}
	if !hasCategories {
		return nil
	}

	changed := false
	merged := make(map[string]struct{}, len(categoryNames))
	for _, name := range categoryNames {
		normalized := NormalizeCategory(name)
		if normalized != name {
			changed = true
		}
		if normalized != "" {
			merged[normalized] = struct{}{}
		}
	}
	for _, value := range productValues {
		normalized := NormalizeCategory(value)
		if normalized == "" {
			continue
		}
		if _, ok := merged[normalized]; !ok {
			merged[normalized] = struct{}{}
			changed = true
		}
	}
	if !changed && rewritten == 0 {
		return nil
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := tx.Exec(`DELETE FROM categories`); err != nil {
		return fmt.Errorf("normalize categories: clear: %w", err)
	}
	for _, name := range names {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO categories(name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("normalize categories: insert %q: %w", name, err)
		}
	}
	logger.Info("categories normalized", "product_values", rewritten, "categories", len(names))
	return nil
}

func queryStrings(tx *sql.Tx, query string) ([]string, error) {
	rows, err := tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func migrateSalesTablesV5(tx *sql.Tx, _ *slog.Logger) error {
	for _, stmt := range []string{createSalesOrdersTableV5, createSalesOrderItemsTableV5, createItemsOrderIndex} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type rekeySpec struct {
	table    string
	columns  string
	copyCols []string
	textKeys []string
}

func migrateTextKeysV6(tx *sql.Tx, logger *slog.Logger) error {
	specs := []rekeySpec{
		{
			table:    tableSalesOrders,
			columns:  salesOrdersColumnsV6,
			copyCols: []string{"id", "date_time", "total_revenue", "total_profit"},
			textKeys: []string{"id"},
		},
		{
			table:    tableSalesOrderItems,
			columns:  salesOrderItemsColumnsV6,
			copyCols: itemColumnsV6,
			textKeys: []string{"id", "sales_order_id"},
		},
	}
	for _, spec := range specs {
		if err := rekeyTable(tx, spec, logger); err != nil {
			return fmt.Errorf("rekey %s: %w", spec.table, err)
		}
	}
	for _, stmt := range []string{createSalesOrdersDateIndex, createItemsOrderIndex} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rekeyTable rebuilds a table through a shadow copy so its key columns carry
// text values. Tables already keyed by text are left alone.
func rekeyTable(tx *sql.Tx, spec rekeySpec, logger *slog.Logger) error {
	exists, err := tableExists(tx, spec.table)
	if err != nil {
		return err
	}
	if !exists {
		_, err := tx.Exec(`CREATE TABLE ` + quoteIdent(spec.table) + ` ` + spec.columns)
		return err
	}

	needsRekey := false
	for _, key := range spec.textKeys {
		colType, ok, err := columnType(tx, spec.table, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("column %s missing", key)
		}
		if colType != "TEXT" {
			needsRekey = true
		}
	}
	if !needsRekey {
		return nil
	}

	isKey := make(map[string]bool, len(spec.textKeys))
	for _, key := range spec.textKeys {
		isKey[key] = true
	}
	selects := make([]string, 0, len(spec.copyCols))
	for _, col := range spec.copyCols {
		if isKey[col] {
			selects = append(selects, fmt.Sprintf("CAST(%s AS TEXT)", quoteIdent(col)))
			continue
		}
		selects = append(selects, quoteIdent(col))
	}

	shadow := spec.table + "_v6"
	stmts := []string{
		`DROP TABLE IF EXISTS ` + quoteIdent(shadow),
		`CREATE TABLE ` + quoteIdent(shadow) + ` ` + spec.columns,
		fmt.Sprintf(`INSERT INTO %s(%s) SELECT %s FROM %s`,
			quoteIdent(shadow), joinIdents(spec.copyCols), strings.Join(selects, ", "), quoteIdent(spec.table)),
		`DROP TABLE ` + quoteIdent(spec.table),
		`ALTER TABLE ` + quoteIdent(shadow) + ` RENAME TO ` + quoteIdent(spec.table),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	logger.Info("table rekeyed with text identifiers", "table", spec.table)
	return nil
}

// migrateItemSnapshotV7 folds legacy category values and adds the product
// snapshot columns to sales_order_items.
func migrateItemSnapshotV7(tx *sql.Tx, logger *slog.Logger) error {
	if err := normalizeCategories(tx, logger); err != nil {
		return err
	}
	return migrateItemsTableV7(tx, logger)
}

// migrateItemsTableV7 escalates through three tiers: a targeted ALTER when
// the table is exactly the v6 shape, a recreate-and-copy of the columns the
// old and new shapes share, and finally an empty recreate of the table.
func migrateItemsTableV7(tx *sql.Tx, logger *slog.Logger) error {
	exists, err := tableExists(tx, tableSalesOrderItems)
	if err != nil {
		return err
	}
	if !exists {
		return createItemsTable(tx)
	}

	cols, err := tableColumns(tx, tableSalesOrderItems)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(cols))
	for _, col := range cols {
		present[strings.ToLower(col.Name)] = true
	}

	if sameColumnSet(present, itemColumnsV7) {
		return nil
	}

	if sameColumnSet(present, itemColumnsV6) {
		err := withSavepoint(tx, "v7_repair", func() error {
			for _, stmt := range []string{
				`ALTER TABLE sales_order_items ADD COLUMN product_code TEXT`,
				`ALTER TABLE sales_order_items ADD COLUMN product_name TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE sales_order_items ADD COLUMN product_category TEXT NOT NULL DEFAULT ''`,
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		logger.Warn("sales_order_items targeted repair failed", "error", err)
	} else {
		logger.Warn("sales_order_items in unexpected shape", "columns", len(cols))
	}

	metrics.MigrationFallbacksTotal.WithLabelValues("rebuild").Inc()
	err = withSavepoint(tx, "v7_rebuild", func() error {
		return rebuildItemsTable(tx, present)
	})
	if err == nil {
		logger.Info("sales_order_items rebuilt with shared columns copied")
		return nil
	}
	logger.Warn("sales_order_items rebuild failed, recreating empty", "error", err)

	metrics.MigrationFallbacksTotal.WithLabelValues("recreate").Inc()
	return withSavepoint(tx, "v7_recreate", func() error {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS sales_order_items`); err != nil {
			return err
		}
		return createItemsTable(tx)
	})
}

func rebuildItemsTable(tx *sql.Tx, present map[string]bool) error {
	shared := make([]string, 0, len(itemColumnsV7))
	selects := make([]string, 0, len(itemColumnsV7))
	for _, col := range itemColumnsV7 {
		if !present[col] {
			continue
		}
		shared = append(shared, col)
		if fallback, ok := itemColumnFallbacks[col]; ok {
			selects = append(selects, fmt.Sprintf("COALESCE(%s, %s)", quoteIdent(col), fallback))
			continue
		}
		selects = append(selects, quoteIdent(col))
	}

	stmts := []string{
		`DROP TABLE IF EXISTS sales_order_items_v7`,
		`CREATE TABLE sales_order_items_v7 ` + salesOrderItemsColumns,
	}
	if len(shared) > 0 {
		stmts = append(stmts, fmt.Sprintf(
			`INSERT INTO sales_order_items_v7(%s) SELECT %s FROM sales_order_items`,
			joinIdents(shared), strings.Join(selects, ", "),
		))
	}
	stmts = append(stmts,
		`DROP TABLE sales_order_items`,
		`ALTER TABLE sales_order_items_v7 RENAME TO sales_order_items`,
		createItemsOrderIndex,
	)
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func createItemsTable(tx *sql.Tx) error {
	for _, stmt := range []string{createSalesOrderItemsTable, createItemsOrderIndex} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func withSavepoint(tx *sql.Tx, name string, fn func() error) error {
	if _, err := tx.Exec(`SAVEPOINT ` + name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_, _ = tx.Exec(`ROLLBACK TO ` + name)
		_, _ = tx.Exec(`RELEASE ` + name)
		return err
	}
	_, err := tx.Exec(`RELEASE ` + name)
	return err
}

func sameColumnSet(present map[string]bool, want []string) bool {
	if len(present) != len(want) {
		return false
	}
	for _, col := range want {
		if !present[col] {
			return false
		}
	}
	return true
}

func joinIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}
