package storage

// Target (v7) table definitions. Column order matches what an in-place
// upgrade from the oldest supported file produces.
const (
	createProductsTable = `
		CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price REAL NOT NULL,
			category TEXT NOT NULL,
			base_price REAL NOT NULL DEFAULT 0,
			product_code TEXT
		)`

	createCategoriesTable = `
		CREATE TABLE IF NOT EXISTS categories (
			name TEXT NOT NULL PRIMARY KEY
		)`

	createSalesOrdersTable = `
		CREATE TABLE IF NOT EXISTS sales_orders (
			id TEXT NOT NULL PRIMARY KEY,
			date_time INTEGER NOT NULL,
			total_revenue REAL NOT NULL,
			total_profit REAL NOT NULL
		)`

	salesOrderItemsColumns = `(
			id TEXT NOT NULL PRIMARY KEY,
			sales_order_id TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			profit REAL NOT NULL,
			product_code TEXT,
			product_name TEXT NOT NULL DEFAULT '',
			product_category TEXT NOT NULL DEFAULT ''
		)`

	createSalesOrderItemsTable = `CREATE TABLE IF NOT EXISTS sales_order_items ` + salesOrderItemsColumns

	createSalesOrdersDateIndex = `CREATE INDEX IF NOT EXISTS idx_sales_orders_date_time ON sales_orders(date_time)`
	createItemsOrderIndex      = `CREATE INDEX IF NOT EXISTS idx_sales_order_items_order ON sales_order_items(sales_order_id)`

	createMigrationsLedger = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`
)

var (
	// Columns of sales_order_items as left by v6.
	itemColumnsV6 = []string{"id", "sales_order_id", "product_id", "quantity", "price", "profit"}

	// Snapshot columns added by v7.
	itemSnapshotColumns = []string{"product_code", "product_name", "product_category"}

	itemColumnsV7 = append(append([]string{}, itemColumnsV6...), itemSnapshotColumns...)

	// Values copied in place of NULL when a drifted items table is rebuilt
	// into NOT NULL target columns.
	itemColumnFallbacks = map[string]string{
		"product_name":     "''",
		"product_category": "''",
	}
)

func targetSchemaStatements() []string {
	return []string{
		createProductsTable,
		createCategoriesTable,
		createSalesOrdersTable,
		createSalesOrderItemsTable,
		createSalesOrdersDateIndex,
		createItemsOrderIndex,
	}
}
