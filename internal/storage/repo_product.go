package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price, category, base_price, product_code`

type productRepository struct {
	db   *sqlx.DB
	feed *changeFeed
}

type productRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Price       float64        `db:"price"`
	Category    string         `db:"category"`
	BasePrice   float64        `db:"base_price"`
	ProductCode sql.NullString `db:"product_code"`
}

func (r productRow) toProduct() Product {
	return Product{
		ID:           r.ID,
		Name:         r.Name,
		SellingPrice: decimal.NewFromFloat(r.Price),
		BasePrice:    decimal.NewFromFloat(r.BasePrice),
		ProductCode:  stringPtr(r.ProductCode),
		Category:     r.Category,
	}
}

func (r *productRepository) SubscribeAll(ctx context.Context) (*Subscription[Product], error) {
	return r.SubscribeFiltered(ctx, ProductFilter{})
}

func (r *productRepository) SubscribeFiltered(ctx context.Context, filter ProductFilter) (*Subscription[Product], error) {
	return subscribe(ctx, r.feed, func(ctx context.Context) ([]Product, error) {
		return r.List(ctx, filter)
	}, tableProducts)
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if !isAllCategories(filter.Category) {
		where = append(where, "lower(trim(category)) = ?")
		args = append(args, NormalizeCategory(filter.Category))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, "instr(lower(name), ?) > 0")
		args = append(args, strings.ToLower(search))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.Descending {
		query += ` ORDER BY name COLLATE NOCASE DESC, id DESC`
	} else {
		query += ` ORDER BY name COLLATE NOCASE ASC, id ASC`
	}

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toProduct())
	}
	return out, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (*Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	product := row.toProduct()
	return &product, nil
}

// GetMany returns the products with the given ids in id order. Unknown ids
// are skipped.
func (r *productRepository) GetMany(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: build query: %w", err)
	}

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toProduct())
	}
	return out, nil
}

func (r *productRepository) Insert(ctx context.Context, product *Product) (int64, error) {
	if product == nil {
		return 0, fmt.Errorf("insert product: product is nil")
	}
	ids, err := r.InsertBatch(ctx, []Product{*product})
	if err != nil {
		return 0, err
	}
	product.ID = ids[0]
	product.Category = NormalizeCategory(product.Category)
	return ids[0], nil
}

// InsertBatch writes all products in one transaction and returns the
// assigned ids in input order. A non-zero ID is kept as given. Each product's
// category is registered in the same transaction.
func (r *productRepository) InsertBatch(ctx context.Context, products []Product) ([]int64, error) {
	if len(products) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert product: begin tx: %w", err)
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert product: name is required")
		}
		var id any
		if p.ID != 0 {
			id = p.ID
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO products(id, name, price, category, base_price, product_code)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, p.Name, money(p.SellingPrice), NormalizeCategory(p.Category), money(p.BasePrice), nullableString(p.ProductCode))
		if err != nil {
			_ = tx.Rollback()
			metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
			return nil, fmt.Errorf("insert product: %w", err)
		}
		newID, err := result.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert product: last insert id: %w", err)
		}
		ids = append(ids, newID)
		if err := registerCategory(ctx, tx, p.Category); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
		return nil, fmt.Errorf("insert product: commit: %w", err)
	}
	r.committed("insert", tableCategories)
	return ids, nil
}

func (r *productRepository) Update(ctx context.Context, product *Product) error {
	if product == nil {
		return fmt.Errorf("update product: product is nil")
	}
	if product.ID == 0 {
		return fmt.Errorf("update product: id is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update product: begin tx: %w", err)
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, price = ?, category = ?, base_price = ?, product_code = ?
		WHERE id = ?
	`, product.Name, money(product.SellingPrice), NormalizeCategory(product.Category), money(product.BasePrice), nullableString(product.ProductCode), product.ID)
	if err != nil {
		_ = tx.Rollback()
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
		return fmt.Errorf("update product: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update product: rows affected: %w", err)
	}
	if count == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}
	if err := registerCategory(ctx, tx, product.Category); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
		return fmt.Errorf("update product: commit: %w", err)
	}
	product.Category = NormalizeCategory(product.Category)
	r.committed("update", tableCategories)
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
		return fmt.Errorf("delete product: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	r.committed("delete")
	return nil
}

func (r *productRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM products`); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableProducts).Inc()
		return fmt.Errorf("delete all products: %w", err)
	}
	r.committed("delete_all")
	return nil
}

func (r *productRepository) CountByCategory(ctx context.Context, category string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products WHERE lower(trim(category)) = ?`, NormalizeCategory(category)); err != nil {
		return 0, fmt.Errorf("count products by category: %w", err)
	}
	return count, nil
}

func (r *productRepository) committed(op string, also ...string) {
	metrics.StorageWritesTotal.WithLabelValues(tableProducts, op).Inc()
	r.feed.publish(append([]string{tableProducts}, also...)...)
}

// registerCategory inserts the normalized name unless it is blank or
// already present.
func registerCategory(ctx context.Context, tx *sqlx.Tx, category string) error {
	name := NormalizeCategory(category)
	if name == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories(name) VALUES (?)`, name); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
		return fmt.Errorf("register category %q: %w", name, err)
	}
	return nil
}
