package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const salesOrderItemColumns = `id, sales_order_id, product_id, quantity, price, profit, product_code, product_name, product_category`

type salesOrderItemRepository struct {
	db   *sqlx.DB
	feed *changeFeed
}

type salesOrderItemRow struct {
	ID              string         `db:"id"`
	SalesOrderID    string         `db:"sales_order_id"`
	ProductID       int64          `db:"product_id"`
	Quantity        int            `db:"quantity"`
	Price           float64        `db:"price"`
	Profit          float64        `db:"profit"`
	ProductCode     sql.NullString `db:"product_code"`
	ProductName     string         `db:"product_name"`
	ProductCategory string         `db:"product_category"`
}

func (r salesOrderItemRow) toItem() SalesOrderItem {
	return SalesOrderItem{
		ID:              r.ID,
		SalesOrderID:    r.SalesOrderID,
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		Price:           decimal.NewFromFloat(r.Price),
		Profit:          decimal.NewFromFloat(r.Profit),
		ProductCode:     stringPtr(r.ProductCode),
		ProductName:     r.ProductName,
		ProductCategory: r.ProductCategory,
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItem(ctx context.Context, exec execer, item *SalesOrderItem) error {
	if item.SalesOrderID == "" {
		return fmt.Errorf("insert sales order item: sales order id is required")
	}
	_, err := exec.ExecContext(ctx, `
		INSERT OR REPLACE INTO sales_order_items(`+salesOrderItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.SalesOrderID,
		item.ProductID,
		item.Quantity,
		money(item.Price),
		money(item.Profit),
		nullableString(item.ProductCode),
		item.ProductName,
		item.ProductCategory,
	)
	if err != nil {
		return fmt.Errorf("insert sales order item: %w", err)
	}
	return nil
}

func (r *salesOrderItemRepository) SubscribeByOrder(ctx context.Context, orderID string) (*Subscription[SalesOrderItem], error) {
	return subscribe(ctx, r.feed, func(ctx context.Context) ([]SalesOrderItem, error) {
		return r.ListByOrder(ctx, orderID)
	}, tableSalesOrderItems)
}

func (r *salesOrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]SalesOrderItem, error) {
	var rows []salesOrderItemRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+salesOrderItemColumns+` FROM sales_order_items
		WHERE sales_order_id = ?
		ORDER BY rowid ASC
	`, orderID); err != nil {
		return nil, fmt.Errorf("list sales order items: %w", err)
	}
	out := make([]SalesOrderItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toItem())
	}
	return out, nil
}

func (r *salesOrderItemRepository) Get(ctx context.Context, id string) (*SalesOrderItem, error) {
	var row salesOrderItemRow
	err := r.db.GetContext(ctx, &row, `SELECT `+salesOrderItemColumns+` FROM sales_order_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sales order item: %w", err)
	}
	item := row.toItem()
	return &item, nil
}

func (r *salesOrderItemRepository) Insert(ctx context.Context, item *SalesOrderItem) error {
	if item == nil {
		return fmt.Errorf("insert sales order item: item is nil")
	}
	item.ID = ensureID(item.ID)
	if err := insertItem(ctx, r.db, item); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return err
	}
	r.committed("insert")
	return nil
}

func (r *salesOrderItemRepository) InsertBatch(ctx context.Context, items []SalesOrderItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert sales order items: begin tx: %w", err)
	}
	for i := range items {
		items[i].ID = ensureID(items[i].ID)
		if err := insertItem(ctx, tx, &items[i]); err != nil {
			_ = tx.Rollback()
			metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return fmt.Errorf("insert sales order items: commit: %w", err)
	}
	r.committed("insert")
	return nil
}

func (r *salesOrderItemRepository) Update(ctx context.Context, item *SalesOrderItem) error {
	if item == nil {
		return fmt.Errorf("update sales order item: item is nil")
	}
	if item.ID == "" {
		return fmt.Errorf("update sales order item: id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sales_order_items
		SET sales_order_id = ?, product_id = ?, quantity = ?, price = ?, profit = ?,
			product_code = ?, product_name = ?, product_category = ?
		WHERE id = ?
	`,
		item.SalesOrderID,
		item.ProductID,
		item.Quantity,
		money(item.Price),
		money(item.Profit),
		nullableString(item.ProductCode),
		item.ProductName,
		item.ProductCategory,
		item.ID,
	)
	if err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return fmt.Errorf("update sales order item: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sales order item: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	r.committed("update")
	return nil
}

func (r *salesOrderItemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sales_order_items WHERE id = ?`, id)
	if err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return fmt.Errorf("delete sales order item: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sales order item: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	r.committed("delete")
	return nil
}

func (r *salesOrderItemRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = ?`, orderID); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return fmt.Errorf("delete sales order items: %w", err)
	}
	r.committed("delete_by_order")
	return nil
}

func (r *salesOrderItemRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales_order_items`); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
		return fmt.Errorf("delete all sales order items: %w", err)
	}
	r.committed("delete_all")
	return nil
}

func (r *salesOrderItemRepository) committed(op string) {
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrderItems, op).Inc()
	r.feed.publish(tableSalesOrderItems)
}
