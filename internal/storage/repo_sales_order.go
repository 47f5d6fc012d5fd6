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

const salesOrderColumns = `id, date_time, total_revenue, total_profit`

type salesOrderRepository struct {
	db   *sqlx.DB
	feed *changeFeed
}

type salesOrderRow struct {
	ID           string  `db:"id"`
	DateTime     int64   `db:"date_time"`
	TotalRevenue float64 `db:"total_revenue"`
	TotalProfit  float64 `db:"total_profit"`
}

func (r salesOrderRow) toSalesOrder() SalesOrder {
	return SalesOrder{
		ID:           r.ID,
		DateTime:     fromMillis(r.DateTime),
		TotalRevenue: decimal.NewFromFloat(r.TotalRevenue),
		TotalProfit:  decimal.NewFromFloat(r.TotalProfit),
	}
}

func (r *salesOrderRepository) SubscribeAll(ctx context.Context) (*Subscription[SalesOrder], error) {
	return subscribe(ctx, r.feed, r.List, tableSalesOrders)
}

// List returns every order, newest first.
func (r *salesOrderRepository) List(ctx context.Context) ([]SalesOrder, error) {
	var rows []salesOrderRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+salesOrderColumns+` FROM sales_orders ORDER BY date_time DESC, id ASC`); err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	out := make([]SalesOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSalesOrder())
	}
	return out, nil
}

func (r *salesOrderRepository) Get(ctx context.Context, id string) (*SalesOrder, error) {
	var row salesOrderRow
	err := r.db.GetContext(ctx, &row, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	order := row.toSalesOrder()
	return &order, nil
}

// Insert writes the order, replacing any row with the same id, and returns
// its id. An empty ID is filled in.
func (r *salesOrderRepository) Insert(ctx context.Context, order *SalesOrder) (string, error) {
	if order == nil {
		return "", fmt.Errorf("insert sales order: order is nil")
	}
	order.ID = ensureID(order.ID)

	if _, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sales_orders(id, date_time, total_revenue, total_profit)
		VALUES (?, ?, ?, ?)
	`, order.ID, toMillis(order.DateTime), money(order.TotalRevenue), money(order.TotalProfit)); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return "", fmt.Errorf("insert sales order: %w", err)
	}
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrders, "insert").Inc()
	r.feed.publish(tableSalesOrders)
	return order.ID, nil
}

// CreateWithItems writes the order header and its items in one transaction.
// Either both land or neither does. Item SalesOrderID and empty item IDs are
// filled in from the order.
func (r *salesOrderRepository) CreateWithItems(ctx context.Context, order *SalesOrder, items []SalesOrderItem) error {
	if order == nil {
		return fmt.Errorf("create sales order: order is nil")
	}
	order.ID = ensureID(order.ID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create sales order: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sales_orders(id, date_time, total_revenue, total_profit)
		VALUES (?, ?, ?, ?)
	`, order.ID, toMillis(order.DateTime), money(order.TotalRevenue), money(order.TotalProfit)); err != nil {
		_ = tx.Rollback()
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return fmt.Errorf("create sales order: insert order: %w", err)
	}

	for i := range items {
		items[i].SalesOrderID = order.ID
		items[i].ID = ensureID(items[i].ID)
		if err := insertItem(ctx, tx, &items[i]); err != nil {
			_ = tx.Rollback()
			metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrderItems).Inc()
			return fmt.Errorf("create sales order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return fmt.Errorf("create sales order: commit: %w", err)
	}
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrders, "create").Inc()
	r.feed.publish(tableSalesOrders, tableSalesOrderItems)
	return nil
}

func (r *salesOrderRepository) Update(ctx context.Context, order *SalesOrder) error {
	if order == nil {
		return fmt.Errorf("update sales order: order is nil")
	}
	if order.ID == "" {
		return fmt.Errorf("update sales order: id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sales_orders
		SET date_time = ?, total_revenue = ?, total_profit = ?
		WHERE id = ?
	`, toMillis(order.DateTime), money(order.TotalRevenue), money(order.TotalProfit), order.ID)
	if err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return fmt.Errorf("update sales order: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sales order: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrders, "update").Inc()
	r.feed.publish(tableSalesOrders)
	return nil
}

// Delete removes the order header only. Items are not cascaded.
func (r *salesOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sales_orders WHERE id = ?`, id)
	if err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return fmt.Errorf("delete sales order: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sales order: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrders, "delete").Inc()
	r.feed.publish(tableSalesOrders)
	return nil
}

func (r *salesOrderRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales_orders`); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableSalesOrders).Inc()
		return fmt.Errorf("delete all sales orders: %w", err)
	}
	metrics.StorageWritesTotal.WithLabelValues(tableSalesOrders, "delete_all").Inc()
	r.feed.publish(tableSalesOrders)
	return nil
}
