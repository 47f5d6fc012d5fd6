package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/jmoiron/sqlx"
)

type categoryRepository struct {
	db   *sqlx.DB
	feed *changeFeed
}

func (r *categoryRepository) SubscribeAll(ctx context.Context) (*Subscription[Category], error) {
	return subscribe(ctx, r.feed, r.List, tableCategories)
}

func (r *categoryRepository) List(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := r.db.SelectContext(ctx, &out, `SELECT name FROM categories ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *categoryRepository) Get(ctx context.Context, name string) (*Category, error) {
	var category Category
	err := r.db.GetContext(ctx, &category, `SELECT name FROM categories WHERE name = ?`, NormalizeCategory(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// Insert stores the normalized name. An existing category is left as is.
func (r *categoryRepository) Insert(ctx context.Context, name string) error {
	return r.InsertBatch(ctx, []string{name})
}

func (r *categoryRepository) InsertBatch(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		if NormalizeCategory(name) == "" {
			return fmt.Errorf("insert category: name is required")
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert category: begin tx: %w", err)
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories(name) VALUES (?)`, NormalizeCategory(name)); err != nil {
			_ = tx.Rollback()
			metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
			return fmt.Errorf("insert category: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
		return fmt.Errorf("insert category: commit: %w", err)
	}
	r.committed("insert")
	return nil
}

// Delete removes a category unless a product still references it, in which
// case it returns ErrCategoryInUse and changes nothing. The check and the
// delete run in one transaction.
func (r *categoryRepository) Delete(ctx context.Context, name string) error {
	normalized := NormalizeCategory(name)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete category: begin tx: %w", err)
	}

	var inUse int
	if err := tx.GetContext(ctx, &inUse, `SELECT COUNT(*) FROM products WHERE lower(trim(category)) = ?`, normalized); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete category: count products: %w", err)
	}
	if inUse > 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %q used by %d product(s)", ErrCategoryInUse, normalized, inUse)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, normalized)
	if err != nil {
		_ = tx.Rollback()
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
		return fmt.Errorf("delete category: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete category: rows affected: %w", err)
	}
	if count == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
		return fmt.Errorf("delete category: commit: %w", err)
	}
	r.committed("delete")
	return nil
}

// DeleteAll removes every category that no product references.
func (r *categoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM categories
		WHERE name NOT IN (SELECT DISTINCT lower(trim(category)) FROM products)
	`); err != nil {
		metrics.StorageWriteErrorsTotal.WithLabelValues(tableCategories).Inc()
		return fmt.Errorf("delete all categories: %w", err)
	}
	r.committed("delete_all")
	return nil
}

func (r *categoryRepository) committed(op string) {
	metrics.StorageWritesTotal.WithLabelValues(tableCategories, op).Inc()
	r.feed.publish(tableCategories)
}
