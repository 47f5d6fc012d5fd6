package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrSchemaTooNew  = errors.New("storage: schema version newer than code")
	ErrCategoryInUse = errors.New("storage: category is referenced by products")
	ErrClosed        = errors.New("storage: store is closed")
)

const (
	tableProducts        = "products"
	tableCategories      = "categories"
	tableSalesOrders     = "sales_orders"
	tableSalesOrderItems = "sales_order_items"
)

// Product is a catalog entry. Category is stored trimmed and lower-cased.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	BasePrice    decimal.Decimal `json:"base_price"`
	ProductCode  *string         `json:"product_code,omitempty"`
	Category     string          `json:"category"`
}

type Category struct {
	Name string `json:"name"`
}

type SalesOrder struct {
	ID           string          `json:"id"`
	DateTime     time.Time       `json:"date_time"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
}

// SalesOrderItem is one line of a sales order. Price and Profit are per unit
// and frozen at sale time, as is the product snapshot.
type SalesOrderItem struct {
	ID              string          `json:"id"`
	SalesOrderID    string          `json:"sales_order_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Profit          decimal.Decimal `json:"profit"`
	ProductCode     *string         `json:"product_code,omitempty"`
	ProductName     string          `json:"product_name"`
	ProductCategory string          `json:"product_category"`
}

// LineProfit is the per-unit profit multiplied by quantity.
func (i SalesOrderItem) LineProfit() decimal.Decimal {
	return i.Profit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineRevenue is the per-unit price multiplied by quantity.
func (i SalesOrderItem) LineRevenue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ProductFilter narrows a product listing. An empty Category or "all" matches
// every category; Search is a case-insensitive substring of the name.
type ProductFilter struct {
	Category   string
	Search     string
	Descending bool
}

type ProductRepository interface {
	SubscribeAll(ctx context.Context) (*Subscription[Product], error)
	SubscribeFiltered(ctx context.Context, filter ProductFilter) (*Subscription[Product], error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetMany(ctx context.Context, ids []int64) ([]Product, error)
	Insert(ctx context.Context, product *Product) (int64, error)
	InsertBatch(ctx context.Context, products []Product) ([]int64, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	CountByCategory(ctx context.Context, category string) (int, error)
}

type CategoryRepository interface {
	SubscribeAll(ctx context.Context) (*Subscription[Category], error)
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, name string) (*Category, error)
	Insert(ctx context.Context, name string) error
	InsertBatch(ctx context.Context, names []string) error
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) error
}

type SalesOrderRepository interface {
	SubscribeAll(ctx context.Context) (*Subscription[SalesOrder], error)
	List(ctx context.Context) ([]SalesOrder, error)
	Get(ctx context.Context, id string) (*SalesOrder, error)
	Insert(ctx context.Context, order *SalesOrder) (string, error)
	CreateWithItems(ctx context.Context, order *SalesOrder, items []SalesOrderItem) error
	Update(ctx context.Context, order *SalesOrder) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type SalesOrderItemRepository interface {
	SubscribeByOrder(ctx context.Context, orderID string) (*Subscription[SalesOrderItem], error)
	ListByOrder(ctx context.Context, orderID string) ([]SalesOrderItem, error)
	Get(ctx context.Context, id string) (*SalesOrderItem, error)
	Insert(ctx context.Context, item *SalesOrderItem) error
	InsertBatch(ctx context.Context, items []SalesOrderItem) error
	Update(ctx context.Context, item *SalesOrderItem) error
	Delete(ctx context.Context, id string) error
	DeleteByOrder(ctx context.Context, orderID string) error
	DeleteAll(ctx context.Context) error
}
