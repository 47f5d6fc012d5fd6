package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
)

type SalesOrderService struct {
	orders   storage.SalesOrderRepository
	items    storage.SalesOrderItemRepository
	products storage.ProductRepository
	now      func() time.Time
	logger   *slog.Logger
}

type SalesOrderOption func(*SalesOrderService)

// WithClock overrides the time source used to stamp new orders.
func WithClock(now func() time.Time) SalesOrderOption {
	return func(s *SalesOrderService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger that records each created order.
func WithLogger(logger *slog.Logger) SalesOrderOption {
	return func(s *SalesOrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSalesOrderService(
	orders storage.SalesOrderRepository,
	items storage.SalesOrderItemRepository,
	products storage.ProductRepository,
	opts ...SalesOrderOption,
) *SalesOrderService {
	s := &SalesOrderService{
		orders:   orders,
		items:    items,
		products: products,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeTotals returns revenue = Σ price×qty and profit = Σ (price−base)×qty.
func ComputeTotals(lines []OrderLine) (revenue, profit decimal.Decimal) {
	revenue, profit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		revenue = revenue.Add(line.Product.SellingPrice.Mul(qty))
		profit = profit.Add(line.Product.SellingPrice.Sub(line.Product.BasePrice).Mul(qty))
	}
	return revenue, profit
}

// Create stores an order and its items in one transaction. Totals and the
// product snapshot on each item are fixed at this point.
func (s *SalesOrderService) Create(ctx context.Context, lines []OrderLine) (*OrderDetail, error) {
	input := orderInput{Lines: make([]orderLineInput, 0, len(lines))}
	for _, line := range lines {
		input.Lines = append(input.Lines, orderLineInput{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	if err := validateInput("sales_order", input); err != nil {
		return nil, err
	}

	revenue, profit := ComputeTotals(lines)
	order := storage.SalesOrder{
		ID:           storage.NewRecordID(),
		DateTime:     s.now(),
		TotalRevenue: revenue,
		TotalProfit:  profit,
	}

	items := make([]storage.SalesOrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, storage.SalesOrderItem{
			ID:              storage.NewRecordID(),
			SalesOrderID:    order.ID,
			ProductID:       line.Product.ID,
			Quantity:        line.Quantity,
			Price:           line.Product.SellingPrice,
			Profit:          line.Product.SellingPrice.Sub(line.Product.BasePrice),
			ProductCode:     line.Product.ProductCode,
			ProductName:     line.Product.Name,
			ProductCategory: line.Product.Category,
		})
	}

	if err := s.orders.CreateWithItems(ctx, &order, items); err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}
	metrics.SalesOrdersCreatedTotal.Inc()
	metrics.SalesRevenueTotal.Add(revenue.InexactFloat64())
	s.logger.Info("sales order created",
		"order_id", order.ID,
		"items", len(items),
		"revenue", revenue,
		"profit", profit,
	)

	return &OrderDetail{Order: order, Items: items, ItemsProfit: itemsProfit(items)}, nil
}

// CreateFromRefs resolves product ids to their current prices and creates the
// order. An unknown product id fails with storage.ErrNotFound.
func (s *SalesOrderService) CreateFromRefs(ctx context.Context, refs []OrderLineRef) (*OrderDetail, error) {
	input := orderInput{Lines: make([]orderLineInput, 0, len(refs))}
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		input.Lines = append(input.Lines, orderLineInput{ProductID: ref.ProductID, Quantity: ref.Quantity})
		ids = append(ids, ref.ProductID)
	}
	if err := validateInput("sales_order", input); err != nil {
		return nil, err
	}

	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}
	byID := make(map[int64]storage.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]OrderLine, 0, len(refs))
	for _, ref := range refs {
		product, ok := byID[ref.ProductID]
		if !ok {
			return nil, fmt.Errorf("create sales order: product %d: %w", ref.ProductID, storage.ErrNotFound)
		}
		lines = append(lines, OrderLine{Product: product, Quantity: ref.Quantity})
	}
	return s.Create(ctx, lines)
}

func (s *SalesOrderService) Get(ctx context.Context, id string) (*OrderDetail, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	items, err := s.items.ListByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	return &OrderDetail{Order: *order, Items: items, ItemsProfit: itemsProfit(items)}, nil
}

func (s *SalesOrderService) List(ctx context.Context) ([]storage.SalesOrder, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	return orders, nil
}

func (s *SalesOrderService) Subscribe(ctx context.Context) (*storage.Subscription[storage.SalesOrder], error) {
	return s.orders.SubscribeAll(ctx)
}

func (s *SalesOrderService) SubscribeItems(ctx context.Context, orderID string) (*storage.Subscription[storage.SalesOrderItem], error) {
	return s.items.SubscribeByOrder(ctx, orderID)
}

// Delete removes an order's items and then the order itself.
func (s *SalesOrderService) Delete(ctx context.Context, id string) error {
	if err := s.items.DeleteByOrder(ctx, id); err != nil {
		return fmt.Errorf("delete sales order: %w", err)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete sales order: %w", err)
	}
	return nil
}

func itemsProfit(items []storage.SalesOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineProfit())
	}
	return total
}
