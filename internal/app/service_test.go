package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProductServiceCreateNormalizesAndRegistersCategory(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewProductService(store.Products)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductRequest{
		Name:         "  Iced Tea ",
		SellingPrice: dec("3.5"),
		BasePrice:    decPtr("1.25"),
		ProductCode:  " IT-01 ",
		Category:     " Drinks",
	})
	require.NoError(t, err)
	require.NotZero(t, product.ID)
	require.Equal(t, "Iced Tea", product.Name)
	require.Equal(t, "drinks", product.Category)
	require.Equal(t, "IT-01", *product.ProductCode)

	all, err := svc.List(ctx, storage.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "drinks", all[0].Category)

	categories, err := store.Categories.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []storage.Category{{Name: "drinks"}}, categories)
}

func TestProductServiceBasePriceDefaultsToSellingPrice(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewProductService(store.Products)

	product, err := svc.Create(context.Background(), CreateProductRequest{Name: "Water", SellingPrice: dec("1"), Category: "drinks"})
	require.NoError(t, err)
	require.True(t, product.BasePrice.Equal(dec("1")))
	require.Nil(t, product.ProductCode)
}

func TestProductServiceCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		req   CreateProductRequest
		field string
	}{
		{name: "blank name", req: CreateProductRequest{Name: "  ", SellingPrice: dec("1"), Category: "x"}, field: "name"},
		{name: "blank category", req: CreateProductRequest{Name: "a", SellingPrice: dec("1"), Category: " "}, field: "category"},
		{name: "zero price", req: CreateProductRequest{Name: "a", SellingPrice: dec("0"), Category: "x"}, field: "selling_price"},
		{name: "negative price", req: CreateProductRequest{Name: "a", SellingPrice: dec("-2"), Category: "x"}, field: "selling_price"},
		{name: "zero base price", req: CreateProductRequest{Name: "a", SellingPrice: dec("2"), BasePrice: decPtr("0"), Category: "x"}, field: "base_price"},
		{name: "negative base price", req: CreateProductRequest{Name: "a", SellingPrice: dec("2"), BasePrice: decPtr("-1"), Category: "x"}, field: "base_price"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newAppTestStore(t)
			svc := NewProductService(store.Products)
			ctx := context.Background()

			_, err := svc.Create(ctx, tc.req)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)

			products, err := store.Products.List(ctx, storage.ProductFilter{})
			require.NoError(t, err)
			require.Empty(t, products)
			categories, err := store.Categories.List(ctx)
			require.NoError(t, err)
			require.Empty(t, categories)
		})
	}
}

func TestProductServiceUpdateRejectsInvalidInputWithoutMutation(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewProductService(store.Products)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductRequest{Name: "Bun", SellingPrice: dec("2"), Category: "bakery"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateProductRequest{ID: product.ID, Name: "Bun", SellingPrice: dec("-1"), Category: "bakery"})
	require.ErrorIs(t, err, ErrValidation)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, got.SellingPrice.Equal(dec("2")))

	updated, err := svc.Update(ctx, UpdateProductRequest{ID: product.ID, Name: "Sweet Bun", SellingPrice: dec("2.5"), BasePrice: decPtr("1"), Category: "Pastry"})
	require.NoError(t, err)
	require.Equal(t, "pastry", updated.Category)

	_, err = svc.Update(ctx, UpdateProductRequest{ID: 9999, Name: "x", SellingPrice: dec("1"), Category: "x"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProductServiceFailedWriteLeavesNoStrayCategory(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewProductService(store.Products)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{Name: "Bun", SellingPrice: dec("2"), Category: "Bakery"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateProductRequest{ID: 9999, Name: "Ghost", SellingPrice: dec("1"), Category: "Phantom"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	categories, err := store.Categories.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []storage.Category{{Name: "bakery"}}, categories)
}

func TestProductServiceCreateBatchValidatesEverythingFirst(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewProductService(store.Products)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, []CreateProductRequest{
		{Name: "ok", SellingPrice: dec("1"), Category: "a"},
		{Name: "", SellingPrice: dec("1"), Category: "b"},
	})
	require.ErrorIs(t, err, ErrValidation)
	products, err := svc.List(ctx, storage.ProductFilter{})
	require.NoError(t, err)
	require.Empty(t, products)

	created, err := svc.CreateBatch(ctx, []CreateProductRequest{
		{Name: "one", SellingPrice: dec("1"), Category: "A"},
		{Name: "two", SellingPrice: dec("2"), Category: "b"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotZero(t, created[0].ID)
	require.NotEqual(t, created[0].ID, created[1].ID)
}

func TestCategoryServiceRemoveBlockedWhileInUse(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	products := NewProductService(store.Products)
	categories := NewCategoryService(store.Categories)
	ctx := context.Background()

	_, err := products.Create(ctx, CreateProductRequest{Name: "Cola", SellingPrice: dec("2"), Category: "drinks"})
	require.NoError(t, err)
	name, err := categories.Add(ctx, " Snacks ")
	require.NoError(t, err)
	require.Equal(t, "snacks", name)

	err = categories.Remove(ctx, "Drinks")
	require.ErrorIs(t, err, storage.ErrCategoryInUse)

	list, err := categories.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []storage.Category{{Name: "drinks"}, {Name: "snacks"}}, list)

	require.NoError(t, categories.Remove(ctx, "snacks"))
	_, err = categories.Add(ctx, "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSalesOrderServiceCreateComputesTotals(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 0, time.Local)
	svc := NewSalesOrderService(store.SalesOrders, store.SalesOrderItems, store.Products, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	lines := []OrderLine{
		{Product: storage.Product{ID: 1, Name: "A", SellingPrice: dec("10"), BasePrice: dec("6"), Category: "x"}, Quantity: 2},
		{Product: storage.Product{ID: 2, Name: "B", SellingPrice: dec("20"), BasePrice: dec("15"), Category: "y"}, Quantity: 1},
	}
	detail, err := svc.Create(ctx, lines)
	require.NoError(t, err)
	require.True(t, detail.Order.TotalRevenue.Equal(dec("40")))
	require.True(t, detail.Order.TotalProfit.Equal(dec("13")))
	require.True(t, detail.ItemsProfit.Equal(dec("13")))

	got, err := svc.Get(ctx, detail.Order.ID)
	require.NoError(t, err)
	require.Equal(t, fixed.UnixMilli(), got.Order.DateTime.UnixMilli())
	require.True(t, got.Order.TotalRevenue.Equal(dec("40")))
	require.True(t, got.Order.TotalProfit.Equal(dec("13")))
	require.Len(t, got.Items, 2)
	for _, item := range got.Items {
		require.Equal(t, detail.Order.ID, item.SalesOrderID)
	}
	require.True(t, got.Items[0].Profit.Equal(dec("4")))
	require.True(t, got.ItemsProfit.Equal(dec("13")))
}

func TestSalesOrderServiceItemsKeepProductSnapshot(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	products := NewProductService(store.Products)
	orders := NewSalesOrderService(store.SalesOrders, store.SalesOrderItems, store.Products)
	ctx := context.Background()

	product, err := products.Create(ctx, CreateProductRequest{Name: "Mocha", SellingPrice: dec("5"), BasePrice: decPtr("2"), Category: "drinks"})
	require.NoError(t, err)

	detail, err := orders.CreateFromRefs(ctx, []OrderLineRef{{ProductID: product.ID, Quantity: 3}})
	require.NoError(t, err)
	require.True(t, detail.Order.TotalRevenue.Equal(dec("15")))
	require.True(t, detail.Order.TotalProfit.Equal(dec("9")))

	require.NoError(t, products.Delete(ctx, product.ID))

	got, err := orders.Get(ctx, detail.Order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, "Mocha", got.Items[0].ProductName)
	require.Equal(t, "drinks", got.Items[0].ProductCategory)
}

func TestSalesOrderServiceRejectsBadLines(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewSalesOrderService(store.SalesOrders, store.SalesOrderItems, store.Products)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, []OrderLine{{Product: storage.Product{ID: 1, SellingPrice: dec("1"), BasePrice: dec("1")}, Quantity: 0}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "quantity", verr.Field)

	_, err = svc.CreateFromRefs(ctx, []OrderLineRef{{ProductID: 42, Quantity: 1}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	orders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestSalesOrderServiceDeleteRemovesItems(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewSalesOrderService(store.SalesOrders, store.SalesOrderItems, store.Products)
	ctx := context.Background()

	detail, err := svc.Create(ctx, []OrderLine{{Product: storage.Product{ID: 1, Name: "A", SellingPrice: dec("1"), BasePrice: dec("1")}, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, detail.Order.ID))
	_, err = svc.Get(ctx, detail.Order.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	items, err := store.SalesOrderItems.ListByOrder(ctx, detail.Order.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	revenue, profit := ComputeTotals([]OrderLine{
		{Product: storage.Product{SellingPrice: dec("0.1"), BasePrice: dec("0.05")}, Quantity: 3},
		{Product: storage.Product{SellingPrice: dec("2.2"), BasePrice: dec("2.5")}, Quantity: 1},
	})
	require.Equal(t, "2.5", revenue.String())
	require.Equal(t, "-0.15", profit.String())

	revenue, profit = ComputeTotals(nil)
	require.True(t, revenue.IsZero())
	require.True(t, profit.IsZero())
}

func newAppTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Options{Path: filepath.Join(t.TempDir(), "pos.db")})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
