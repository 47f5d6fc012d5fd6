package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionDeliversInitialSnapshot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Categories.InsertBatch(ctx, []string{"snacks", "drinks"}))

	sub, err := store.Categories.SubscribeAll(ctx)
	require.NoError(t, err)
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	require.Equal(t, []Category{{Name: "drinks"}, {Name: "snacks"}}, snap.Rows)
}

func TestSubscriptionRedeliversAfterWrite(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.SalesOrders.SubscribeAll(ctx)
	require.NoError(t, err)
	defer sub.Close()
	require.Empty(t, nextSnapshot(t, sub).Rows)

	_, err = store.SalesOrders.Insert(ctx, &SalesOrder{DateTime: time.Now(), TotalRevenue: dec("5"), TotalProfit: dec("1")})
	require.NoError(t, err)

	snap := nextSnapshot(t, sub)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Rows, 1)
}

func TestSubscriptionIgnoresUnrelatedTables(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.Products.SubscribeAll(ctx)
	require.NoError(t, err)
	defer sub.Close()
	nextSnapshot(t, sub)

	require.NoError(t, store.Categories.Insert(ctx, "drinks"))

	select {
	case snap := <-sub.Updates():
		t.Fatalf("unexpected snapshot after unrelated write: %+v", snap)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSubscriptionCoalescesToLatest(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.Categories.SubscribeAll(ctx)
	require.NoError(t, err)
	defer sub.Close()
	require.Equal(t, 1, cap(sub.Updates()))

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		require.NoError(t, store.Categories.Insert(ctx, name))
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-sub.Updates():
			require.NoError(t, snap.Err)
			if len(snap.Rows) == len(names) {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest snapshot")
		}
	}
}

func TestFilteredProductSubscription(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.Products.SubscribeFiltered(ctx, ProductFilter{Category: "Drinks"})
	require.NoError(t, err)
	defer sub.Close()
	require.Empty(t, nextSnapshot(t, sub).Rows)

	_, err = store.Products.InsertBatch(ctx, []Product{
		{Name: "Cola", SellingPrice: dec("2"), BasePrice: dec("1"), Category: "drinks"},
		{Name: "Chips", SellingPrice: dec("1"), BasePrice: dec("1"), Category: "snacks"},
	})
	require.NoError(t, err)

	snap := nextSnapshot(t, sub)
	require.Equal(t, []string{"Cola"}, productNames(snap.Rows))
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.SalesOrderItems.SubscribeByOrder(ctx, "o1")
	require.NoError(t, err)
	nextSnapshot(t, sub)
	require.Equal(t, 1, store.ActiveSubscriptions())

	sub.Close()
	sub.Close()
	require.Equal(t, 0, store.ActiveSubscriptions())

	_, open := <-sub.Updates()
	require.False(t, open)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := store.Products.SubscribeAll(ctx)
	require.NoError(t, err)
	nextSnapshot(t, sub)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
	require.Equal(t, 0, store.ActiveSubscriptions())
}

func TestStoreCloseEndsSubscriptions(t *testing.T) {
	t.Parallel()

	store, err := Open(context.Background(), Options{Path: rawDBPath(t)})
	require.NoError(t, err)

	sub, err := store.Categories.SubscribeAll(context.Background())
	require.NoError(t, err)
	nextSnapshot(t, sub)

	require.NoError(t, store.Close())
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription outlived store")
	}

	_, err = store.Categories.SubscribeAll(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func nextSnapshot[T any](t *testing.T, sub *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}
