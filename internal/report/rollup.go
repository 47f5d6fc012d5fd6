// Package report derives revenue and profit rollups from the live sales
// order stream. Rollups are pure functions of the order list and a reference
// time or window; nothing here is persisted.
package report

import (
	"time"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
)

type Rollup struct {
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Orders  int             `json:"orders"`
}

// Window is an inclusive range of instants.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow spans from 00:00:00.000 on from's date through 23:59:59.999 on
// to's date, both in from's location. Reversed dates are swapped.
func NewWindow(from, to time.Time) Window {
	to = to.In(from.Location())
	if StartOfDay(to).Before(StartOfDay(from)) {
		from, to = to, from
	}
	return Window{
		Start: StartOfDay(from),
		End:   StartOfDay(to).AddDate(0, 0, 1).Add(-time.Millisecond),
	}
}

// LastDays is the window from days before now through the end of today.
func LastDays(now time.Time, days int) Window {
	if days < 0 {
		days = 0
	}
	return NewWindow(now.AddDate(0, 0, -days), now)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartOfDay is local midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Sum totals the orders keep accepts.
func Sum(orders []storage.SalesOrder, keep func(storage.SalesOrder) bool) Rollup {
	out := Rollup{Revenue: decimal.Zero, Profit: decimal.Zero}
	for _, order := range orders {
		if keep != nil && !keep(order) {
			continue
		}
		out.Revenue = out.Revenue.Add(order.TotalRevenue)
		out.Profit = out.Profit.Add(order.TotalProfit)
		out.Orders++
	}
	return out
}

// Today totals orders at or after local midnight of now.
func Today(orders []storage.SalesOrder, now time.Time) Rollup {
	midnight := StartOfDay(now)
	return Sum(orders, func(o storage.SalesOrder) bool {
		return !o.DateTime.Before(midnight)
	})
}

func Range(orders []storage.SalesOrder, w Window) Rollup {
	return Sum(orders, func(o storage.SalesOrder) bool {
		return w.Contains(o.DateTime)
	})
}
