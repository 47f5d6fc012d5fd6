package report

import (
	"context"
	"sync"
	"time"

	"github.com/SigitArif/POS/internal/storage"
)

// OrderStream is the live order feed a Tracker consumes.
type OrderStream interface {
	Updates() <-chan storage.Snapshot[storage.SalesOrder]
}

type Summary struct {
	Today  Rollup    `json:"today"`
	Window Window    `json:"window"`
	Range  Rollup    `json:"range"`
	At     time.Time `json:"at"`
	Err    error     `json:"-"`
}

// Tracker recomputes both rollups whenever the order list or the selected
// window changes. Summaries are delivered latest-only.
type Tracker struct {
	now     func() time.Time
	windows chan Window
	out     chan Summary
	done    chan struct{}
	cancel  context.CancelFunc
	mu      sync.Mutex
}

func NewTracker(ctx context.Context, stream OrderStream, window Window, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	runCtx, cancel := context.WithCancel(ctx)
	t := &Tracker{
		now:     now,
		windows: make(chan Window, 1),
		out:     make(chan Summary, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go t.run(runCtx, stream, window)
	return t
}

func (t *Tracker) run(ctx context.Context, stream OrderStream, window Window) {
	defer close(t.done)
	defer close(t.out)

	var (
		orders []storage.SalesOrder
		loaded bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-stream.Updates():
			if !ok {
				return
			}
			if snap.Err != nil {
				t.emit(Summary{Window: window, At: t.now(), Err: snap.Err})
				continue
			}
			orders, loaded = snap.Rows, true
		case window = <-t.windows:
			if !loaded {
				continue
			}
		}
		now := t.now()
		t.emit(Summary{
			Today:  Today(orders, now),
			Window: window,
			Range:  Range(orders, window),
			At:     now,
		})
	}
}

// SetWindow replaces the date range. Only the latest pending window is kept.
func (t *Tracker) SetWindow(w Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.windows:
	default:
	}
	t.windows <- w
}

// Summaries is closed when the tracker stops.
func (t *Tracker) Summaries() <-chan Summary {
	return t.out
}

func (t *Tracker) Close() {
	t.cancel()
	<-t.done
}

func (t *Tracker) emit(s Summary) {
	for {
		select {
		case t.out <- s:
			return
		default:
		}
		select {
		case <-t.out:
		default:
		}
	}
}
