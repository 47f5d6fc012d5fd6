package storage

import (
	"sync"

	"github.com/SigitArif/POS/internal/metrics"
)

// changeFeed fans committed-write notifications out to live subscriptions.
// Each listener holds a one-slot signal channel, so bursts of writes collapse
// into a single wakeup.
type changeFeed struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]*feedListener
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type feedListener struct {
	tables map[string]struct{}
	signal chan struct{}
}

func newChangeFeed() *changeFeed {
	return &changeFeed{
		listeners: make(map[uint64]*feedListener),
		closed:    make(chan struct{}),
	}
}

// register adds a listener for the given tables. The returned release func
// must be called exactly once when the listener goroutine exits.
func (f *changeFeed) register(tables ...string) (<-chan struct{}, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.closed:
		return nil, nil, ErrClosed
	default:
	}

	set := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		set[table] = struct{}{}
	}
	listener := &feedListener{tables: set, signal: make(chan struct{}, 1)}
	id := f.nextID
	f.nextID++
	f.listeners[id] = listener
	f.wg.Add(1)
	metrics.ActiveSubscriptions.Inc()

	var once sync.Once
	release := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
			metrics.ActiveSubscriptions.Dec()
			f.wg.Done()
		})
	}
	return listener.signal, release, nil
}

func (f *changeFeed) publish(tables ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, listener := range f.listeners {
		for _, table := range tables {
			if _, ok := listener.tables[table]; !ok {
				continue
			}
			select {
			case listener.signal <- struct{}{}:
			default:
			}
			break
		}
	}
}

func (f *changeFeed) done() <-chan struct{} {
	return f.closed
}

func (f *changeFeed) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// shutdown stops every listener and waits for them to release.
func (f *changeFeed) shutdown() {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	f.wg.Wait()
}
