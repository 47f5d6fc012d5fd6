package storage

import (
	"context"
	"sync"
)

// Handle lazily opens one Store per configured path and hands the same
// instance to every caller, however many goroutines race on the first Get.
type Handle struct {
	opts Options

	mu    sync.Mutex
	store *Store
}

func NewHandle(opts Options) *Handle {
	return &Handle{opts: opts}
}

// Get returns the shared store, opening it on first use. A failed open is not
// cached; the next call retries.
func (h *Handle) Get(ctx context.Context) (*Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		return h.store, nil
	}
	store, err := Open(ctx, h.opts)
	if err != nil {
		return nil, err
	}
	h.store = store
	return store, nil
}

// Close releases the store if it was opened. A later Get reopens it.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
