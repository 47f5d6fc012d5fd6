package app

import (
	"context"
	"sync"
)

// ErrorChannel holds the most recent failure of a background operation until
// a consumer clears it. Watchers see each change, latest value only.
type ErrorChannel struct {
	mu       sync.Mutex
	current  error
	watchers map[chan error]struct{}
}

func NewErrorChannel() *ErrorChannel {
	return &ErrorChannel{watchers: make(map[chan error]struct{})}
}

func (c *ErrorChannel) Publish(err error) {
	if err == nil {
		return
	}
	c.set(err)
}

func (c *ErrorChannel) Current() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Clear resets the current error; watchers receive nil.
func (c *ErrorChannel) Clear() {
	c.set(nil)
}

// Watch streams changes until ctx ends. The current value, if any, is sent
// first.
func (c *ErrorChannel) Watch(ctx context.Context) <-chan error {
	ch := make(chan error, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	if c.current != nil {
		ch <- c.current
	}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

func (c *ErrorChannel) set(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = err
	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- err
	}
}
