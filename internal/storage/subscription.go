package storage

import (
	"context"
	"sync"
)

// Snapshot is one delivery of a live query: the full current result set, or
// the error that prevented reading it.
type Snapshot[T any] struct {
	Rows []T
	Err  error
}

// Subscription delivers the current result of a query and a fresh result
// after every committed write to the tables it reads. Delivery is latest-only:
// a slow consumer sees the newest snapshot, never a backlog.
type Subscription[T any] struct {
	updates   chan Snapshot[T]
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type loadFunc[T any] func(ctx context.Context) ([]T, error)

func subscribe[T any](ctx context.Context, feed *changeFeed, load loadFunc[T], tables ...string) (*Subscription[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signal, release, err := feed.register(tables...)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		updates: make(chan Snapshot[T], 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.updates)
		defer release()
		defer cancel()

		for {
			rows, err := load(runCtx)
			if runCtx.Err() != nil {
				return
			}
			sub.publish(Snapshot[T]{Rows: rows, Err: err})

			select {
			case <-runCtx.Done():
				return
			case <-feed.done():
				return
			case <-signal:
			}
		}
	}()

	return sub, nil
}

// Updates is closed when the subscription ends.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Close cancels the subscription and waits for it to stop. It is safe to call
// more than once.
func (s *Subscription[T]) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Subscription[T]) publish(snap Snapshot[T]) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}
