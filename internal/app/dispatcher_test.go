package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherPublishesFailures(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	d := NewDispatcher(nil, slog.New(slog.NewJSONHandler(&logs, nil)))
	defer d.Close()

	require.True(t, d.Go(context.Background(), "insert product", func(context.Context) error {
		return errors.New("disk full")
	}))
	d.Wait()

	err := d.Errors().Current()
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert product: disk full")
	require.Contains(t, logs.String(), "background operation failed")

	d.Errors().Clear()
	require.NoError(t, d.Errors().Current())
}

func TestDispatcherRecoversPanics(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewErrorChannel(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	d.Go(context.Background(), "explode", func(context.Context) error {
		panic("bad state")
	})
	d.Close()

	require.ErrorContains(t, d.Errors().Current(), "explode: panic: bad state")
	require.False(t, d.Go(context.Background(), "late", func(context.Context) error { return nil }))
}

func TestDispatcherRunsWorkToCompletion(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, nil)
	done := make(chan struct{})
	d.Go(context.Background(), "slow", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		close(done)
		return ctx.Err()
	})
	d.Close()

	select {
	case <-done:
	default:
		t.Fatal("Close returned before work finished")
	}
	require.NoError(t, d.Errors().Current())
}

type dispatchKey struct{}

func TestDispatcherDetachesWorkFromCallerCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), dispatchKey{}, "till-1"), time.Hour)
	d := NewDispatcher(nil, nil)
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var seen any
	var errAfterCancel error
	var hasDeadline bool
	d.Go(parent, "write", func(ctx context.Context) error {
		close(started)
		<-release
		seen = ctx.Value(dispatchKey{})
		_, hasDeadline = ctx.Deadline()
		errAfterCancel = ctx.Err()
		return nil
	})

	<-started
	cancel()
	require.ErrorIs(t, parent.Err(), context.Canceled)
	close(release)
	d.Wait()

	require.Equal(t, "till-1", seen)
	require.False(t, hasDeadline)
	require.NoError(t, errAfterCancel)
	require.NoError(t, d.Errors().Current())
}

func TestErrorChannelWatchSeesLatest(t *testing.T) {
	t.Parallel()

	ch := NewErrorChannel()
	ch.Publish(errors.New("first"))

	ctx, cancel := context.WithCancel(context.Background())
	watch := ch.Watch(ctx)
	require.EqualError(t, <-watch, "first")

	ch.Publish(errors.New("second"))
	ch.Publish(errors.New("third"))
	require.EqualError(t, <-watch, "third")

	ch.Clear()
	require.NoError(t, <-watch)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-watch
		return !open
	}, time.Second, 10*time.Millisecond)
}
