package feed

import "context"

// Subscription delivers snapshots until cancelled. C holds at most one
// pending snapshot; a slow reader sees the newest one.
type Subscription[T any] struct {
	C <-chan T

	ch     chan T
	cancel context.CancelFunc
	done   chan struct{}
}

func newSubscription[T any](ctx context.Context) (*Subscription[T], context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, 1)
	return &Subscription[T]{
		C:      ch,
		ch:     ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

// Cancel stops the subscription and waits for its goroutine to exit. Once it
// returns no snapshot is delivered and no callback runs. It must not be called
// from a callback of the same subscription.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed when the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// emit replaces any undelivered snapshot with v. Only the owning goroutine
// sends, so the second send never blocks.
func (s *Subscription[T]) emit(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// finish drops any undelivered snapshot and closes C.
func (s *Subscription[T]) finish() {
	select {
	case <-s.ch:
	default:
	}
	close(s.ch)
	close(s.done)
}
