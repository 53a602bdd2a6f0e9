// Package fetch provides lifetime-scoped asynchronous state management for
// remote resources: a generic fetcher with loading/error/data snapshots, a
// match-list specialization, a download controller and a one-shot action
// runner. Each instance owns its state; transitions are ordered by a
// per-instance generation counter so the latest request always wins.
package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State is one fetcher's observable snapshot. Loading true implies Err empty.
// Data keeps its last successful value while a refetch is in flight and when
// a fetch fails after a previous success (stale-on-error is the documented
// policy here).
type State[T any] struct {
	Data    T
	Loaded  bool
	Loading bool
	Err     string
}

// Producer is the zero-argument asynchronous operation a fetcher runs,
// typically a network call.
type Producer[T any] func(ctx context.Context) (T, error)

// detailer is implemented by failures carrying a structured detail message.
type detailer interface {
	ErrorDetail() string
}

// Fetcher manages the fetch lifecycle for a single resource or collection.
// State is written only by the fetcher's own task completions; a generation
// counter discards resolutions that a newer invocation has superseded.
type Fetcher[T any] struct {
	mu       sync.Mutex
	producer Producer[T]
	state    State[T]
	lastErr  error
	gen      uint64
	closed   bool
	onChange func(State[T])
	logger   *zap.Logger
}

func New[T any](logger *zap.Logger, producer Producer[T]) *Fetcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher[T]{
		producer: producer,
		logger:   logger,
	}
}

// OnChange registers an observer invoked after every applied state
// transition. The observer runs outside the fetcher's lock.
func (f *Fetcher[T]) OnChange(fn func(State[T])) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// State returns a snapshot of the current state.
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError returns the typed error behind the current Err message, so
// callers can distinguish a missing resource from a generic failure. Nil
// when the last settled fetch succeeded.
func (f *Fetcher[T]) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Refetch starts an asynchronous fetch. It is safe to call while a prior
// fetch is in flight: the new invocation takes the next generation and any
// older resolution is discarded. The returned channel receives the fetcher
// state observed when this invocation settles and is then closed;
// fire-and-forget callers may simply drop it.
func (f *Fetcher[T]) Refetch(ctx context.Context) <-chan State[T] {
	done := make(chan State[T], 1)

	f.mu.Lock()
	if f.closed {
		st := f.state
		f.mu.Unlock()
		done <- st
		close(done)
		return done
	}

	f.gen++
	gen := f.gen
	f.state.Loading = true
	f.state.Err = ""
	st := f.state
	fn := f.onChange
	f.mu.Unlock()

	f.notify(fn, st)

	go func() {
		data, err := f.producer(ctx)
		f.settle(gen, data, err)

		done <- f.State()
		close(done)
	}()

	return done
}

// Reset discards any in-flight work and replaces the data wholesale, as if a
// fetch had just succeeded with the given value.
func (f *Fetcher[T]) Reset(data T) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}

	f.gen++
	f.state = State[T]{Data: data, Loaded: true}
	f.lastErr = nil
	st := f.state
	fn := f.onChange
	f.mu.Unlock()

	f.notify(fn, st)
}

// Close disposes the fetcher. No state transition is applied afterwards,
// including from fetches still in flight.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.gen++
	f.mu.Unlock()
}

func (f *Fetcher[T]) settle(gen uint64, data T, err error) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		f.logger.Debug("discarding superseded fetch result", zap.Uint64("generation", gen))
		return
	}

	f.state.Loading = false
	f.lastErr = err
	if err != nil {
		// Previous Data and Loaded survive a failed refetch.
		f.state.Err = Message(err)
		f.logger.Debug("fetch failed", zap.Uint64("generation", gen), zap.Error(err))
	} else {
		f.state.Data = data
		f.state.Loaded = true
		f.state.Err = ""
	}

	st := f.state
	fn := f.onChange
	f.mu.Unlock()

	f.notify(fn, st)
}

func (f *Fetcher[T]) notify(fn func(State[T]), st State[T]) {
	if fn != nil {
		fn(st)
	}
}

// Message extracts a user-facing message from a failure, preferring a
// structured detail field when the error carries one.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var d detailer
	if errors.As(err, &d) {
		if detail := strings.TrimSpace(d.ErrorDetail()); detail != "" {
			return detail
		}
	}

	return err.Error()
}
