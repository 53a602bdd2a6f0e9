package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type detailErr struct {
	detail string
}

func (e *detailErr) Error() string       { return "request failed" }
func (e *detailErr) ErrorDetail() string { return e.detail }

// blockingProducer hands each invocation's reply channel to the test, so the
// test controls exactly when and with what each fetch resolves.
func blockingProducer(calls chan chan int) Producer[int] {
	return func(context.Context) (int, error) {
		reply := make(chan int)
		calls <- reply
		return <-reply, nil
	}
}

func TestRefetchSuccess(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop(), func(context.Context) (int, error) {
		return 42, nil
	})

	st := <-f.Refetch(context.Background())

	if st.Loading {
		t.Fatal("loading must be false after resolution")
	}
	if st.Err != "" {
		t.Fatalf("unexpected error: %q", st.Err)
	}
	if !st.Loaded || st.Data != 42 {
		t.Fatalf("expected loaded data 42, got %+v", st)
	}
}

func TestRefetchSetsLoadingAndClearsError(t *testing.T) {
	t.Parallel()

	calls := make(chan chan int, 1)
	f := New(zap.NewNop(), blockingProducer(calls))

	done := f.Refetch(context.Background())
	reply := <-calls

	st := f.State()
	if !st.Loading {
		t.Fatal("loading must be true while the fetch is in flight")
	}
	if st.Err != "" {
		t.Fatalf("error must be cleared on invocation, got %q", st.Err)
	}

	reply <- 1
	<-done
}

func TestFailureKeepsPreviousData(t *testing.T) {
	t.Parallel()

	var fail bool
	f := New(zap.NewNop(), func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("service unavailable")
		}
		return 7, nil
	})

	<-f.Refetch(context.Background())

	fail = true
	st := <-f.Refetch(context.Background())

	if st.Err != "service unavailable" {
		t.Fatalf("unexpected error message: %q", st.Err)
	}
	// Stale-on-error: the last successful value survives the failed refetch.
	if st.Data != 7 || !st.Loaded {
		t.Fatalf("previous data must survive a failed refetch, got %+v", st)
	}
	if st.Loading {
		t.Fatal("loading must be false after failure")
	}
}

func TestMessagePrefersStructuredDetail(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop(), func(context.Context) (int, error) {
		return 0, &detailErr{detail: "Candidate not found"}
	})

	st := <-f.Refetch(context.Background())

	if st.Err != "Candidate not found" {
		t.Fatalf("expected detail message, got %q", st.Err)
	}
	if f.LastError() == nil {
		t.Fatal("typed error must stay reachable")
	}
}

func TestMessageFallsBackToError(t *testing.T) {
	t.Parallel()

	if got := Message(errors.New("plain failure")); got != "plain failure" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := Message(&detailErr{}); got != "request failed" {
		t.Fatalf("empty detail must fall back to Error(), got %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("nil error must map to empty message, got %q", got)
	}
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	t.Parallel()

	calls := make(chan chan int, 2)
	f := New(zap.NewNop(), blockingProducer(calls))
	ctx := context.Background()

	firstDone := f.Refetch(ctx)
	firstReply := <-calls // first invocation is in flight

	secondDone := f.Refetch(ctx)
	secondReply := <-calls

	secondReply <- 2
	<-secondDone

	if st := f.State(); st.Data != 2 || st.Loading {
		t.Fatalf("expected settled newer result, got %+v", st)
	}

	// The older invocation resolves after the newer one and must be dropped.
	firstReply <- 1
	<-firstDone

	if st := f.State(); st.Data != 2 {
		t.Fatalf("stale resolution overwrote newer data: %+v", st)
	}
	if st := f.State(); st.Loading {
		t.Fatal("stale resolution changed the loading flag")
	}
}

func TestCloseSuppressesLateUpdates(t *testing.T) {
	t.Parallel()

	calls := make(chan chan int, 1)
	f := New(zap.NewNop(), blockingProducer(calls))

	var mu sync.Mutex
	changes := 0
	f.OnChange(func(State[int]) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	done := f.Refetch(context.Background())
	reply := <-calls

	mu.Lock()
	before := changes
	mu.Unlock()

	f.Close()
	reply <- 9
	<-done

	if st := f.State(); st.Data != 0 || st.Loaded {
		t.Fatalf("disposed fetcher applied a state update: %+v", st)
	}

	mu.Lock()
	after := changes
	mu.Unlock()
	if after != before {
		t.Fatalf("observer fired after disposal: %d -> %d", before, after)
	}
}

func TestRefetchAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop(), func(context.Context) (int, error) {
		return 1, nil
	})
	f.Close()

	select {
	case st := <-f.Refetch(context.Background()):
		if st.Loaded || st.Loading {
			t.Fatalf("closed fetcher must stay at its final state, got %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("refetch on a closed fetcher must settle immediately")
	}
}

func TestOnChangeObservesTransitions(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop(), func(context.Context) (int, error) {
		return 3, nil
	})

	var mu sync.Mutex
	var seen []State[int]
	f.OnChange(func(st State[int]) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	<-f.Refetch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected loading and settled transitions, got %d", len(seen))
	}
	if !seen[0].Loading || seen[1].Loading {
		t.Fatalf("unexpected transition order: %+v", seen)
	}
	if seen[1].Data != 3 {
		t.Fatalf("settled transition carries the result, got %+v", seen[1])
	}
}
