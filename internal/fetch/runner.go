package fetch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ActionRunner tracks one-shot mutations (create/update/delete) with
// loading/error/success flags. There is no automatic retry; the only retry
// path is the caller invoking Execute again.
type ActionRunner struct {
	mu      sync.Mutex
	loading bool
	success bool
	errMsg  string
	logger  *zap.Logger
}

func NewActionRunner(logger *zap.Logger) *ActionRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ActionRunner{logger: logger}
}

// Execute runs the action and reports whether it succeeded. Flags are reset
// on entry; loading is false again after either outcome.
func (r *ActionRunner) Execute(ctx context.Context, action func(context.Context) error) bool {
	r.mu.Lock()
	r.loading = true
	r.success = false
	r.errMsg = ""
	r.mu.Unlock()

	err := action(ctx)

	r.mu.Lock()
	r.loading = false
	if err != nil {
		r.errMsg = Message(err)
	} else {
		r.success = true
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("action failed", zap.Error(err))
		return false
	}

	return true
}

// Reset clears all flags to their initial state.
func (r *ActionRunner) Reset() {
	r.mu.Lock()
	r.loading = false
	r.success = false
	r.errMsg = ""
	r.mu.Unlock()
}

func (r *ActionRunner) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *ActionRunner) Success() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.success
}

func (r *ActionRunner) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}
