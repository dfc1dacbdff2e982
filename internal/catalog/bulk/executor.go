package bulk

import (
	"context"
	"sync"
)

// Executor is the externally supplied unit of work applied to one item.
// The engine treats the call as opaque: nil means the item succeeded, any
// error is recorded against the item without aborting the batch.
type Executor interface {
	Execute(ctx context.Context, item Item) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, item Item) error

func (f ExecutorFunc) Execute(ctx context.Context, item Item) error {
	return f(ctx, item)
}

type executorKey struct {
	contentType ContentType
	action      Action
}

// Registry maps (content-type, action) pairs to their executors. The
// business logic layer registers entries at startup; the coordinator only
// looks them up.
type Registry struct {
	mu        sync.RWMutex
	executors map[executorKey]Executor
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[executorKey]Executor),
	}
}

// Register binds an executor to a (content-type, action) pair, replacing
// any previous binding.
func (r *Registry) Register(contentType ContentType, action Action, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[executorKey{contentType, action}] = exec
}

// Lookup returns the executor for a (content-type, action) pair.
func (r *Registry) Lookup(contentType ContentType, action Action) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[executorKey{contentType, action}]
	return exec, ok
}
