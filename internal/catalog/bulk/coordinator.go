package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultConcurrency bounds how many item executions run at once within a
// batch. Kept small so a batch cannot overwhelm the backing data store.
const DefaultConcurrency = 4

var (
	// ErrInvalidRequest is returned for malformed batch requests.
	ErrInvalidRequest = errors.New("invalid bulk request")

	// ErrBusy is returned while another batch is in flight. Callers should
	// retry later; submissions are rejected, never queued.
	ErrBusy = errors.New("another bulk operation is already running")

	// ErrNoExecutor is returned when no unit of work is registered for the
	// requested (content-type, action) pair.
	ErrNoExecutor = errors.New("no executor registered for action")
)

// Options configures a Coordinator.
type Options struct {
	// Concurrency is the per-batch worker pool size. Defaults to
	// DefaultConcurrency when <= 0.
	Concurrency int

	// ItemTimeout bounds a single item execution. Zero disables the
	// timeout, matching a pool slot to the executor's own patience.
	ItemTimeout time.Duration

	// OnBatchDone, when set, is invoked with the final counts after every
	// batch completes. Used for metrics.
	OnBatchDone func(succeeded, failed int)

	Logger zerolog.Logger
}

// Coordinator accepts bulk requests, guards against concurrent batches and
// launches one worker per accepted batch. Construct one per process and
// pass it by reference; it owns all engine state.
type Coordinator struct {
	store       *Store
	registry    *Registry
	concurrency int
	itemTimeout time.Duration
	onBatchDone func(succeeded, failed int)
	logger      zerolog.Logger

	// Single-slot execution lock: only one batch may be in flight at a
	// time, process-wide. Sufficient for a single-operator admin tool;
	// a known scalability ceiling for anything more.
	mu       sync.Mutex
	inFlight bool
}

// NewCoordinator creates a coordinator over the given progress store and
// executor registry.
func NewCoordinator(store *Store, registry *Registry, opts Options) *Coordinator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Coordinator{
		store:       store,
		registry:    registry,
		concurrency: concurrency,
		itemTimeout: opts.ItemTimeout,
		onBatchDone: opts.OnBatchDone,
		logger:      opts.Logger,
	}
}

// Store exposes the progress store for poll handlers.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Submit validates and accepts a batch, returning its progress key
// immediately. The batch runs detached: it keeps going even if no one ever
// polls the key. Returns ErrInvalidRequest, ErrNoExecutor or ErrBusy.
func (c *Coordinator) Submit(ctx context.Context, req Request) (Key, error) {
	exec, err := c.admit(req)
	if err != nil {
		return "", err
	}

	key, err := c.track(req)
	if err != nil {
		c.release()
		return "", err
	}

	c.logger.Info().
		Str("key", string(key)).
		Str("type", string(req.ContentType)).
		Str("action", string(req.Action)).
		Int("items", len(req.IDs)).
		Msg("bulk batch accepted")

	w := c.newWorker(key, req, exec)
	go func() {
		defer c.release()
		// Detached from the request context: closing the client's
		// connection must not stop the batch.
		w.run(context.Background())
	}()

	return key, nil
}

// Execute runs a batch synchronously and returns its summary. Used for
// fast actions where the caller wants a direct answer instead of a
// progress key. Validation and the single-flight guard apply exactly as
// for Submit.
func (c *Coordinator) Execute(ctx context.Context, req Request) (Summary, error) {
	exec, err := c.admit(req)
	if err != nil {
		return Summary{}, err
	}
	defer c.release()

	key, err := c.track(req)
	if err != nil {
		return Summary{}, err
	}

	w := c.newWorker(key, req, exec)
	w.run(ctx)

	state, ok := c.store.Get(key)
	if !ok {
		return Summary{}, ErrNotFound
	}
	return Summary{
		Total:     state.Total,
		Succeeded: state.Succeeded,
		Failed:    state.Failed,
		Errors:    state.Errors,
	}, nil
}

// admit validates the request, resolves its executor and claims the
// single-flight slot. The caller must release the slot when done.
func (c *Coordinator) admit(req Request) (Executor, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	exec, ok := c.registry.Lookup(req.ContentType, req.Action)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoExecutor, req.ContentType, req.Action)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return nil, ErrBusy
	}
	c.inFlight = true
	return exec, nil
}

// track allocates a fresh opaque progress key and inserts the pending
// JobState. Keys are random, never derived from request content, so
// repeated identical batches cannot collide.
func (c *Coordinator) track(req Request) (Key, error) {
	key := Key(uuid.NewString())
	state := JobState{
		Total:     len(req.IDs),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Put(key, state); err != nil {
		return "", err
	}
	return key, nil
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

func validate(req Request) error {
	if !req.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidRequest, req.ContentType)
	}
	if !req.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Action)
	}
	if len(req.IDs) == 0 {
		return fmt.Errorf("%w: no items selected", ErrInvalidRequest)
	}
	seen := make(map[int64]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate item id %d", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	switch req.Action {
	case ActionChangeStatus:
		if req.Params.Status == "" {
			return fmt.Errorf("%w: change-status requires a target status", ErrInvalidRequest)
		}
		if !req.Params.Confirmed {
			return fmt.Errorf("%w: change-status requires confirmation", ErrInvalidRequest)
		}
	case ActionDelete:
		if !req.Params.Confirmed {
			return fmt.Errorf("%w: delete requires confirmation", ErrInvalidRequest)
		}
	}
	return nil
}
