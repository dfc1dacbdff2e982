package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// worker drives a single batch from pending to completed. It is the sole
// writer of its JobState; every mutation goes through the store lock so
// poll handlers always read consistent counters.
type worker struct {
	store       *Store
	exec        Executor
	key         Key
	req         Request
	concurrency int
	itemTimeout time.Duration
	onBatchDone func(succeeded, failed int)
	logger      zerolog.Logger
}

func (c *Coordinator) newWorker(key Key, req Request, exec Executor) *worker {
	return &worker{
		store:       c.store,
		exec:        exec,
		key:         key,
		req:         req,
		concurrency: c.concurrency,
		itemTimeout: c.itemTimeout,
		onBatchDone: c.onBatchDone,
		logger:      c.logger.With().Str("key", string(key)).Logger(),
	}
}

// run processes every item with bounded parallelism. No ordering is
// guaranteed among items; errors accumulate in completion order. The batch
// always reaches completed, no matter how many items fail.
func (w *worker) run(ctx context.Context) {
	started := time.Now()

	_ = w.store.Update(w.key, func(s *JobState) {
		s.Status = StatusProcessing
	})

	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)
	for _, id := range w.req.IDs {
		g.Go(func() error {
			w.runItem(ctx, id)
			return nil
		})
	}
	// Item failures are captured per item, never returned.
	_ = g.Wait()

	var succeeded, failed int
	_ = w.store.Update(w.key, func(s *JobState) {
		s.Status = StatusCompleted
		s.CompletedAt = time.Now().UTC()
		succeeded, failed = s.Succeeded, s.Failed
	})

	if w.onBatchDone != nil {
		w.onBatchDone(succeeded, failed)
	}

	w.logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Dur("elapsed", time.Since(started)).
		Msg("bulk batch completed")
}

// runItem executes one unit of work and records its outcome. Local
// recovery is mandatory here: a misbehaving executor must not corrupt the
// counters or stop the other pool slots.
func (w *worker) runItem(ctx context.Context, id int64) {
	if w.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.itemTimeout)
		defer cancel()
	}

	err := w.execute(ctx, Item{
		ContentType: w.req.ContentType,
		Action:      w.req.Action,
		ID:          id,
		Params:      w.req.Params,
	})

	_ = w.store.Update(w.key, func(s *JobState) {
		s.Processed++
		if err != nil {
			s.Failed++
			s.Errors = append(s.Errors, ItemError{ID: id, Error: err.Error()})
		} else {
			s.Succeeded++
		}
	})

	if err != nil {
		w.logger.Debug().Int64("id", id).Err(err).Msg("bulk item failed")
	}
}

// execute invokes the executor, converting a panic into a recorded item
// failure.
func (w *worker) execute(ctx context.Context, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return w.exec.Execute(ctx, item)
}
