package client

import (
	"context"
	"time"
)

// DefaultPollInterval is how often a Poller asks for a fresh snapshot.
const DefaultPollInterval = 2 * time.Second

// Poller polls a tracked batch until it reaches a terminal status.
//
// Cancelling the context stops polling only. The server-side batch keeps
// running to completion; there is no way to stop it from here.
type Poller struct {
	client   *Client
	interval time.Duration
}

// NewPoller creates a poller over the given client. An interval of 0 falls
// back to DefaultPollInterval.
func NewPoller(c *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{client: c, interval: interval}
}

// Poll fetches progress snapshots on a fixed interval, invoking onUpdate
// with each one, until the batch completes or the context is cancelled.
// Returns the final snapshot on completion, or the context's error when
// cancelled.
func (p *Poller) Poll(ctx context.Context, key string, onUpdate func(Progress)) (*Progress, error) {
	fetch := func() (*Progress, bool, error) {
		progress, err := p.client.GetProgress(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if onUpdate != nil {
			onUpdate(*progress)
		}
		return progress, progress.Terminal(), nil
	}

	// First snapshot right away, so short batches don't wait a full tick.
	if progress, done, err := fetch(); err != nil {
		return nil, err
	} else if done {
		return progress, nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			progress, done, err := fetch()
			if err != nil {
				return nil, err
			}
			if done {
				return progress, nil
			}
		}
	}
}
