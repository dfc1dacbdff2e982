// Package bulk implements the bulk content operation engine: a coordinator
// that accepts multi-item actions, runs them detached from the request cycle
// with bounded concurrency, and exposes pollable per-batch progress.
package bulk

import (
	"time"
)

// ContentType identifies which kind of catalog record a batch targets.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// Valid reports whether the content type is one of the known kinds.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeMovie, ContentTypeSeries:
		return true
	}
	return false
}

// Action identifies the operation applied to every item in a batch.
type Action string

const (
	ActionChangeStatus    Action = "change-status"
	ActionToggleFeatured  Action = "toggle-featured"
	ActionRefreshMetadata Action = "refresh-metadata"
	ActionDelete          Action = "delete"
)

// Valid reports whether the action is one of the known kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionChangeStatus, ActionToggleFeatured, ActionRefreshMetadata, ActionDelete:
		return true
	}
	return false
}

// Params carries the action-specific parameters of a request.
type Params struct {
	// Status is the target status value for change-status.
	Status string `json:"status,omitempty"`
	// Confirmed must be set for destructive actions (delete, change-status).
	// The engine trusts the flag; collecting the confirmation is the caller's job.
	Confirmed bool `json:"confirmed,omitempty"`
}

// Request is a bulk action over a set of catalog items.
type Request struct {
	ContentType ContentType `json:"type"`
	Action      Action      `json:"action"`
	IDs         []int64     `json:"ids"`
	Params      Params      `json:"params"`
}

// Item is a single unit of work handed to an Executor.
type Item struct {
	ContentType ContentType
	Action      Action
	ID          int64
	Params      Params
}

// Key is the opaque token identifying one batch's JobState for polling.
type Key string

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// ItemError records one item's failure. Errors accumulate in completion
// order, not submission order.
type ItemError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// JobState tracks one batch. The worker driving the batch is the sole
// writer; everyone else reads snapshots copied out of the progress store.
type JobState struct {
	Total       int         `json:"total"`
	Processed   int         `json:"processed"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	Status      Status      `json:"status"`
	Errors      []ItemError `json:"errors,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt time.Time   `json:"completedAt,omitzero"`
}

// Terminal reports whether the batch has finished processing.
func (s *JobState) Terminal() bool {
	return s.Status == StatusCompleted
}

// Clone returns a deep copy safe to hand outside the store lock.
func (s *JobState) Clone() JobState {
	out := *s
	if s.Errors != nil {
		out.Errors = make([]ItemError, len(s.Errors))
		copy(out.Errors, s.Errors)
	}
	return out
}

// Summary is the final outcome of a synchronously executed batch.
type Summary struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}
