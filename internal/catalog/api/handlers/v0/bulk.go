package v0

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
	"github.com/medialib-dev/medialib/internal/catalog/telemetry"
)

// BulkRequestBody is the request body for a bulk action.
type BulkRequestBody struct {
	Type    string  `json:"type" doc:"Content type the ids belong to" enum:"movie,series"`
	IDs     []int64 `json:"ids" doc:"Item ids to apply the action to"`
	Status  string  `json:"status,omitempty" doc:"Target status for change-status"`
	Confirm bool    `json:"confirm,omitempty" doc:"Operator confirmation for destructive actions"`
	Track   bool    `json:"track,omitempty" doc:"Run detached and return a progress key instead of waiting"`
}

// BulkInput is the input for submitting a bulk action.
type BulkInput struct {
	Action string `path:"action" doc:"Action to apply" enum:"change-status,toggle-featured,refresh-metadata,delete"`
	Body   BulkRequestBody
}

// BulkResponseBody is the response for a bulk submission. The counts are
// populated only for synchronous batches; tracked batches report through
// the progress endpoint instead.
type BulkResponseBody struct {
	Success     bool             `json:"success" doc:"Whether the batch was accepted or completed"`
	Message     string           `json:"message" doc:"Human-readable outcome"`
	ProgressKey string           `json:"progressKey,omitempty" doc:"Poll token, present only for tracked batches"`
	Total       int              `json:"total,omitempty" doc:"Items in the batch, synchronous batches only"`
	Succeeded   int              `json:"succeeded,omitempty" doc:"Items that succeeded, synchronous batches only"`
	Failed      int              `json:"failed,omitempty" doc:"Items that failed, synchronous batches only"`
	Errors      []bulk.ItemError `json:"errors,omitempty" doc:"Per-item failures, synchronous batches only"`
}

// ProgressInput is the input for polling batch progress.
type ProgressInput struct {
	Key string `query:"key" required:"true" doc:"Progress key returned by a tracked submission"`
}

// ProgressBody mirrors a batch's JobState snapshot.
type ProgressBody struct {
	Total       int              `json:"total" doc:"Items in the batch"`
	Processed   int              `json:"processed" doc:"Items attempted so far"`
	Succeeded   int              `json:"succeeded" doc:"Items that succeeded"`
	Failed      int              `json:"failed" doc:"Items that failed"`
	Status      string           `json:"status" doc:"Batch status (pending, processing, completed)"`
	Errors      []bulk.ItemError `json:"errors,omitempty" doc:"Per-item failures, in completion order"`
	CreatedAt   string           `json:"createdAt" doc:"Batch creation timestamp"`
	CompletedAt string           `json:"completedAt,omitempty" doc:"Batch completion timestamp"`
}

// ProgressResponseBody is the response for a progress poll.
type ProgressResponseBody struct {
	Success  bool          `json:"success" doc:"Whether the key was found"`
	Progress *ProgressBody `json:"progress,omitempty" doc:"Current batch state"`
}

// RegisterBulkEndpoints registers the bulk submission and progress endpoints.
func RegisterBulkEndpoints(api huma.API, pathPrefix string, coordinator *bulk.Coordinator, metrics *telemetry.Metrics) {
	registerSubmitEndpoint(api, pathPrefix, coordinator, metrics)
	registerProgressEndpoint(api, pathPrefix, coordinator.Store())
}

func registerSubmitEndpoint(api huma.API, pathPrefix string, coordinator *bulk.Coordinator, metrics *telemetry.Metrics) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-bulk-action",
		Method:      http.MethodPost,
		Path:        pathPrefix + "/bulk/{action}",
		Summary:     "Apply an action to many items",
		Description: "Apply one action to every selected item. With track=true the batch runs detached and the response carries a progress key for polling; otherwise the call blocks until the batch completes.",
		Tags:        []string{"bulk"},
	}, func(ctx context.Context, input *BulkInput) (*Response[BulkResponseBody], error) {
		req := bulk.Request{
			ContentType: bulk.ContentType(input.Body.Type),
			Action:      bulk.Action(input.Action),
			IDs:         input.Body.IDs,
			Params: bulk.Params{
				Status:    input.Body.Status,
				Confirmed: input.Body.Confirm,
			},
		}

		if input.Body.Track {
			key, err := coordinator.Submit(ctx, req)
			if err != nil {
				return nil, mapBulkError(err)
			}
			if metrics != nil {
				metrics.BulkBatches.Add(ctx, 1)
			}
			return &Response[BulkResponseBody]{
				Body: BulkResponseBody{
					Success:     true,
					Message:     fmt.Sprintf("batch of %d items accepted", len(req.IDs)),
					ProgressKey: string(key),
				},
			}, nil
		}

		summary, err := coordinator.Execute(ctx, req)
		if err != nil {
			return nil, mapBulkError(err)
		}
		if metrics != nil {
			metrics.BulkBatches.Add(ctx, 1)
		}
		return &Response[BulkResponseBody]{
			Body: BulkResponseBody{
				Success:   true,
				Message:   fmt.Sprintf("processed %d items, %d failed", summary.Total, summary.Failed),
				Total:     summary.Total,
				Succeeded: summary.Succeeded,
				Failed:    summary.Failed,
				Errors:    summary.Errors,
			},
		}, nil
	})
}

func registerProgressEndpoint(api huma.API, pathPrefix string, store *bulk.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-bulk-progress",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/bulk/progress",
		Summary:     "Poll batch progress",
		Description: "Get the current progress snapshot of a tracked batch. An unknown or expired key returns 404; clients should stop polling rather than retry.",
		Tags:        []string{"bulk"},
	}, func(ctx context.Context, input *ProgressInput) (*Response[ProgressResponseBody], error) {
		state, ok := store.Get(bulk.Key(input.Key))
		if !ok {
			return nil, huma.Error404NotFound("unknown or expired progress key: " + input.Key)
		}

		body := ProgressBody{
			Total:     state.Total,
			Processed: state.Processed,
			Succeeded: state.Succeeded,
			Failed:    state.Failed,
			Status:    string(state.Status),
			Errors:    state.Errors,
			CreatedAt: state.CreatedAt.Format(time.RFC3339),
		}
		if !state.CompletedAt.IsZero() {
			body.CompletedAt = state.CompletedAt.Format(time.RFC3339)
		}

		return &Response[ProgressResponseBody]{
			Body: ProgressResponseBody{
				Success:  true,
				Progress: &body,
			},
		}, nil
	})
}

func mapBulkError(err error) error {
	switch {
	case errors.Is(err, bulk.ErrInvalidRequest):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, bulk.ErrBusy):
		return huma.Error409Conflict("another bulk operation is already running, retry later")
	case errors.Is(err, bulk.ErrNoExecutor):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("failed to run bulk action: " + err.Error())
	}
}
