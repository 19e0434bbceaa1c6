package enhancer

import (
	"context"
	"fmt"
	"net/http"

	"image-enhancer/internal/domain"
)

// Resolve fetches a job's current result. It issues exactly one request per
// call. A job the service does not know, or knows but has not finished, is
// ErrNotFound; every other failure is a *ServiceError.
func (c *Client) Resolve(ctx context.Context, id string) (domain.Job, error) {
	var (
		task    taskResponse
		payload errorPayload
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&task).
		SetError(&payload).
		Get(pathTasks)
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return domain.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.Job{}, &ServiceError{Err: fmt.Errorf("failed to request task %s: %w", id, err)}
	}

	if !resp.IsSuccess() {
		return domain.Job{}, &ServiceError{
			StatusCode: resp.StatusCode(),
			Message:    payload.message(),
			Err:        fmt.Errorf("tasks returned status %d", resp.StatusCode()),
		}
	}

	if task.OutputURL == "" {
		if task.Status != "" {
			return domain.Job{}, fmt.Errorf("%w: %w: %s is %s", ErrNotFound, ErrNotReady, id, task.Status)
		}
		return domain.Job{}, &ServiceError{
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("task %s response has no output location", id),
		}
	}

	jobID := task.ID
	if jobID == "" {
		jobID = id
	}

	return domain.Job{
		ID:        jobID,
		OutputURL: task.OutputURL,
		Algorithm: task.Algo,
		Model:     task.Model,
		Scale:     task.Scale,
		Input:     task.Input,
		Status:    task.Status,
	}, nil
}
