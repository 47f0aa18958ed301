// Package broker implements the typed task-manager facade over the
// key-value broker: the task queue, per-job status keys, and per-job
// result mailboxes described by the task lifecycle.
package broker

import (
	"context"
	"time"

	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// Task is one dequeued unit of work: a job id paired with the
// screenshot parameters that produced it.
type Task struct {
	JobID  string                      `json:"job_id"`
	Params screenshot.ScreenshotParams `json:"params"`
}

// Facade is the typed task-manager surface injected into both the
// gateway and the worker. The three logical resources it fronts — task
// queue, status map, mailbox map — are implemented together so that
// submit_task's atomicity guarantee (a dequeueable task always has a
// readable status key) can be enforced by a single implementation.
type Facade interface {
	// SubmitTask generates a job id, writes its pending status record
	// and enqueues its task atomically, and returns the job id.
	SubmitTask(ctx context.Context, params screenshot.ScreenshotParams) (jobID string, err error)

	// PopTask blockingly dequeues the next task, waiting up to timeout.
	// Returns (nil, nil) on timeout.
	PopTask(ctx context.Context, timeout time.Duration) (*Task, error)

	// GetJob returns the current status record, or (nil, nil) if its
	// TTL has lapsed or it never existed.
	GetJob(ctx context.Context, jobID string) (*screenshot.JobResult, error)

	// UpdateJobStatus transitions a job's status, optionally attaching
	// a result. When the new status is terminal, a full copy of the
	// record (including any image bytes) is pushed to the job's result
	// mailbox before the status record is persisted with the image
	// nulled out. A missing status record (TTL lapsed) is a no-op.
	UpdateJobStatus(ctx context.Context, jobID string, status screenshot.JobStatus, result *screenshot.ScreenshotResult) error

	// WaitForResult blockingly pops the job's result mailbox, waiting
	// up to timeout. Returns (nil, nil) on timeout. A job's mailbox is
	// drained by at most one caller; any caller arriving after the
	// first successful drain (or after the mailbox's own short TTL)
	// observes a timeout.
	WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*screenshot.JobResult, error)

	// Close releases the broker connection.
	Close() error
}
