package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// MemoryBroker is an in-process Facade implementation used by tests and
// by the gateway/worker test harnesses so the task lifecycle can be
// exercised without a live broker. It honors the same atomicity and
// single-delivery contracts as RedisBroker, just guarded by a mutex
// instead of a transactional pipeline.
type MemoryBroker struct {
	mu        sync.Mutex
	tasks     chan *Task
	statuses  map[string]*screenshot.JobResult
	mailboxes map[string]chan *screenshot.JobResult
}

// NewMemoryBroker returns an empty in-memory broker. queueCapacity
// bounds the task channel's buffer; 0 means unbuffered.
func NewMemoryBroker(queueCapacity int) *MemoryBroker {
	return &MemoryBroker{
		tasks:     make(chan *Task, queueCapacity),
		statuses:  make(map[string]*screenshot.JobResult),
		mailboxes: make(map[string]chan *screenshot.JobResult),
	}
}

// SubmitTask implements Facade.
func (b *MemoryBroker) SubmitTask(ctx context.Context, params screenshot.ScreenshotParams) (string, error) {
	jobID := uuid.NewString()
	now := nowSeconds()

	b.mu.Lock()
	b.statuses[jobID] = &screenshot.JobResult{
		JobID:     jobID,
		Status:    screenshot.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.mu.Unlock()

	select {
	case b.tasks <- &Task{JobID: jobID, Params: params}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return jobID, nil
}

// PopTask implements Facade.
func (b *MemoryBroker) PopTask(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case task := <-b.tasks:
		return task, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetJob implements Facade.
func (b *MemoryBroker) GetJob(ctx context.Context, jobID string) (*screenshot.JobResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.statuses[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

// UpdateJobStatus implements Facade.
func (b *MemoryBroker) UpdateJobStatus(ctx context.Context, jobID string, status screenshot.JobStatus, result *screenshot.ScreenshotResult) error {
	b.mu.Lock()
	job, ok := b.statuses[jobID]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	job.Status = status
	job.UpdatedAt = nowSeconds()
	job.Result = result

	if status.IsTerminal() {
		mailboxCopy := *job
		if job.Result != nil {
			resultCopy := *job.Result
			mailboxCopy.Result = &resultCopy
		}
		mailbox, exists := b.mailboxes[jobID]
		if !exists {
			mailbox = make(chan *screenshot.JobResult, 1)
			b.mailboxes[jobID] = mailbox
		}
		b.mu.Unlock()

		select {
		case mailbox <- &mailboxCopy:
		default:
			// Mailbox already holds an undrained entry; RPUSH exactly
			// once per job means this should not happen in practice.
		}

		b.mu.Lock()
	}

	persisted := job.WithImageNulled()
	b.statuses[jobID] = persisted
	b.mu.Unlock()
	return nil
}

// WaitForResult implements Facade. A mailbox is created lazily and
// deleted once drained, matching the single-delivery contract: a second
// waiter on the same job id finds no channel and times out.
func (b *MemoryBroker) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*screenshot.JobResult, error) {
	b.mu.Lock()
	mailbox, ok := b.mailboxes[jobID]
	if !ok {
		mailbox = make(chan *screenshot.JobResult, 1)
		b.mailboxes[jobID] = mailbox
	}
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result, ok := <-mailbox:
		if !ok {
			return nil, nil
		}
		b.mu.Lock()
		delete(b.mailboxes, jobID)
		b.mu.Unlock()
		return result, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Facade.
func (b *MemoryBroker) Close() error {
	return nil
}
