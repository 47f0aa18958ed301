package broker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/jsonutil"
	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// mailboxTTL is the short TTL on a per-job result mailbox: long enough
// for a gateway's bounded wait to drain it, short enough that an
// abandoned mailbox (caller already timed out) doesn't linger.
const mailboxTTL = 60 * time.Second

func mailboxKey(jobID string) string {
	return "result_queue:" + jobID
}

// RedisBroker is the Facade implementation backed by a single
// github.com/redis/go-redis/v9 client.
type RedisBroker struct {
	client       *redis.Client
	taskQueue    string
	resultPrefix string
	resultTTL    time.Duration
}

// NewRedisBroker dials (lazily; go-redis connects on first use) a
// broker client per cfg and wraps it in the task-manager facade.
func NewRedisBroker(cfg common.BrokerConfig) *RedisBroker {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &RedisBroker{
		client:       client,
		taskQueue:    cfg.TaskQueue,
		resultPrefix: cfg.ResultPrefix,
		resultTTL:    time.Duration(cfg.ResultTTLSeconds) * time.Second,
	}
}

func (b *RedisBroker) statusKey(jobID string) string {
	return b.resultPrefix + jobID
}

// SubmitTask implements Facade. The status SET and task-queue RPUSH are
// issued inside one pipeline so a dequeuer can never observe a task
// whose status key is absent.
func (b *RedisBroker) SubmitTask(ctx context.Context, params screenshot.ScreenshotParams) (string, error) {
	jobID := uuid.NewString()
	now := nowSeconds()

	job := &screenshot.JobResult{
		JobID:     jobID,
		Status:    screenshot.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	statusBytes, err := jsonutil.Marshal(job)
	if err != nil {
		return "", err
	}

	task := &Task{JobID: jobID, Params: params}
	taskBytes, err := jsonutil.Marshal(task)
	if err != nil {
		return "", err
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.statusKey(jobID), statusBytes, b.resultTTL)
		pipe.RPush(ctx, b.taskQueue, taskBytes)
		return nil
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// PopTask implements Facade.
func (b *RedisBroker) PopTask(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := b.client.BLPop(ctx, timeout, b.taskQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPop returns [key, value]; we only pushed to one key.
	if len(res) < 2 {
		return nil, nil
	}
	var task Task
	if err := jsonutil.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetJob implements Facade.
func (b *RedisBroker) GetJob(ctx context.Context, jobID string) (*screenshot.JobResult, error) {
	raw, err := b.client.Get(ctx, b.statusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job screenshot.JobResult
	if err := jsonutil.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJobStatus implements Facade.
func (b *RedisBroker) UpdateJobStatus(ctx context.Context, jobID string, status screenshot.JobStatus, result *screenshot.ScreenshotResult) error {
	job, err := b.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		// TTL lapsed; nothing to update.
		return nil
	}

	job.Status = status
	job.UpdatedAt = nowSeconds()
	job.Result = result

	if status.IsTerminal() {
		mailboxBytes, err := jsonutil.Marshal(job)
		if err != nil {
			return err
		}
		if err := b.client.RPush(ctx, mailboxKey(jobID), mailboxBytes).Err(); err != nil {
			return err
		}
		if err := b.client.Expire(ctx, mailboxKey(jobID), mailboxTTL).Err(); err != nil {
			return err
		}
	}

	persisted := job.WithImageNulled()
	statusBytes, err := jsonutil.Marshal(persisted)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.statusKey(jobID), statusBytes, b.resultTTL).Err()
}

// WaitForResult implements Facade.
func (b *RedisBroker) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*screenshot.JobResult, error) {
	res, err := b.client.BLPop(ctx, timeout, mailboxKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	var job screenshot.JobResult
	if err := jsonutil.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Close implements Facade.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
