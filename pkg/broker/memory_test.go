package broker

import (
	"context"
	"testing"
	"time"

	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

func TestMemoryBroker_SubmitThenGetJob(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	jobID, err := b.SubmitTask(ctx, screenshot.ScreenshotParams{HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}

	job, err := b.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job == nil {
		t.Fatal("expected non-nil job immediately after submit")
	}
	if job.Status != screenshot.StatusPending {
		t.Errorf("Status = %v, want pending", job.Status)
	}
}

func TestMemoryBroker_PopTask(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	jobID, err := b.SubmitTask(ctx, screenshot.ScreenshotParams{HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}

	task, err := b.PopTask(ctx, time.Second)
	if err != nil {
		t.Fatalf("PopTask: %v", err)
	}
	if task == nil || task.JobID != jobID {
		t.Fatalf("PopTask returned %v, want job %s", task, jobID)
	}
}

func TestMemoryBroker_PopTask_TimesOutWhenEmpty(t *testing.T) {
	b := NewMemoryBroker(4)
	task, err := b.PopTask(context.Background(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("PopTask: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil task on timeout, got %v", task)
	}
}

func TestMemoryBroker_UpdateJobStatus_NullsImageInStatus(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	jobID, _ := b.SubmitTask(ctx, screenshot.ScreenshotParams{HTML: "<p>hi</p>"})

	result := &screenshot.ScreenshotResult{Image: "base64pixels", ImageType: "png", Width: 10, Height: 10}
	if err := b.UpdateJobStatus(ctx, jobID, screenshot.StatusSuccess, result); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	job, err := b.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Result == nil {
		t.Fatal("expected a result on the status record")
	}
	if job.Result.Image != "" {
		t.Errorf("status record image = %q, want empty (nulled)", job.Result.Image)
	}
	if job.Status != screenshot.StatusSuccess {
		t.Errorf("Status = %v, want success", job.Status)
	}
}

func TestMemoryBroker_WaitForResult_SingleDelivery(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	jobID, _ := b.SubmitTask(ctx, screenshot.ScreenshotParams{HTML: "<p>hi</p>"})
	result := &screenshot.ScreenshotResult{Image: "X", ImageType: "png"}
	if err := b.UpdateJobStatus(ctx, jobID, screenshot.StatusSuccess, result); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	first, err := b.WaitForResult(ctx, jobID, time.Second)
	if err != nil {
		t.Fatalf("WaitForResult (first): %v", err)
	}
	if first == nil || first.Result == nil || first.Result.Image != "X" {
		t.Fatalf("expected first waiter to receive image, got %v", first)
	}

	second, err := b.WaitForResult(ctx, jobID, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForResult (second): %v", err)
	}
	if second != nil {
		t.Errorf("expected second waiter to time out, got %v", second)
	}
}

func TestMemoryBroker_UpdateJobStatus_MissingJobIsNoOp(t *testing.T) {
	b := NewMemoryBroker(4)
	err := b.UpdateJobStatus(context.Background(), "does-not-exist", screenshot.StatusSuccess, nil)
	if err != nil {
		t.Errorf("expected no error for missing job, got %v", err)
	}
}

func TestMemoryBroker_StatusSequenceIsMonotonic(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()
	jobID, _ := b.SubmitTask(ctx, screenshot.ScreenshotParams{HTML: "<p>hi</p>"})

	seen := []screenshot.JobStatus{}
	job, _ := b.GetJob(ctx, jobID)
	seen = append(seen, job.Status)

	b.UpdateJobStatus(ctx, jobID, screenshot.StatusProcessing, nil)
	job, _ = b.GetJob(ctx, jobID)
	seen = append(seen, job.Status)

	b.UpdateJobStatus(ctx, jobID, screenshot.StatusSuccess, &screenshot.ScreenshotResult{ImageType: "png"})
	job, _ = b.GetJob(ctx, jobID)
	seen = append(seen, job.Status)

	want := []screenshot.JobStatus{screenshot.StatusPending, screenshot.StatusProcessing, screenshot.StatusSuccess}
	for i, s := range want {
		if seen[i] != s {
			t.Errorf("seen[%d] = %v, want %v", i, seen[i], s)
		}
	}
}
