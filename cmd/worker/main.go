package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyw0ng95/v2e/pkg/broker"
	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/render"
	"github.com/cyw0ng95/v2e/pkg/rpcenvelope"
	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// popTaskTimeout bounds each blocking poll of the task queue so the
// worker can notice a shutdown signal between tasks.
const popTaskTimeout = 5 * time.Second

func main() {
	cfg, err := common.Load()
	if err != nil {
		common.Fatal("failed to load configuration: %v", err)
	}
	common.SetLevel(common.ParseLevel(cfg.Logging.Level))

	b := broker.NewRedisBroker(cfg.Broker)
	defer b.Close()

	engine, err := render.NewEngine(cfg)
	if err != nil {
		common.Fatal("failed to start render engine: %v", err)
	}
	defer engine.Close()

	w := &worker{broker: b, engine: engine}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		common.Info("shutdown signal received, finishing current task")
		w.requestStop()
	}()

	common.Info("worker started")
	w.run()
	common.Info("worker stopped")
}

// worker owns the main loop described in the task lifecycle: pop,
// mark processing, render, mark terminal. should_exit is set by a
// signal handler and checked between tasks, never mid-render.
type worker struct {
	broker     broker.Facade
	engine     *render.Engine
	shouldExit bool
}

func (w *worker) requestStop() {
	w.shouldExit = true
}

func (w *worker) run() {
	ctx := context.Background()
	for !w.shouldExit {
		if err := w.tick(ctx); err != nil {
			common.Error("worker loop error: %v", err)
			time.Sleep(1 * time.Second)
		}
	}
}

func (w *worker) tick(ctx context.Context) error {
	task, err := w.broker.PopTask(ctx, popTaskTimeout)
	if err != nil {
		return fmt.Errorf("pop_task: %w", err)
	}
	if task == nil {
		return nil
	}

	if err := w.broker.UpdateJobStatus(ctx, task.JobID, screenshot.StatusProcessing, nil); err != nil {
		return fmt.Errorf("update_job_status(processing): %w", err)
	}

	if details := screenshot.Validate(&task.Params); len(details) > 0 {
		result := &screenshot.ScreenshotResult{Error: "invalid params: " + details[0], ErrorCode: rpcenvelope.InvalidParams}
		return w.broker.UpdateJobStatus(ctx, task.JobID, screenshot.StatusFailed, result)
	}

	result, renderErr := w.engine.Render(ctx, task.Params)
	if renderErr == nil {
		return w.broker.UpdateJobStatus(ctx, task.JobID, screenshot.StatusSuccess, result)
	}

	if svcErr, ok := renderErr.(*screenshot.ServiceError); ok {
		common.Warn("job %s failed: %s", task.JobID, svcErr.Message)
		failResult := &screenshot.ScreenshotResult{Error: svcErr.Message, ErrorCode: svcErr.Code}
		return w.broker.UpdateJobStatus(ctx, task.JobID, screenshot.StatusFailed, failResult)
	}

	common.Error("job %s failed with unexpected error: %v", task.JobID, renderErr)
	failResult := &screenshot.ScreenshotResult{Error: fmt.Sprintf("internal error: %T", renderErr), ErrorCode: rpcenvelope.InternalError}
	return w.broker.UpdateJobStatus(ctx, task.JobID, screenshot.StatusFailed, failResult)
}
