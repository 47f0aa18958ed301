package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cyw0ng95/v2e/pkg/broker"
	"github.com/cyw0ng95/v2e/pkg/jsonutil"
	"github.com/cyw0ng95/v2e/pkg/rpcenvelope"
	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// gatewayHandlers groups the JSON-RPC method handlers and the state
// (broker facade, result-wait slack) they close over.
type gatewayHandlers struct {
	broker    broker.Facade
	waitSlack time.Duration
}

// register binds every supported method to reg.
func (h *gatewayHandlers) register(reg *rpcenvelope.Registry) {
	reg.Register("ping", h.ping)
	reg.Register("get_methods", h.getMethods(reg))
	reg.Register("screenshot", h.screenshot)
	reg.Register("get_job_status", h.getJobStatus)
}

func (h *gatewayHandlers) ping(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return map[string]interface{}{"pong": true, "status": "online"}, nil
}

func (h *gatewayHandlers) getMethods(reg *rpcenvelope.Registry) rpcenvelope.Handler {
	return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		methods := reg.Methods()
		sort.Strings(methods)
		return map[string]interface{}{"methods": methods}, nil
	}
}

func (h *gatewayHandlers) screenshot(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params screenshot.ScreenshotParams
	if len(raw) > 0 {
		if err := jsonutil.Unmarshal(raw, &params); err != nil {
			return nil, rpcenvelope.NewError(rpcenvelope.InvalidParams, "malformed params: "+err.Error())
		}
	}

	if details := screenshot.Validate(&params); len(details) > 0 {
		return nil, rpcenvelope.NewErrorWithData(rpcenvelope.InvalidParams, "parameter validation failed", map[string]interface{}{"details": details})
	}

	jobID, err := h.broker.SubmitTask(ctx, params)
	if err != nil {
		return nil, rpcenvelope.NewError(rpcenvelope.InternalError, "internal server error")
	}

	waitTimeout := time.Duration(params.TimeoutMs)*time.Millisecond + h.waitSlack

	job, err := h.broker.WaitForResult(ctx, jobID, waitTimeout)
	if err != nil {
		return nil, rpcenvelope.NewError(rpcenvelope.InternalError, "internal server error")
	}
	if job == nil {
		return nil, rpcenvelope.NewError(rpcenvelope.Timeout, fmt.Sprintf("timed out waiting for job %s", jobID))
	}
	if job.Status == screenshot.StatusFailed {
		msg := "screenshot failed"
		code := rpcenvelope.ScreenshotFailed
		if job.Result != nil {
			if job.Result.Error != "" {
				msg = job.Result.Error
			}
			if job.Result.ErrorCode != 0 {
				code = job.Result.ErrorCode
			}
		}
		return nil, rpcenvelope.NewError(code, msg)
	}

	return job.Result, nil
}

func (h *gatewayHandlers) getJobStatus(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req struct {
		JobID string `json:"job_id"`
	}
	if len(raw) > 0 {
		if err := jsonutil.Unmarshal(raw, &req); err != nil {
			return nil, rpcenvelope.NewError(rpcenvelope.InvalidParams, "malformed params: "+err.Error())
		}
	}
	if req.JobID == "" {
		return nil, rpcenvelope.NewError(rpcenvelope.InvalidParams, "job_id: field is required")
	}

	job, err := h.broker.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, rpcenvelope.NewError(rpcenvelope.InternalError, "internal server error")
	}
	if job == nil {
		return nil, rpcenvelope.NewError(rpcenvelope.JobNotFound, "job not found: "+req.JobID)
	}

	return job.WithImageNulled(), nil
}
