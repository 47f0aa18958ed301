// Package screenshot holds the validated request/result record types
// shared by the gateway, the broker facade, and the render engine.
package screenshot

import "github.com/cyw0ng95/v2e/pkg/rpcenvelope"

// JobStatus is one of the monotonic forward states of a Job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSuccess    JobStatus = "success"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status ends a job's lifecycle.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ClipRegion is an explicit pixel rectangle to capture.
type ClipRegion struct {
	X      float64 `json:"x" validate:"gte=0"`
	Y      float64 `json:"y" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// Viewport is the rendered page's pixel dimensions.
type Viewport struct {
	Width  int `json:"width" validate:"gte=1,lte=7680"`
	Height int `json:"height" validate:"gte=1,lte=4320"`
}

// ScreenshotParams is the validated input object for a render. See the
// field-level `validate` tags for the exact schema enforced at the
// gateway and re-enforced (defensively) by the worker.
type ScreenshotParams struct {
	HTML string `json:"html" validate:"required"`

	Selector string      `json:"selector,omitempty"`
	Clip     *ClipRegion `json:"clip,omitempty" validate:"omitempty"`
	FullPage bool        `json:"full_page,omitempty"`

	Viewport                *Viewport         `json:"viewport,omitempty" validate:"omitempty"`
	WaitUntil               string            `json:"wait_until,omitempty" validate:"omitempty,oneof=load domcontentloaded networkidle"`
	WaitForSelector         string            `json:"wait_for_selector,omitempty"`
	TimeoutMs               int               `json:"timeout_ms,omitempty" validate:"gte=0,lte=120000"`
	ExtraHTTPHeaders        map[string]string `json:"extra_http_headers,omitempty"`
	StyleOverrides          string            `json:"style_overrides,omitempty"`

	ImageType      string  `json:"image_type,omitempty" validate:"omitempty,oneof=png jpeg"`
	Quality        int     `json:"quality,omitempty" validate:"omitempty,gte=1,lte=100"`
	Scale          float64 `json:"scale,omitempty" validate:"omitempty,gte=0.1,lte=4.0"`
	OmitBackground bool    `json:"omit_background,omitempty"`
	Encoding       string  `json:"encoding,omitempty" validate:"omitempty,oneof=base64 binary"`
}

// EffectiveViewport returns the viewport to use, substituting the given
// defaults when params.Viewport is unset.
func (p *ScreenshotParams) EffectiveViewport(defaultWidth, defaultHeight int) Viewport {
	if p.Viewport != nil {
		return *p.Viewport
	}
	return Viewport{Width: defaultWidth, Height: defaultHeight}
}

// ScreenshotResult is the terminal payload for a render: the image fields
// on success, Error (and the ErrorCode it should surface as over JSON-RPC)
// on failure.
type ScreenshotResult struct {
	Image     string `json:"image"`
	ImageType string `json:"image_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int    `json:"size_bytes"`

	Error     string                `json:"error,omitempty"`
	ErrorCode rpcenvelope.ErrorCode `json:"error_code,omitempty"`
}

// JobResult is the persisted, terminal-or-pending record for a Job as
// stored by the broker facade. Result is present once the job reaches a
// terminal status.
type JobResult struct {
	JobID     string            `json:"job_id"`
	Status    JobStatus         `json:"status"`
	CreatedAt float64           `json:"created_at"`
	UpdatedAt float64           `json:"updated_at"`
	Result    *ScreenshotResult `json:"result,omitempty"`
}

// WithImageNulled returns a shallow copy of j whose Result.Image (if any)
// has been cleared, matching the "use once, then forget" rule applied
// before persisting the long-lived status record.
func (j *JobResult) WithImageNulled() *JobResult {
	if j == nil || j.Result == nil {
		return j
	}
	cp := *j
	resultCopy := *j.Result
	resultCopy.Image = ""
	cp.Result = &resultCopy
	return &cp
}

// ServiceError is a domain-level render/broker failure carrying the
// JSON-RPC error code it should surface as, distinct from a validation
// error (which is reported with field-path details instead).
type ServiceError struct {
	Code    rpcenvelope.ErrorCode
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError builds a ServiceError with the given code and message.
func NewServiceError(code rpcenvelope.ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
