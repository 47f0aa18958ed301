package rpcenvelope

import (
	"context"
	"encoding/json"

	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/jsonutil"
)

// Handler processes a decoded request's raw params and returns a result
// value to be marshaled into the response, or an *Error.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Registry maps method names to handlers and dispatches decoded requests.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty method registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a method name to a handler. Re-registering a name
// overwrites the previous handler.
func (r *Registry) Register(method string, h Handler) {
	r.handlers[method] = h
}

// Methods returns the registered method names.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Decode parses raw request bytes into a Request. A malformed document
// yields (nil, error); the caller should respond with a ParseError whose
// id is null.
func Decode(raw []byte) (*Request, error) {
	var req Request
	if err := jsonutil.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Dispatch routes req to its registered handler and builds the matching
// Response. It never returns an error itself: all failure modes are
// encoded into the returned Response's Error field. Dispatch does not
// special-case notifications; callers that want fire-and-forget
// semantics should check req.IsNotification() before writing the
// response back to the transport.
func (r *Registry) Dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version {
		return ErrorResponse(req.ID, NewError(InvalidRequest, "jsonrpc version must be \"2.0\""))
	}
	if req.Method == "" {
		return ErrorResponse(req.ID, NewError(InvalidRequest, "method is required"))
	}

	handler, ok := r.handlers[req.Method]
	if !ok {
		return ErrorResponse(req.ID, NewError(MethodNotFound, "unknown method: "+req.Method))
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			return ErrorResponse(req.ID, rpcErr)
		}
		common.Error("rpc method %q handler returned unsanitized error: %v", req.Method, err)
		return ErrorResponse(req.ID, NewError(InternalError, "internal server error"))
	}
	return SuccessResponse(req.ID, result)
}
