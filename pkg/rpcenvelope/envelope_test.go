package rpcenvelope

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRequest_IsNotification(t *testing.T) {
	cases := []struct {
		name string
		id   json.RawMessage
		want bool
	}{
		{"absent", nil, true},
		{"null", json.RawMessage("null"), true},
		{"string id", json.RawMessage(`"abc"`), false},
		{"number id", json.RawMessage("1"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &Request{ID: tc.id}
			if got := req.IsNotification(); got != tc.want {
				t.Errorf("IsNotification() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorResponse_NullifiesMissingID(t *testing.T) {
	resp := ErrorResponse(nil, NewError(ParseError, "bad json"))
	if string(resp.ID) != "null" {
		t.Errorf("ID = %q, want null", resp.ID)
	}
	if resp.Error.Code != ParseError {
		t.Errorf("Code = %v, want %v", resp.Error.Code, ParseError)
	}
}

func TestSuccessResponse(t *testing.T) {
	id := json.RawMessage("7")
	resp := SuccessResponse(id, map[string]string{"pong": "ok"})
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}
	if string(resp.ID) != "7" {
		t.Errorf("ID = %q, want 7", resp.ID)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error decoding malformed json")
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return "pong", nil
	})
	reg.Register("fail", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, NewError(ScreenshotFailed, "boom")
	})
	reg.Register("panic_leak", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, errors.New("sensitive internal detail: /etc/secret")
	})

	t.Run("known method", func(t *testing.T) {
		req := &Request{JSONRPC: Version, Method: "ping", ID: json.RawMessage("1")}
		resp := reg.Dispatch(context.Background(), req)
		if resp.Error != nil {
			t.Fatalf("unexpected error: %v", resp.Error)
		}
		if resp.Result != "pong" {
			t.Errorf("Result = %v, want pong", resp.Result)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		req := &Request{JSONRPC: Version, Method: "nope", ID: json.RawMessage("1")}
		resp := reg.Dispatch(context.Background(), req)
		if resp.Error == nil || resp.Error.Code != MethodNotFound {
			t.Fatalf("expected MethodNotFound, got %v", resp.Error)
		}
	})

	t.Run("bad jsonrpc version", func(t *testing.T) {
		req := &Request{JSONRPC: "1.0", Method: "ping", ID: json.RawMessage("1")}
		resp := reg.Dispatch(context.Background(), req)
		if resp.Error == nil || resp.Error.Code != InvalidRequest {
			t.Fatalf("expected InvalidRequest, got %v", resp.Error)
		}
	})

	t.Run("handler returns domain error", func(t *testing.T) {
		req := &Request{JSONRPC: Version, Method: "fail", ID: json.RawMessage("1")}
		resp := reg.Dispatch(context.Background(), req)
		if resp.Error == nil || resp.Error.Code != ScreenshotFailed {
			t.Fatalf("expected ScreenshotFailed, got %v", resp.Error)
		}
	})

	t.Run("non-Error handler failure is sanitized", func(t *testing.T) {
		req := &Request{JSONRPC: Version, Method: "panic_leak", ID: json.RawMessage("1")}
		resp := reg.Dispatch(context.Background(), req)
		if resp.Error == nil || resp.Error.Code != InternalError {
			t.Fatalf("expected InternalError, got %v", resp.Error)
		}
		if resp.Error.Message != "internal server error" {
			t.Errorf("Message = %q, want sanitized message", resp.Error.Message)
		}
		if strings.Contains(resp.Error.Message, "secret") {
			t.Error("raw error text leaked into response")
		}
	})

	t.Run("method names listed", func(t *testing.T) {
		methods := reg.Methods()
		if len(methods) != 3 {
			t.Errorf("len(Methods()) = %d, want 3", len(methods))
		}
	})
}
