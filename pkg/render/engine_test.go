package render

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatFor(t *testing.T) {
	cases := map[string]string{
		"jpeg": "jpeg",
		"png":  "png",
		"":     "png",
		"gif":  "png",
	}
	for in, want := range cases {
		if got := formatFor(in); got != want {
			t.Errorf("formatFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapEngineError_Classification(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{"context deadline exceeded", "timed out"},
		{"navigation timeout", "timed out"},
		{"browser not started", "browser error"},
		{"target closed", "browser error"},
		{"something else entirely", "screenshot failed"},
	}
	for _, tc := range cases {
		err := mapEngineError(errors.New(tc.msg))
		if err == nil {
			t.Fatalf("expected non-nil error for %q", tc.msg)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("mapEngineError(%q).Error() = %q, want substring %q", tc.msg, err.Error(), tc.want)
		}
	}
}
