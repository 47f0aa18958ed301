package render

import (
	"strings"
	"testing"
)

func TestInjectStyle_EmptyCSSIsNoOp(t *testing.T) {
	html := "<p>hi</p>"
	out, err := InjectStyle(html, "")
	if err != nil {
		t.Fatalf("InjectStyle: %v", err)
	}
	if out != html {
		t.Errorf("out = %q, want unchanged %q", out, html)
	}
}

func TestInjectStyle_InsertsIntoExistingHead(t *testing.T) {
	html := "<html><head><title>t</title></head><body>hi</body></html>"
	out, err := InjectStyle(html, "body{color:red}")
	if err != nil {
		t.Fatalf("InjectStyle: %v", err)
	}
	if !strings.Contains(out, "<style>body{color:red}</style>") {
		t.Errorf("expected style tag in output, got %q", out)
	}
	if !strings.Contains(out, "<title>t</title>") {
		t.Errorf("expected existing head content preserved, got %q", out)
	}
}

func TestInjectStyle_CreatesHeadWhenAbsent(t *testing.T) {
	html := "<html><body>hi</body></html>"
	out, err := InjectStyle(html, "p{color:blue}")
	if err != nil {
		t.Fatalf("InjectStyle: %v", err)
	}
	if !strings.Contains(out, "<head>") {
		t.Errorf("expected a synthesized head, got %q", out)
	}
	if !strings.Contains(out, "p{color:blue}") {
		t.Errorf("expected css in output, got %q", out)
	}
}

func TestInjectStyle_BareFragment(t *testing.T) {
	html := "<div id=\"b\"></div>"
	out, err := InjectStyle(html, "#b{width:1px}")
	if err != nil {
		t.Fatalf("InjectStyle: %v", err)
	}
	if !strings.Contains(out, "#b{width:1px}") {
		t.Errorf("expected css present in output, got %q", out)
	}
	if !strings.Contains(out, "<div id=\"b\">") {
		t.Errorf("expected original fragment preserved, got %q", out)
	}
}
