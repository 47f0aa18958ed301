// Package render implements the worker-side browser engine: per-request
// style injection, navigation, and the capture priority cascade.
package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InjectStyle parses html with a forgiving parser and inserts a <style>
// element carrying css into <head>, creating <head> if it is absent.
// The parsed document tree is otherwise unchanged, but the returned text
// is the parser's re-serialization: a fragment comes back wrapped in the
// <html>, <head> and <body> elements the parser synthesizes. Called
// only when style_overrides is non-empty; an empty css is a no-op that
// still returns html verbatim.
func InjectStyle(html, css string) (string, error) {
	if strings.TrimSpace(css) == "" {
		return html, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	head := doc.Find("head").First()
	if head.Length() == 0 {
		if doc.Find("html").Length() == 0 {
			// goquery's underlying parser synthesizes <html>/<head> for
			// any input per the HTML5 tree-construction algorithm, so
			// this branch is unreachable in practice; kept as the
			// documented fallback for a bare <style> prefix rather than
			// fabricating a wrapper document.
			styleTag := "<style>" + css + "</style>"
			return styleTag + html, nil
		}
		doc.Find("html").PrependHtml("<head></head>")
		head = doc.Find("head").First()
	}
	head.AppendHtml("<style>" + css + "</style>")

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", err
	}
	return out, nil
}
