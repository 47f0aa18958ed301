package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/imagemeta"
	"github.com/cyw0ng95/v2e/pkg/rpcenvelope"
	"github.com/cyw0ng95/v2e/pkg/screenshot"
)

// Engine holds the browser allocator and gates concurrent renders behind
// a counting semaphore. No browser process is kept between renders: each
// render's chromedp.NewContext is derived from the allocator alone, so it
// launches its own browser process (with a temporary profile), which is
// torn down on every exit path when that render's context is canceled.
type Engine struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	gate     *semaphore.Weighted

	defaultWaitForSelectorTimeout time.Duration
}

// NewEngine configures the browser allocator (headless unless
// cfg.Render.Headless is false) and returns an Engine ready to accept
// renders; no browser is started here. Only Chromium is driven:
// cfg.Render.BrowserType is not read, so firefox and webkit settings
// have no effect.
func NewEngine(cfg *common.Config) (*Engine, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Render.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Engine{
		allocCtx:                      allocCtx,
		cancel:                        cancel,
		gate:                          semaphore.NewWeighted(int64(cfg.Render.MaxConcurrentScreenshots)),
		defaultWaitForSelectorTimeout: time.Duration(common.DefaultWaitForSelectorTimeoutMs) * time.Millisecond,
	}, nil
}

// Close cancels the allocator, stopping any browser process still running.
func (e *Engine) Close() error {
	e.cancel()
	return nil
}

// Render executes the full per-request pipeline: semaphore acquire,
// isolated context creation, style injection, load, post-load wait,
// capture, dimension sniff, base64 encode. It blocks on the semaphore
// until a slot is available or ctx is canceled.
func (e *Engine) Render(ctx context.Context, params screenshot.ScreenshotParams) (*screenshot.ScreenshotResult, error) {
	if err := e.gate.Acquire(ctx, 1); err != nil {
		return nil, screenshot.NewServiceError(rpcenvelope.InternalError, "render concurrency gate: "+err.Error())
	}
	defer e.gate.Release(1)

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	defer tabCancel()

	timeout := time.Duration(params.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(common.DefaultTimeoutMs) * time.Millisecond
	}
	renderCtx, renderCancel := context.WithTimeout(tabCtx, timeout)
	defer renderCancel()

	html := params.HTML
	if strings.TrimSpace(params.StyleOverrides) != "" {
		injected, err := InjectStyle(html, params.StyleOverrides)
		if err != nil {
			return nil, screenshot.NewServiceError(rpcenvelope.ScreenshotFailed, "style injection failed: "+err.Error())
		}
		html = injected
	}

	viewport := params.EffectiveViewport(common.DefaultViewportWidth, common.DefaultViewportHeight)
	scale := params.Scale
	if scale == 0 {
		scale = 1.0
	}

	if err := chromedp.Run(renderCtx,
		lockdownActions(viewport, scale, params.ExtraHTTPHeaders)...,
	); err != nil {
		return nil, mapEngineError(err)
	}

	if err := chromedp.Run(renderCtx, setDocumentContent(html)); err != nil {
		return nil, mapEngineError(err)
	}

	waitUntil := params.WaitUntil
	if waitUntil == "" {
		waitUntil = common.DefaultWaitUntil
	}
	if err := chromedp.Run(renderCtx, waitForLifecycle(waitUntil)); err != nil {
		return nil, mapEngineError(err)
	}

	if params.WaitForSelector != "" {
		waitCtx, cancel := context.WithTimeout(renderCtx, e.defaultWaitForSelectorTimeout)
		defer cancel()
		if err := chromedp.Run(waitCtx, chromedp.WaitVisible(params.WaitForSelector, chromedp.ByQuery)); err != nil {
			return nil, screenshot.NewServiceError(rpcenvelope.SelectorNotFound, "wait_for_selector not found: "+params.WaitForSelector)
		}
	}

	imgBytes, err := capture(renderCtx, params)
	if err != nil {
		return nil, err
	}

	width, height := imagemeta.Dimensions(imgBytes)

	imageType := params.ImageType
	if imageType == "" {
		imageType = common.DefaultImageType
	}

	return &screenshot.ScreenshotResult{
		Image:     base64.StdEncoding.EncodeToString(imgBytes),
		ImageType: imageType,
		Width:     width,
		Height:    height,
		SizeBytes: len(imgBytes),
	}, nil
}

// lockdownActions builds the per-context isolation actions: viewport and
// device scale factor, extra headers, JavaScript disabled, and the
// data:-only egress filter. These run once per fresh browser context,
// before any content is loaded.
func lockdownActions(viewport screenshot.Viewport, scale float64, headers map[string]string) []chromedp.Action {
	actions := []chromedp.Action{
		page.Enable(),
		network.Enable(),
		emulation.SetDeviceMetricsOverride(int64(viewport.Width), int64(viewport.Height), scale, false),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetScriptExecutionDisabled(true).Do(ctx)
		}),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}),
	}
	if len(headers) > 0 {
		hdrs := make(network.Headers, len(headers))
		for k, v := range headers {
			hdrs[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(hdrs))
	}
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		registerEgressFilter(ctx)
		return nil
	}))
	return actions
}

// registerEgressFilter installs a fetch-domain event listener that
// allows only data: URLs to proceed; every other outbound request is
// aborted. This is the SSRF defense required for untrusted HTML input.
func registerEgressFilter(ctx context.Context) {
	browserCtx := chromedp.FromContext(ctx)
	execCtx := cdp.WithExecutor(ctx, browserCtx.Target)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			if strings.HasPrefix(paused.Request.URL, "data:") {
				_ = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
				return
			}
			_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		}()
	})
}

// setDocumentContent sets the page's document content directly (no
// network navigation) to the given HTML. It does not wait; the
// lifecycle wait is done separately by waitForLifecycle.
func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
	})
}

// networkIdleWindow is how long the network must be quiet before
// "networkidle" is considered satisfied, approximating the networkidle0
// heuristic browsers use for the same wait_until value.
const networkIdleWindow = 500 * time.Millisecond

// waitForLifecycle blocks until the page lifecycle point named by
// waitUntil has been reached following setDocumentContent. Unset or
// unrecognized values fall through to "load", the same value Render
// substitutes (common.DefaultWaitUntil) when wait_until is unset.
func waitForLifecycle(waitUntil string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		switch waitUntil {
		case "domcontentloaded":
			return waitForPageEvent(ctx, func(ev interface{}) bool {
				_, ok := ev.(*page.EventDOMContentEventFired)
				return ok
			})
		case "networkidle":
			return waitForNetworkIdle(ctx, networkIdleWindow)
		default:
			return waitForPageEvent(ctx, func(ev interface{}) bool {
				_, ok := ev.(*page.EventLoadEventFired)
				return ok
			})
		}
	})
}

// waitForPageEvent blocks until match reports true for an event observed
// on ctx's target, or ctx is done.
func waitForPageEvent(ctx context.Context, match func(ev interface{}) bool) error {
	fired := make(chan struct{}, 1)
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if match(ev) {
			select {
			case fired <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitForNetworkIdle blocks until idleWindow has elapsed with zero
// in-flight network requests, or ctx is done. Requests blocked by the
// egress filter still resolve (as a failure) promptly, so this settles
// quickly for the data:-only pages this engine renders.
func waitForNetworkIdle(ctx context.Context, idleWindow time.Duration) error {
	var mu sync.Mutex
	inFlight := 0

	settled := make(chan struct{}, 1)
	signal := func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			mu.Lock()
			inFlight++
			mu.Unlock()
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			mu.Lock()
			if inFlight > 0 {
				inFlight--
			}
			idle := inFlight == 0
			mu.Unlock()
			if idle {
				signal()
			}
		}
	})

	timer := time.NewTimer(idleWindow)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			mu.Lock()
			idle := inFlight == 0
			mu.Unlock()
			if idle {
				return nil
			}
			timer.Reset(idleWindow)
		case <-settled:
			timer.Reset(idleWindow)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// capture implements the priority cascade: clip > selector >
// full_page/viewport. All three paths funnel through
// page.CaptureScreenshot; only the clip rect and capture-beyond-
// viewport flag differ.
func capture(ctx context.Context, params screenshot.ScreenshotParams) ([]byte, error) {
	imageType := params.ImageType
	if imageType == "" {
		imageType = common.DefaultImageType
	}

	var clip *page.Viewport
	captureBeyondViewport := false

	switch {
	case params.Clip != nil:
		clip = &page.Viewport{
			X:      params.Clip.X,
			Y:      params.Clip.Y,
			Width:  params.Clip.Width,
			Height: params.Clip.Height,
			Scale:  1,
		}

	case params.Selector != "":
		box, err := elementClip(ctx, params.Selector)
		if err != nil {
			return nil, screenshot.NewServiceError(rpcenvelope.SelectorNotFound, "selector not found: "+params.Selector)
		}
		clip = box

	default:
		captureBeyondViewport = params.FullPage
	}

	buf, err := screenshotBytes(ctx, imageType, params.Quality, params.OmitBackground, clip, captureBeyondViewport)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return buf, nil
}

func formatFor(imageType string) string {
	if imageType == "jpeg" {
		return "jpeg"
	}
	return "png"
}

// elementClip resolves the first match of selector to a clip rect via
// its box model. A missing selector surfaces as an error so the caller
// can map it to SELECTOR_NOT_FOUND.
func elementClip(ctx context.Context, selector string) (*page.Viewport, error) {
	var box *dom.BoxModel
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQuery).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches selector %q", selector)
		}
		model, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return err
		}
		box = model
		return nil
	}))
	if err != nil {
		return nil, err
	}
	// Content quad is 4 (x, y) pairs; take the bounding rect.
	quad := box.Content
	x, y := quad[0], quad[1]
	width := quad[2] - quad[0]
	height := quad[5] - quad[1]
	return &page.Viewport{X: x, Y: y, Width: width, Height: height, Scale: 1}, nil
}

// screenshotBytes issues the CaptureScreenshot command with the given
// clip/format/quality, matching the spec's "quality only for JPEG, never
// for PNG" rule.
func screenshotBytes(ctx context.Context, imageType string, quality int, omitBackground bool, clip *page.Viewport, captureBeyondViewport bool) ([]byte, error) {
	var buf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		shot := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormat(formatFor(imageType))).
			WithCaptureBeyondViewport(captureBeyondViewport)
		if clip != nil {
			shot = shot.WithClip(clip)
		}
		if imageType == "jpeg" && quality > 0 {
			shot = shot.WithQuality(int64(quality))
		}
		if imageType == "png" && omitBackground {
			if err := emulation.SetDefaultBackgroundColorOverride().
				WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}).Do(ctx); err != nil {
				return err
			}
		}
		data, err := shot.Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	})
	if err := chromedp.Run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// mapEngineError classifies a chromedp/cdproto error into the worker's
// domain error codes: navigation/selector timeouts map to TIMEOUT,
// "not started" style errors map to BROWSER_ERROR, everything else
// falls through to SCREENSHOT_FAILED.
func mapEngineError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return screenshot.NewServiceError(rpcenvelope.Timeout, "render timed out: "+msg)
	case strings.Contains(msg, "not started"), strings.Contains(msg, "target closed"):
		return screenshot.NewServiceError(rpcenvelope.BrowserError, "browser error: "+msg)
	default:
		return screenshot.NewServiceError(rpcenvelope.ScreenshotFailed, fmt.Sprintf("screenshot failed: %v", err))
	}
}
