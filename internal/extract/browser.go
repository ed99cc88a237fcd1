package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/rs/zerolog/log"
)

// BrowserOptions configures the headless Chrome extractor
type BrowserOptions struct {
	Options
	ChromePath string
	Headless   bool
}

// Browser renders pages in headless Chrome. Every session launches its own
// browser process; processes are never shared between sessions.
type Browser struct {
	opts       BrowserOptions
	chromePath string
}

// NewBrowser creates a Browser extractor. Chrome is located once, up front.
func NewBrowser(opts BrowserOptions) *Browser {
	return &Browser{
		opts:       opts,
		chromePath: FindChrome(opts.ChromePath),
	}
}

// Name returns the name of this extractor
func (b *Browser) Name() string {
	return "browser"
}

// Open launches a fresh Chrome process and returns a session bound to it
func (b *Browser) Open(ctx context.Context) (Session, error) {
	start := time.Now()
	proxyURL := b.opts.Proxies.Next()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions(proxyURL)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &browserSession{
		opts:        b.opts.Options,
		tab:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		proxy:       proxyURL,
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run allocates the browser. It must run on the tab context
	// itself; a derived context would tie the browser's lifetime to it.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx, network.Enable(), b.extraHeaders())
	stop()
	if err != nil {
		tabCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.opts.Proxies.MarkFailed(proxyURL)
		return nil, errs.Transient("launch browser", fmt.Errorf("%w: %v", errs.ErrBrowser, err))
	}

	log.Debug().
		Dur("elapsed_ms", time.Since(start)).
		Bool("proxy", proxyURL != "").
		Msg("Browser session opened")

	return s, nil
}

func (b *Browser) allocatorOptions(proxyURL string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("log-level", "3"),
	}

	if b.chromePath != "" {
		opts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(b.chromePath)}, opts...)
	}
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}
	return opts
}

// extraHeaders sends the configured headers with every request of the tab
func (b *Browser) extraHeaders() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(b.opts.Headers) == 0 {
			return nil
		}
		h := make(network.Headers, len(b.opts.Headers))
		for k, v := range b.opts.Headers {
			h[k] = v
		}
		return network.SetExtraHTTPHeaders(h).Do(ctx)
	})
}

type browserSession struct {
	opts        Options
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	proxy       string

	mu        sync.Mutex
	status    int64
	navigated bool
	closed    bool
}

// onEvent records the status of the main document response
func (s *browserSession) onEvent(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == 0 {
		s.status = resp.Response.Status
	}
}

// op derives a context for one CDP round trip: bound to the tab, limited by
// timeout, and cancelled when the caller's ctx is.
func (s *browserSession) op(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.tab, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *browserSession) ready(requireNav bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.ErrSessionClosed
	}
	if requireNav && !s.navigated {
		return errs.ErrNotNavigated
	}
	return nil
}

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	if err := s.ready(false); err != nil {
		return err
	}
	if err := s.opts.Limiter.Wait(ctx, url); err != nil {
		return err
	}

	s.mu.Lock()
	s.status = 0
	s.navigated = false
	s.mu.Unlock()

	start := time.Now()
	opCtx, cancel := s.op(ctx, s.opts.navigationTimeout())
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.opts.Proxies.MarkFailed(s.proxy)
		return errs.Transient("navigate "+url, err)
	}
	s.opts.Proxies.MarkHealthy(s.proxy)

	s.mu.Lock()
	status := s.status
	s.navigated = true
	s.mu.Unlock()

	if status >= 400 {
		return errs.Transient(fmt.Sprintf("navigate %s: HTTP %d", url, status), nil).
			WithDetail("status", status)
	}

	log.Debug().
		Str("url", url).
		Int64("status", status).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Msg("Page loaded")

	return nil
}

func (s *browserSession) WaitFor(ctx context.Context, selector string, timeout time.Duration, state WaitState) error {
	if err := s.ready(true); err != nil {
		return err
	}

	opCtx, cancel := s.op(ctx, timeout)
	defer cancel()

	var action chromedp.Action
	if state == Attached {
		action = chromedp.WaitReady(selector, chromedp.ByQuery)
	} else {
		action = chromedp.WaitVisible(selector, chromedp.ByQuery)
	}

	err := chromedp.Run(opCtx, action)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(opCtx.Err(), context.DeadlineExceeded):
		return errs.Timeout(selector, nil).WithDetail("state", state.String())
	default:
		return errs.Transient("wait for "+selector, err)
	}
}

func (s *browserSession) QueryText(ctx context.Context, selector string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? el.textContent.trim() : "";
	})()`, jsString(selector))
	return s.evaluateString(ctx, js)
}

func (s *browserSession) QueryAttribute(ctx context.Context, selector, attr string) (string, error) {
	// Form controls expose their live value as a property, not an attribute
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return "";
		const attr = %s;
		if (attr === "value" && "value" in el) return String(el.value);
		return el.getAttribute(attr) || "";
	})()`, jsString(selector), jsString(attr))
	return s.evaluateString(ctx, js)
}

func (s *browserSession) evaluateString(ctx context.Context, js string) (string, error) {
	if err := s.ready(true); err != nil {
		return "", err
	}

	opCtx, cancel := s.op(ctx, s.opts.navigationTimeout())
	defer cancel()

	var out string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &out)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: evaluate: %v", errs.ErrBrowser, err)
	}
	return out, nil
}

func (s *browserSession) Document(ctx context.Context) (*goquery.Document, error) {
	if err := s.ready(true); err != nil {
		return nil, err
	}

	opCtx, cancel := s.op(ctx, s.opts.navigationTimeout())
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: snapshot DOM: %v", errs.ErrBrowser, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM snapshot: %w", err)
	}
	return doc, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *browserSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.tab)
	s.tabCancel()
	s.allocCancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: close: %v", errs.ErrBrowser, err)
	}

	log.Debug().Msg("Browser session closed")
	return nil
}

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
