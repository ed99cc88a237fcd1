package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/rs/zerolog/log"
)

// Static fetches pages over plain HTTP and parses them with goquery. It runs
// no JavaScript, so pages whose content is rendered client-side come back
// without it.
type Static struct {
	opts Options
}

// NewStatic creates a Static extractor
func NewStatic(opts Options) *Static {
	return &Static{opts: opts}
}

// Name returns the name of this extractor
func (s *Static) Name() string {
	return "static"
}

// Open creates a session with its own HTTP client. A proxy, when configured,
// is fixed for the lifetime of the session.
func (s *Static) Open(ctx context.Context) (Session, error) {
	client := resty.New().
		SetTimeout(s.opts.navigationTimeout()).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetHeaders(s.opts.Headers)

	if s.opts.UserAgent != "" {
		client.SetHeader("User-Agent", s.opts.UserAgent)
	}

	proxyURL := s.opts.Proxies.Next()
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	return &staticSession{
		opts:   s.opts,
		client: client,
		proxy:  proxyURL,
	}, nil
}

type staticSession struct {
	opts   Options
	client *resty.Client
	proxy  string
	doc    *goquery.Document
	closed bool
}

func (s *staticSession) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return errs.ErrSessionClosed
	}
	if err := s.opts.Limiter.Wait(ctx, url); err != nil {
		return err
	}

	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.opts.Proxies.MarkFailed(s.proxy)
		return errs.Transient("navigate "+url, err)
	}
	s.opts.Proxies.MarkHealthy(s.proxy)

	if resp.StatusCode() >= 400 {
		return errs.Transient(fmt.Sprintf("navigate %s: HTTP %d", url, resp.StatusCode()), nil).
			WithDetail("status", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return errs.Transient("parse "+url, err)
	}
	s.doc = doc

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode()).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Msg("Page fetched")

	return nil
}

// WaitFor checks the fetched document once. A static document never changes,
// so an absent element fails immediately instead of waiting out timeout.
func (s *staticSession) WaitFor(ctx context.Context, selector string, timeout time.Duration, state WaitState) error {
	doc, err := s.document()
	if err != nil {
		return err
	}

	sel := doc.Find(selector)
	if state == Visible {
		sel = sel.FilterFunction(func(_ int, el *goquery.Selection) bool {
			return !staticHidden(el)
		})
	}
	if sel.Length() == 0 {
		return errs.Timeout(selector, nil)
	}
	return nil
}

func (s *staticSession) QueryText(ctx context.Context, selector string) (string, error) {
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find(selector).First().Text()), nil
}

func (s *staticSession) QueryAttribute(ctx context.Context, selector, attr string) (string, error) {
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	el := doc.Find(selector).First()
	if el.Length() == 0 {
		return "", nil
	}
	// A textarea's value is its content, not an attribute
	if attr == "value" && goquery.NodeName(el) == "textarea" {
		return el.Text(), nil
	}
	return el.AttrOr(attr, ""), nil
}

func (s *staticSession) Document(ctx context.Context) (*goquery.Document, error) {
	return s.document()
}

func (s *staticSession) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

func (s *staticSession) document() (*goquery.Document, error) {
	if s.closed {
		return nil, errs.ErrSessionClosed
	}
	if s.doc == nil {
		return nil, errs.ErrNotNavigated
	}
	return s.doc, nil
}

// staticHidden approximates visibility without a layout engine
func staticHidden(el *goquery.Selection) bool {
	if _, ok := el.Attr("hidden"); ok {
		return true
	}
	if goquery.NodeName(el) == "input" && strings.EqualFold(el.AttrOr("type", ""), "hidden") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(el.AttrOr("style", "")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
