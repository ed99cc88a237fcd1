// Package extract drives page sessions against the metagame site.
//
// An Extractor opens isolated sessions; a Session navigates to one page at a
// time and answers selector queries against it. Two implementations exist:
// Browser renders pages in headless Chrome, Static fetches raw HTML.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/mtgmeta/internal/proxy"
	"github.com/law-makers/mtgmeta/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// WaitState selects what WaitFor waits for
type WaitState int

const (
	// Visible waits until the element is rendered and not hidden
	Visible WaitState = iota
	// Attached waits until the element exists in the DOM, hidden or not
	Attached
)

func (w WaitState) String() string {
	switch w {
	case Visible:
		return "visible"
	case Attached:
		return "attached"
	default:
		return fmt.Sprintf("WaitState(%d)", int(w))
	}
}

// Session is one isolated page-driving context. It is not safe for
// concurrent use.
type Session interface {
	// Navigate loads url. HTTP statuses >= 400 and network failures are
	// reported as transient errors.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until selector reaches state or timeout elapses,
	// in which case a TIMEOUT error is returned.
	WaitFor(ctx context.Context, selector string, timeout time.Duration, state WaitState) error

	// QueryText returns the trimmed text of the first match, "" if absent
	QueryText(ctx context.Context, selector string) (string, error)

	// QueryAttribute returns attr of the first match, "" if absent
	QueryAttribute(ctx context.Context, selector, attr string) (string, error)

	// Document returns a snapshot of the current DOM
	Document(ctx context.Context) (*goquery.Document, error)

	Close() error
}

// Extractor opens sessions
type Extractor interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Options holds the settings shared by every extractor
type Options struct {
	UserAgent         string
	Headers           map[string]string
	NavigationTimeout time.Duration
	Limiter           *ratelimit.HostLimiter
	Proxies           *proxy.Rotator
}

// DefaultNavigationTimeout bounds a single page load
const DefaultNavigationTimeout = 60 * time.Second

func (o Options) navigationTimeout() time.Duration {
	if o.NavigationTimeout <= 0 {
		return DefaultNavigationTimeout
	}
	return o.NavigationTimeout
}

// WithSession opens a session, runs fn and closes the session on every exit
// path. A close failure is logged and joined into the returned error.
func WithSession(ctx context.Context, ex Extractor, fn func(ctx context.Context, s Session) error) (err error) {
	s, err := ex.Open(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn().
				Err(cerr).
				Str("extractor", ex.Name()).
				Msg("Failed to close session")
			err = errors.Join(err, cerr)
		}
	}()

	return fn(ctx, s)
}

// EvaluateStructured maps every element matching selector in the current
// page through fn. No match yields an empty, non-nil slice.
func EvaluateStructured[T any](ctx context.Context, s Session, selector string, fn func(i int, sel *goquery.Selection) T) ([]T, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}

	nodes := doc.Find(selector)
	out := make([]T, 0, nodes.Length())
	nodes.Each(func(i int, sel *goquery.Selection) {
		out = append(out, fn(i, sel))
	})
	return out, nil
}
