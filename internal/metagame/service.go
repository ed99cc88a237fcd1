// Package metagame scrapes and stores the ranked archetype list of a format.
package metagame

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/internal/extract"
	"github.com/law-makers/mtgmeta/internal/reqctx"
	"github.com/law-makers/mtgmeta/internal/retry"
	"github.com/law-makers/mtgmeta/internal/store"
	"github.com/law-makers/mtgmeta/pkg/models"
)

const (
	DefaultBaseURL     = "https://www.mtggoldfish.com"
	DefaultWaitTimeout = 30 * time.Second
)

// Options configures a Service
type Options struct {
	BaseURL     string
	WaitTimeout time.Duration
	Retry       retry.Policy
	Now         func() time.Time
}

// Service produces metagame snapshots and serves stored ones
type Service struct {
	extractor   extract.Extractor
	store       *store.Store
	baseURL     string
	waitTimeout time.Duration
	retry       retry.Policy
	now         func() time.Time
}

// NewService creates a Service
func NewService(ex extract.Extractor, st *store.Store, opts Options) *Service {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		extractor:   ex,
		store:       st,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		waitTimeout: opts.WaitTimeout,
		retry:       opts.Retry,
		now:         opts.Now,
	}
}

// URL returns the full metagame page of format
func (s *Service) URL(format models.Format) string {
	return fmt.Sprintf("%s/metagame/%s/full#paper", s.baseURL, format)
}

// Scrape fetches the current metagame of format, persists it and returns it
func (s *Service) Scrape(ctx context.Context, format models.Format) (*models.MetagameSnapshot, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}

	logger := reqctx.Logger(ctx).With().Str("format", format.String()).Logger()
	pageURL := s.URL(format)

	var decks []models.ArchetypeSummary
	err := s.retry.Run(ctx, func(ctx context.Context) error {
		return extract.WithSession(ctx, s.extractor, func(ctx context.Context, sess extract.Session) error {
			if err := sess.Navigate(ctx, pageURL); err != nil {
				return err
			}
			if err := sess.WaitFor(ctx, TileSelector, s.waitTimeout, extract.Visible); err != nil {
				return err
			}

			var err error
			decks, err = extract.EvaluateStructured(ctx, sess, TileSelector, func(_ int, tile *goquery.Selection) models.ArchetypeSummary {
				return ParseTile(tile)
			})
			return err
		})
	})
	if err != nil {
		logger.Error().Err(err).Str("url", pageURL).Msg("Metagame scrape failed")
		return nil, fmt.Errorf("scrape %s metagame: %w", format, err)
	}

	now := s.now().UTC()
	snapshot := &models.MetagameSnapshot{
		Format:    format,
		ScrapedAt: now,
		Decks:     decks,
	}

	if err := s.store.Write(store.MetagameScope(format), store.DateKey(now), snapshot); err != nil {
		return nil, err
	}

	logger.Info().
		Int("archetypes", len(decks)).
		Str("path", store.MetagameScope(format).String()).
		Msg("Metagame snapshot saved")

	return snapshot, nil
}

// ReadLatest returns the public view of the stored metagame, or nil when
// format has never been scraped.
func (s *Service) ReadLatest(ctx context.Context, format models.Format) (*models.PublicMetagameSnapshot, error) {
	snapshot, err := s.ReadSnapshot(ctx, format)
	if err != nil || snapshot == nil {
		return nil, err
	}
	return snapshot.Public(), nil
}

// ReadSnapshot returns the stored metagame with its internal fields, or nil
// when format has never been scraped.
func (s *Service) ReadSnapshot(ctx context.Context, format models.Format) (*models.MetagameSnapshot, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}

	var snapshot models.MetagameSnapshot
	found, err := s.store.ReadLatest(store.MetagameScope(format), &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

func invalidFormat(f models.Format) error {
	return errs.Validation("invalid format %q: valid formats are %s", f, models.FormatList())
}
