// Package deck scrapes concrete deck lists for archetypes and keeps a dated
// history of them.
package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

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

// MetagameReader supplies the stored metagame a batch derives its targets from
type MetagameReader interface {
	ReadSnapshot(ctx context.Context, format models.Format) (*models.MetagameSnapshot, error)
}

// Pacer spaces out successive batch items
type Pacer interface {
	DelayBetween(ctx context.Context) error
}

// ProgressFunc is called after every batch target, successful or not
type ProgressFunc func(done, total int, name string)

// Options configures a Service
type Options struct {
	BaseURL     string
	WaitTimeout time.Duration
	Retry       retry.Policy
	Pacer       Pacer
	Now         func() time.Time
}

// Service scrapes deck snapshots and serves stored ones
type Service struct {
	extractor   extract.Extractor
	store       *store.Store
	metagame    MetagameReader
	baseURL     string
	waitTimeout time.Duration
	retry       retry.Policy
	pacer       Pacer
	now         func() time.Time
}

// NewService creates a Service. A nil Pacer disables spacing between items.
func NewService(ex extract.Extractor, st *store.Store, mg MetagameReader, opts Options) *Service {
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
		metagame:    mg,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		waitTimeout: opts.WaitTimeout,
		retry:       opts.Retry,
		pacer:       opts.Pacer,
		now:         opts.Now,
	}
}

// ScrapeOne scrapes the representative deck of one archetype and stores it
// under today's date, replacing any snapshot already taken today.
func (s *Service) ScrapeOne(ctx context.Context, archetypeURL string) (*models.DeckSnapshot, error) {
	if err := ValidateArchetypeURL(archetypeURL); err != nil {
		return nil, err
	}

	slug := ArchetypeSlug(archetypeURL)
	logger := reqctx.Logger(ctx).With().Str("slug", slug).Logger()
	logger.Info().Str("url", archetypeURL).Msg("Scraping deck")

	var snap *models.DeckSnapshot
	err := s.retry.Run(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.scrapePage(ctx, archetypeURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", archetypeURL, err)
	}

	snap.ArchetypeSlug = slug
	date := store.DateKey(snap.ScrapedAt)
	if err := s.store.Write(store.DeckScope(snap.Format, slug), date, snap); err != nil {
		return nil, err
	}

	logger.Info().
		Str("format", snap.Format.String()).
		Str("date", date).
		Int("mainboard", len(snap.Mainboard)).
		Int("sideboard", len(snap.Sideboard)).
		Msg("Deck snapshot saved")

	return snap, nil
}

// scrapePage is a single attempt: one session, one page
func (s *Service) scrapePage(ctx context.Context, archetypeURL string) (*models.DeckSnapshot, error) {
	var snap *models.DeckSnapshot

	err := extract.WithSession(ctx, s.extractor, func(ctx context.Context, sess extract.Session) error {
		if err := sess.Navigate(ctx, s.baseURL+archetypeURL); err != nil {
			return err
		}
		// The deck export lives in a hidden input, so wait for presence only
		if err := sess.WaitFor(ctx, DeckInputSelector, s.waitTimeout, extract.Attached); err != nil {
			return err
		}

		deckText, err := sess.QueryAttribute(ctx, DeckInputSelector, "value")
		if err != nil {
			return err
		}
		formatText, err := sess.QueryAttribute(ctx, FormatInputSelector, "value")
		if err != nil {
			return err
		}

		format, err := resolveFormat(formatText, archetypeURL)
		if err != nil {
			return err
		}

		doc, err := sess.Document(ctx)
		if err != nil {
			return err
		}

		mainCards, sideCards := ParseDeckList(deckText)
		md := ParseMetadata(doc)
		source := archetypeURL
		md.SourceURL = &source

		snap = &models.DeckSnapshot{
			Format:    format,
			ScrapedAt: s.now().UTC(),
			Metadata:  md,
			Mainboard: mainCards,
			Sideboard: sideCards,
			Breakdown: ParseBreakdown(doc),
			Prices:    ParsePrices(doc),
		}
		return nil
	})

	return snap, err
}

// resolveFormat prefers the page's own format field and falls back to the
// format prefix of the archetype URL.
func resolveFormat(field, archetypeURL string) (models.Format, error) {
	if field = strings.TrimSpace(field); field != "" {
		if f, err := models.ParseFormat(field); err == nil {
			return f, nil
		}
	}
	if f := formatFromURL(archetypeURL); f.Valid() {
		return f, nil
	}
	return "", errs.Validation("cannot determine format of %s (page reports %q)", archetypeURL, field)
}

// ScrapeTop scrapes the first limit archetypes of the stored metagame, in
// stored order, one at a time. A failing target is recorded in the result
// and never aborts the batch. If ctx is cancelled the batch stops and the
// partial result is returned with the context error.
func (s *Service) ScrapeTop(ctx context.Context, format models.Format, limit int, progress ProgressFunc) (*models.BatchResult, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}
	if limit < 1 {
		return nil, errs.Validation("limit must be at least 1, got %d", limit)
	}

	meta, err := s.requireMetagame(ctx, format)
	if err != nil {
		return nil, err
	}

	return s.runBatch(ctx, format, topTargets(meta.Decks, limit), progress)
}

// ScrapeAll scrapes every archetype of the stored metagame
func (s *Service) ScrapeAll(ctx context.Context, format models.Format, progress ProgressFunc) (*models.BatchResult, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}

	meta, err := s.requireMetagame(ctx, format)
	if err != nil {
		return nil, err
	}

	return s.runBatch(ctx, format, topTargets(meta.Decks, len(meta.Decks)), progress)
}

func (s *Service) requireMetagame(ctx context.Context, format models.Format) (*models.MetagameSnapshot, error) {
	meta, err := s.metagame.ReadSnapshot(ctx, format)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errs.MissingPrerequisite(
			fmt.Sprintf("no metagame data found for %s: run the metagame scraper first", format))
	}
	return meta, nil
}

// topTargets returns the first limit archetypes that carry a URL
func topTargets(decks []models.ArchetypeSummary, limit int) []models.ArchetypeSummary {
	if limit > len(decks) {
		limit = len(decks)
	}
	targets := make([]models.ArchetypeSummary, 0, limit)
	for _, d := range decks[:limit] {
		if d.ArchetypeURL != nil && *d.ArchetypeURL != "" {
			targets = append(targets, d)
		}
	}
	return targets
}

func (s *Service) runBatch(ctx context.Context, format models.Format, targets []models.ArchetypeSummary, progress ProgressFunc) (*models.BatchResult, error) {
	logger := reqctx.Logger(ctx).With().Str("format", format.String()).Logger()
	logger.Info().Int("targets", len(targets)).Msg("Starting deck batch")

	result := &models.BatchResult{
		Results: []models.DeckSnapshot{},
		Errors:  []models.BatchError{},
	}
	start := time.Now()

	for i, target := range targets {
		if i > 0 && s.pacer != nil {
			if err := s.pacer.DelayBetween(ctx); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		snap, err := s.ScrapeOne(ctx, *target.ArchetypeURL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Error().Err(err).Str("deck", target.Name).Msg("Deck scrape failed")
			result.Errors = append(result.Errors, models.BatchError{
				Name:  target.Name,
				Error: err.Error(),
			})
		} else {
			result.Results = append(result.Results, *snap)
		}

		if progress != nil {
			progress(i+1, len(targets), target.Name)
		}
	}

	logger.Info().
		Int("succeeded", len(result.Results)).
		Int("failed", len(result.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("Deck batch completed")

	return result, nil
}

// GetFromFile returns the stored snapshot of slug for date, or the latest
// one when date is empty. It returns nil when nothing is stored.
func (s *Service) GetFromFile(ctx context.Context, format models.Format, slug, date string) (*models.DeckSnapshot, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}

	scope := store.DeckScope(format, slug)
	var snap models.DeckSnapshot
	var found bool
	var err error
	if date == "" {
		found, err = s.store.ReadLatest(scope, &snap)
	} else {
		found, err = s.store.ReadByDate(scope, date, &snap)
	}
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// ListFor returns the slugs with at least one stored snapshot in format
func (s *Service) ListFor(ctx context.Context, format models.Format) ([]string, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}
	return s.store.ListChildren(store.FormatScope(format))
}

// History returns every stored date of slug, newest first
func (s *Service) History(ctx context.Context, format models.Format, slug string) ([]string, error) {
	if !format.Valid() {
		return nil, invalidFormat(format)
	}
	return s.store.ListDates(store.DeckScope(format, slug))
}

func invalidFormat(f models.Format) error {
	return errs.Validation("invalid format %q: valid formats are %s", f, models.FormatList())
}
