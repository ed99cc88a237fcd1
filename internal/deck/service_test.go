package deck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/internal/extract"
	"github.com/law-makers/mtgmeta/internal/retry"
	"github.com/law-makers/mtgmeta/internal/store"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

type stubMetagame struct {
	snap *models.MetagameSnapshot
	err  error
}

func (s *stubMetagame) ReadSnapshot(ctx context.Context, format models.Format) (*models.MetagameSnapshot, error) {
	return s.snap, s.err
}

type countingPacer struct {
	calls int
	hook  func() error
}

func (p *countingPacer) DelayBetween(ctx context.Context) error {
	p.calls++
	if p.hook != nil {
		return p.hook()
	}
	return nil
}

// deckSite serves the deck fixture for every archetype path except the
// ones listed in failing, which answer 500.
type deckSite struct {
	mu      sync.Mutex
	page    []byte
	failing map[string]bool
	hits    map[string]int
}

func newDeckSite(t *testing.T, failing ...string) *deckSite {
	page, err := os.ReadFile("testdata/deck.html")
	require.NoError(t, err)

	site := &deckSite{page: page, failing: map[string]bool{}, hits: map[string]int{}}
	for _, f := range failing {
		site.failing[f] = true
	}
	return site
}

func (d *deckSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.hits[r.URL.Path]++
	fail := d.failing[r.URL.Path]
	d.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, "/archetype/") {
		http.NotFound(w, r)
		return
	}
	if fail {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write(d.page)
}

func (d *deckSite) hitCount(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits[path]
}

func archetype(name, url string) models.ArchetypeSummary {
	a := models.ArchetypeSummary{Name: name, Colors: []models.Color{}, KeyCards: []string{}}
	if url != "" {
		a.ArchetypeURL = &url
	}
	return a
}

func modernMetagame() *models.MetagameSnapshot {
	return &models.MetagameSnapshot{
		Format:    models.FormatModern,
		ScrapedAt: fixedNow,
		Decks: []models.ArchetypeSummary{
			archetype("Burn", "/archetype/modern-burn"),
			archetype("Tron", "/archetype/modern-tron"),
			archetype("Jund", "/archetype/modern-jund"),
		},
	}
}

type fixture struct {
	svc   *Service
	store *store.Store
	site  *deckSite
	pacer *countingPacer
}

func newFixture(t *testing.T, meta *models.MetagameSnapshot, failing ...string) *fixture {
	t.Helper()
	site := newDeckSite(t, failing...)
	ts := httptest.NewServer(site)
	t.Cleanup(ts.Close)

	st := store.New(t.TempDir())
	pacer := &countingPacer{}
	svc := NewService(extract.NewStatic(extract.Options{}), st, &stubMetagame{snap: meta}, Options{
		BaseURL:     ts.URL,
		WaitTimeout: time.Second,
		Retry:       retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, OnFailure: func(int, int, error) {}},
		Pacer:       pacer,
		Now:         func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, store: st, site: site, pacer: pacer}
}

func TestScrapeOne(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	snap, err := f.svc.ScrapeOne(ctx, "/archetype/modern-burn")
	require.NoError(t, err)

	assert.Equal(t, models.FormatModern, snap.Format)
	assert.Equal(t, "burn", snap.ArchetypeSlug)
	assert.Equal(t, fixedNow, snap.ScrapedAt)
	require.NotNil(t, snap.Metadata.SourceURL)
	assert.Equal(t, "/archetype/modern-burn", *snap.Metadata.SourceURL)
	require.NotNil(t, snap.Metadata.Name)
	assert.Equal(t, "Burn", *snap.Metadata.Name)

	assert.Equal(t, []models.CardEntry{
		{Quantity: 4, Name: "Goblin Guide"},
		{Quantity: 4, Name: "Monastery Swiftspear"},
		{Quantity: 4, Name: "Lightning Bolt"},
		{Quantity: 3, Name: "Boros Charm"},
		{Quantity: 2, Name: "Lava Dart // Whatever"},
		{Quantity: 4, Name: "Inspiring Vantage"},
	}, snap.Mainboard)
	assert.Equal(t, []models.CardEntry{
		{Quantity: 2, Name: "Path to Exile"},
		{Quantity: 1, Name: "Kor Firewalker"},
	}, snap.Sideboard)
	assert.True(t, snap.Prices.Paper.Equal(decimal.RequireFromString("1034.56")))

	stored, err := f.svc.GetFromFile(ctx, models.FormatModern, "burn", "")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snap.Mainboard, stored.Mainboard)
	assert.True(t, stored.Prices.Online.Equal(snap.Prices.Online))

	byDate, err := f.svc.GetFromFile(ctx, models.FormatModern, "burn", "2024-03-01")
	require.NoError(t, err)
	require.NotNil(t, byDate)

	dates, err := f.svc.History(ctx, models.FormatModern, "burn")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, dates)

	slugs, err := f.svc.ListFor(ctx, models.FormatModern)
	require.NoError(t, err)
	assert.Equal(t, []string{"burn"}, slugs)
}

func TestScrapeOne_InvalidURL(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ScrapeOne(context.Background(), "https://evil.example.com/archetype/x")
	assert.True(t, errs.HasCode(err, errs.CodeValidation), "got %v", err)
	assert.Zero(t, f.site.hitCount("/archetype/x"))
}

func TestScrapeOne_RetriesThenFails(t *testing.T) {
	f := newFixture(t, nil, "/archetype/modern-tron")

	_, err := f.svc.ScrapeOne(context.Background(), "/archetype/modern-tron")
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeTransient), "got %v", err)
	assert.Equal(t, 3, f.site.hitCount("/archetype/modern-tron"))

	found, err := f.svc.GetFromFile(context.Background(), models.FormatModern, "tron", "")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestScrapeTop_PartialFailure(t *testing.T) {
	f := newFixture(t, modernMetagame(), "/archetype/modern-tron")

	var progress []string
	result, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 10, func(done, total int, name string) {
		assert.Equal(t, 3, total)
		progress = append(progress, name)
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, "burn", result.Results[0].ArchetypeSlug)
	assert.Equal(t, "jund", result.Results[1].ArchetypeSlug)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Tron", result.Errors[0].Name)
	assert.NotEmpty(t, result.Errors[0].Error)

	assert.Equal(t, []string{"Burn", "Tron", "Jund"}, progress)
	assert.Equal(t, 2, f.pacer.calls, "pacing happens between targets only")
}

func TestScrapeTop_LimitAndOrder(t *testing.T) {
	f := newFixture(t, modernMetagame())

	result, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 2, nil)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "burn", result.Results[0].ArchetypeSlug)
	assert.Equal(t, "tron", result.Results[1].ArchetypeSlug)
	assert.Empty(t, result.Errors)
	assert.Zero(t, f.site.hitCount("/archetype/modern-jund"))
}

func TestScrapeTop_SkipsEntriesWithoutURL(t *testing.T) {
	meta := modernMetagame()
	meta.Decks[1] = archetype("Other", "")
	f := newFixture(t, meta)

	result, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 3, nil)
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
	assert.Empty(t, result.Errors)
}

func TestScrapeTop_Validation(t *testing.T) {
	f := newFixture(t, modernMetagame())

	_, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 0, nil)
	assert.True(t, errs.HasCode(err, errs.CodeValidation), "got %v", err)

	_, err = f.svc.ScrapeTop(context.Background(), models.Format("brawl"), 5, nil)
	assert.True(t, errs.HasCode(err, errs.CodeValidation), "got %v", err)
}

func TestScrapeTop_MissingMetagame(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 5, nil)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeMissingPrerequisite), "got %v", err)
	assert.Contains(t, err.Error(), "run the metagame scraper first")

	_, err = f.svc.ScrapeAll(context.Background(), models.FormatModern, nil)
	assert.True(t, errs.HasCode(err, errs.CodeMissingPrerequisite), "got %v", err)
}

func TestScrapeTop_MetagameReadError(t *testing.T) {
	f := newFixture(t, nil)
	readErr := errs.StorageIO("read", "metagame/modern.json", errors.New("disk gone"))
	f.svc.metagame = &stubMetagame{err: readErr}

	_, err := f.svc.ScrapeTop(context.Background(), models.FormatModern, 5, nil)
	assert.True(t, errs.HasCode(err, errs.CodeStorageIO), "got %v", err)
}

func TestScrapeAll(t *testing.T) {
	f := newFixture(t, modernMetagame())

	result, err := f.svc.ScrapeAll(context.Background(), models.FormatModern, nil)
	require.NoError(t, err)
	assert.Len(t, result.Results, 3)

	slugs, err := f.svc.ListFor(context.Background(), models.FormatModern)
	require.NoError(t, err)
	assert.Equal(t, []string{"burn", "jund", "tron"}, slugs)
}

func TestScrapeAll_EmptyMetagame(t *testing.T) {
	meta := modernMetagame()
	meta.Decks = []models.ArchetypeSummary{}
	f := newFixture(t, meta)

	result, err := f.svc.ScrapeAll(context.Background(), models.FormatModern, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
}

func TestScrapeTop_CancelledBetweenTargets(t *testing.T) {
	f := newFixture(t, modernMetagame())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.pacer.hook = func() error {
		cancel()
		return ctx.Err()
	}

	result, err := f.svc.ScrapeTop(ctx, models.FormatModern, 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Len(t, result.Results, 1)
	assert.Zero(t, f.site.hitCount("/archetype/modern-tron"))
}

func TestReadsOnEmptyStore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	snap, err := f.svc.GetFromFile(ctx, models.FormatLegacy, "reanimator", "")
	assert.NoError(t, err)
	assert.Nil(t, snap)

	snap, err = f.svc.GetFromFile(ctx, models.FormatLegacy, "reanimator", "2024-01-01")
	assert.NoError(t, err)
	assert.Nil(t, snap)

	slugs, err := f.svc.ListFor(ctx, models.FormatLegacy)
	assert.NoError(t, err)
	assert.Empty(t, slugs)

	dates, err := f.svc.History(ctx, models.FormatLegacy, "reanimator")
	assert.NoError(t, err)
	assert.Empty(t, dates)
}
