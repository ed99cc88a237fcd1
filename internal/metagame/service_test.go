package metagame

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/internal/extract"
	"github.com/law-makers/mtgmeta/internal/retry"
	"github.com/law-makers/mtgmeta/internal/store"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, handler http.Handler) (*Service, *store.Store) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	st := store.New(t.TempDir())
	svc := NewService(extract.NewStatic(extract.Options{}), st, Options{
		BaseURL:     ts.URL,
		WaitTimeout: time.Second,
		Retry:       retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, OnFailure: func(int, int, error) {}},
		Now:         func() time.Time { return fixedNow },
	})
	return svc, st
}

func fixtureHandler(t *testing.T) http.HandlerFunc {
	page, err := os.ReadFile("testdata/metagame.html")
	require.NoError(t, err)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metagame/modern/full" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}
}

func TestScrape_PersistsSnapshot(t *testing.T) {
	svc, st := newTestService(t, fixtureHandler(t))
	ctx := context.Background()

	snap, err := svc.Scrape(ctx, models.FormatModern)
	require.NoError(t, err)
	assert.Equal(t, models.FormatModern, snap.Format)
	assert.Equal(t, fixedNow, snap.ScrapedAt)
	require.Len(t, snap.Decks, 3)
	assert.Equal(t, "Boros Energy", snap.Decks[0].Name)
	require.NotNil(t, snap.Decks[0].ArchetypeURL)
	assert.Equal(t, "/archetype/modern-boros-energy", *snap.Decks[0].ArchetypeURL)

	var stored models.MetagameSnapshot
	found, err := st.ReadLatest(store.MetagameScope(models.FormatModern), &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.Decks, stored.Decks)
	assert.True(t, stored.ScrapedAt.Equal(fixedNow))
}

func TestReadLatest_PublicProjection(t *testing.T) {
	svc, _ := newTestService(t, fixtureHandler(t))
	ctx := context.Background()

	_, err := svc.Scrape(ctx, models.FormatModern)
	require.NoError(t, err)

	pub, err := svc.ReadLatest(ctx, models.FormatModern)
	require.NoError(t, err)
	require.NotNil(t, pub)
	require.Len(t, pub.Decks, 3)
	assert.Equal(t, models.PublicArchetype{
		Name:       "Boros Energy",
		Percentage: 18.4,
		Colors:     []models.Color{models.ColorRed, models.ColorWhite},
		KeyCards:   []string{"Ocelot Pride", "Guide of Souls"},
	}, pub.Decks[0])

	internal, err := svc.ReadSnapshot(ctx, models.FormatModern)
	require.NoError(t, err)
	assert.Equal(t, 412, internal.Decks[0].Count)
}

func TestReadLatest_Absent(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())

	pub, err := svc.ReadLatest(context.Background(), models.FormatPauper)
	assert.NoError(t, err)
	assert.Nil(t, pub)

	snap, err := svc.ReadSnapshot(context.Background(), models.FormatPauper)
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestScrape_RetriesTransientFailure(t *testing.T) {
	var calls int32
	ok := fixtureHandler(t)
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		ok(w, r)
	}))

	snap, err := svc.Scrape(context.Background(), models.FormatModern)
	require.NoError(t, err)
	assert.Len(t, snap.Decks, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestScrape_NoTilesTimesOut(t *testing.T) {
	var calls int32
	svc, st := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))

	_, err := svc.Scrape(context.Background(), models.FormatModern)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeTimeout), "got %v", err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var stored models.MetagameSnapshot
	found, err := st.ReadLatest(store.MetagameScope(models.FormatModern), &stored)
	assert.NoError(t, err)
	assert.False(t, found, "failed scrape must not write a snapshot")
}

func TestScrape_InvalidFormat(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())

	_, err := svc.Scrape(context.Background(), models.Format("commander"))
	assert.True(t, errs.HasCode(err, errs.CodeValidation), "got %v", err)
}

func TestURL(t *testing.T) {
	svc := NewService(nil, nil, Options{BaseURL: "https://www.mtggoldfish.com/"})
	assert.Equal(t, "https://www.mtggoldfish.com/metagame/legacy/full#paper", svc.URL(models.FormatLegacy))
}
