package deck

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func card(qty int, name string) models.CardEntry {
	return models.CardEntry{Quantity: qty, Name: name}
}

func loadFixture(t *testing.T) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/deck.html")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestParseDeckList(t *testing.T) {
	text := "4 Lightning Bolt\n2 Counterspell\n\nSideboard\n3 Pyroblast\n"

	main, side := ParseDeckList(text)

	wantMain := []models.CardEntry{{Quantity: 4, Name: "Lightning Bolt"}, {Quantity: 2, Name: "Counterspell"}}
	wantSide := []models.CardEntry{{Quantity: 3, Name: "Pyroblast"}}
	if diff := cmp.Diff(wantMain, main); diff != "" {
		t.Errorf("mainboard mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantSide, side); diff != "" {
		t.Errorf("sideboard mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDeckList_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantMain []models.CardEntry
		wantSide []models.CardEntry
	}{
		{
			name:     "empty",
			text:     "",
			wantMain: []models.CardEntry{},
			wantSide: []models.CardEntry{},
		},
		{
			name:     "html entities decoded",
			text:     "1 Thalia&#39;s Lieutenant\r\n1 Fire &amp; Ice",
			wantMain: []models.CardEntry{card(1, "Thalia's Lieutenant"), card(1, "Fire & Ice")},
			wantSide: []models.CardEntry{},
		},
		{
			name:     "sideboard is one-way",
			text:     "SIDEBOARD\n1 Duress\nmainboard\n1 Abrade",
			wantMain: []models.CardEntry{},
			wantSide: []models.CardEntry{card(1, "Duress"), card(1, "Abrade")},
		},
		{
			name:     "malformed and zero lines skipped",
			text:     "Lightning Bolt\n0 Ghost\n  2   Spell Pierce  \nx3 Nope",
			wantMain: []models.CardEntry{card(2, "Spell Pierce")},
			wantSide: []models.CardEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, side := ParseDeckList(tt.text)
			if diff := cmp.Diff(tt.wantMain, main); diff != "" {
				t.Errorf("mainboard mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSide, side); diff != "" {
				t.Errorf("sideboard mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArchetypeSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/archetype/standard-simic-ouroboroid-woe", "simic-ouroboroid"},
		{"/archetype/modern-burn", "burn"},
		{"/archetype/pioneer-rakdos-midrange", "rakdos-midrange"},
		{"/archetype/legacy-8-cast", "8-cast"},
		// a trailing three-letter word is read as a set code
		{"/archetype/modern-mono-red", "mono"},
		{"/archetype/burn", "burn"},
	}

	for _, tt := range tests {
		if got := ArchetypeSlug(tt.url); got != tt.want {
			t.Errorf("ArchetypeSlug(%q) = %q, expected %q", tt.url, got, tt.want)
		}
	}
}

func TestValidateArchetypeURL(t *testing.T) {
	valid := []string{"/archetype/modern-burn", "/archetype/legacy-8-cast"}
	invalid := []string{
		"",
		"/archetype/",
		"/archetype/Modern-Burn",
		"/archetype/modern-burn#paper",
		"https://www.mtggoldfish.com/archetype/modern-burn",
		"/deck/123",
		"/archetype/../etc",
	}

	for _, u := range valid {
		if err := ValidateArchetypeURL(u); err != nil {
			t.Errorf("ValidateArchetypeURL(%q) = %v", u, err)
		}
	}
	for _, u := range invalid {
		if err := ValidateArchetypeURL(u); !errs.HasCode(err, errs.CodeValidation) {
			t.Errorf("ValidateArchetypeURL(%q) should fail validation, got %v", u, err)
		}
	}
}

func TestParseMetadata(t *testing.T) {
	got := ParseMetadata(loadFixture(t))

	want := models.DeckMetadata{
		Name:      strPtr("Burn"),
		Author:    strPtr("SpikeFeeder"),
		Date:      strPtr("Mar 1, 2024"),
		Event:     strPtr("Modern Challenge 32"),
		Placement: strPtr("3rd Place"),
		Record:    strPtr("7-2"),
		DeckID:    nil,
	}
	// The first /deck/ link is the download link, which has no bare id
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMetadata mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMetadata_DeckIDAndNulls(t *testing.T) {
	page := `<html><body>
		<a href="https://www.mtggoldfish.com/deck/6543210">view</a>
		<div class="deck-container-information">Deck Date: 2024-03-01</div>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	got := ParseMetadata(doc)
	want := models.DeckMetadata{
		Date:   strPtr("2024-03-01"),
		DeckID: strPtr("6543210"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMetadata mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBreakdown(t *testing.T) {
	got := ParseBreakdown(loadFixture(t))

	want := models.Breakdown{
		Creatures: []models.BreakdownCard{{Name: "Goblin Guide", AvgQuantity: 4.0, PercentOfDecks: 98}},
		Spells:    []models.BreakdownCard{{Name: "Lightning Bolt", AvgQuantity: 3.9, PercentOfDecks: 100}},
		Lands:     []models.BreakdownCard{},
		Sideboard: []models.BreakdownCard{{Name: "Path to Exile", AvgQuantity: 2.1, PercentOfDecks: 45}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseBreakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePrices(t *testing.T) {
	got := ParsePrices(loadFixture(t))

	if !got.Paper.Equal(decimal.RequireFromString("1034.56")) {
		t.Errorf("paper = %s, expected 1034.56", got.Paper)
	}
	if !got.Online.Equal(decimal.RequireFromString("412.5")) {
		t.Errorf("online = %s, expected 412.5", got.Online)
	}

	empty, _ := goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
	zero := ParsePrices(empty)
	if !zero.Paper.IsZero() || !zero.Online.IsZero() {
		t.Errorf("missing prices should be zero, got %+v", zero)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		field, url string
		want       models.Format
		wantErr    bool
	}{
		{"modern", "/archetype/pioneer-spirits", models.FormatModern, false},
		{" Legacy ", "/archetype/modern-burn", models.FormatLegacy, false},
		{"", "/archetype/pauper-affinity", models.FormatPauper, false},
		{"brawl", "/archetype/vintage-doomsday", models.FormatVintage, false},
		{"", "/archetype/commander-edgar", "", true},
	}

	for _, tt := range tests {
		got, err := resolveFormat(tt.field, tt.url)
		if tt.wantErr {
			if !errs.HasCode(err, errs.CodeValidation) {
				t.Errorf("resolveFormat(%q, %q) expected validation error, got %v", tt.field, tt.url, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, %v; expected %q", tt.field, tt.url, got, err, tt.want)
		}
	}
}
