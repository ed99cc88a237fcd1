package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are stored as plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// CardEntry is one line of a deck list
type CardEntry struct {
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// BreakdownCard summarizes how a card is played across an archetype
type BreakdownCard struct {
	Name           string  `json:"name"`
	AvgQuantity    float64 `json:"avgQuantity"`
	PercentOfDecks int     `json:"percentOfDecks"`
}

// Breakdown buckets archetype statistics by card category
type Breakdown struct {
	Creatures []BreakdownCard `json:"creatures"`
	Spells    []BreakdownCard `json:"spells"`
	Lands     []BreakdownCard `json:"lands"`
	Sideboard []BreakdownCard `json:"sideboard"`
}

// NewBreakdown returns a Breakdown with every bucket initialized so that
// empty categories serialize as [] rather than null.
func NewBreakdown() Breakdown {
	return Breakdown{
		Creatures: []BreakdownCard{},
		Spells:    []BreakdownCard{},
		Lands:     []BreakdownCard{},
		Sideboard: []BreakdownCard{},
	}
}

// DeckMetadata is the header information of a deck page. Any field may be
// nil when the page does not carry it.
type DeckMetadata struct {
	Name      *string `json:"name"`
	Author    *string `json:"author"`
	Date      *string `json:"date"`
	Event     *string `json:"event"`
	Placement *string `json:"placement"`
	Record    *string `json:"record"`
	DeckID    *string `json:"deckId"`
	SourceURL *string `json:"sourceUrl"`
}

// Prices holds the paper (USD) and online (tix) price of a deck
type Prices struct {
	Paper  decimal.Decimal `json:"paper"`
	Online decimal.Decimal `json:"online"`
}

// DeckSnapshot is one concrete deck list for an archetype on one date
type DeckSnapshot struct {
	Format        Format       `json:"format"`
	ArchetypeSlug string       `json:"archetypeSlug"`
	ScrapedAt     time.Time    `json:"scrapedAt"`
	Metadata      DeckMetadata `json:"metadata"`
	Mainboard     []CardEntry  `json:"mainboard"`
	Sideboard     []CardEntry  `json:"sideboard"`
	Breakdown     Breakdown    `json:"breakdown"`
	Prices        Prices       `json:"prices"`
}

// BatchError records a batch target that could not be scraped
type BatchError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchResult is the outcome of scraping several decks in sequence
type BatchResult struct {
	Results []DeckSnapshot `json:"results"`
	Errors  []BatchError   `json:"errors"`
}
