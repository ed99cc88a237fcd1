package models

import "time"

// Color is a single-letter mana color code
type Color string

const (
	ColorWhite Color = "W"
	ColorBlue  Color = "U"
	ColorBlack Color = "B"
	ColorRed   Color = "R"
	ColorGreen Color = "G"
)

// ArchetypeSummary is one ranked entry of a metagame listing.
//
// Count, Image and ArchetypeURL drive deck scraping and are stripped from
// the public read contract (see PublicArchetype).
type ArchetypeSummary struct {
	Name         string   `json:"name"`
	Percentage   float64  `json:"percentage"`
	Count        int      `json:"count"`
	Colors       []Color  `json:"colors"`
	KeyCards     []string `json:"keyCards"`
	Image        *string  `json:"image"`
	ArchetypeURL *string  `json:"archetypeUrl"`
}

// MetagameSnapshot is the ranked archetype list for one format.
// Decks are kept in upstream rank order.
type MetagameSnapshot struct {
	Format    Format             `json:"format"`
	ScrapedAt time.Time          `json:"scrapedAt"`
	Decks     []ArchetypeSummary `json:"decks"`
}

// PublicArchetype is the externally visible projection of ArchetypeSummary
type PublicArchetype struct {
	Name       string   `json:"name"`
	Percentage float64  `json:"percentage"`
	Colors     []Color  `json:"colors"`
	KeyCards   []string `json:"keyCards"`
}

// PublicMetagameSnapshot is what readers of a stored metagame receive
type PublicMetagameSnapshot struct {
	Format    Format            `json:"format"`
	ScrapedAt time.Time         `json:"scrapedAt"`
	Decks     []PublicArchetype `json:"decks"`
}

// Public drops the internal-only fields from every archetype
func (m *MetagameSnapshot) Public() *PublicMetagameSnapshot {
	out := &PublicMetagameSnapshot{
		Format:    m.Format,
		ScrapedAt: m.ScrapedAt,
		Decks:     make([]PublicArchetype, 0, len(m.Decks)),
	}
	for _, d := range m.Decks {
		out.Decks = append(out.Decks, PublicArchetype{
			Name:       d.Name,
			Percentage: d.Percentage,
			Colors:     d.Colors,
			KeyCards:   d.KeyCards,
		})
	}
	return out
}
