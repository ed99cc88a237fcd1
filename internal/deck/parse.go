package deck

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	DeckInputSelector   = "#deck_input_deck"
	FormatInputSelector = "#deck_input_format"

	archetypePrefix = "/archetype/"
)

var (
	archetypeURLPattern = regexp.MustCompile(`^/archetype/[a-z0-9-]+$`)

	// format prefix, archetype name, optional three-letter set suffix
	slugPattern = regexp.MustCompile(`^[a-z]+-(.+?)(?:-[a-z]{3})?$`)

	cardLine = regexp.MustCompile(`^(\d+)\s+(.+)$`)

	deckDateLine = regexp.MustCompile(`Deck Date:\s*(.+?)(?:\n|$)`)
	eventLine    = regexp.MustCompile(`Event:\s*(.+?),\s*(\d+\w*\s*Place)`)
	recordText   = regexp.MustCompile(`(\d+-\d+-\d+|\d+-\d+)`)
	deckIDPath   = regexp.MustCompile(`/deck/(\d+)`)

	breakdownStats = regexp.MustCompile(`([\d.]+)\s+in\s+(\d+)%\s+of decks`)
	tixPrice       = regexp.MustCompile(`([\d.]+)\s*tix`)
)

// ValidateArchetypeURL checks that u is a site-relative archetype path
func ValidateArchetypeURL(u string) error {
	if !archetypeURLPattern.MatchString(u) {
		return errs.Validation("invalid archetype URL %q: expected /archetype/<name>", u)
	}
	return nil
}

// ArchetypeSlug derives the storage slug of an archetype URL by dropping the
// format prefix and a trailing three-letter set code:
//
//	/archetype/standard-simic-ouroboroid-woe -> simic-ouroboroid
//	/archetype/modern-burn                   -> burn
//
// Any final three-letter word is treated as a set code, so
// /archetype/modern-mono-red yields "mono". Existing stored data is keyed
// this way and must stay addressable.
func ArchetypeSlug(archetypeURL string) string {
	segment := strings.Replace(archetypeURL, archetypePrefix, "", 1)
	if m := slugPattern.FindStringSubmatch(segment); m != nil {
		return m[1]
	}
	return segment
}

// formatFromURL reads the format prefix of an archetype URL
func formatFromURL(archetypeURL string) models.Format {
	segment := strings.TrimPrefix(archetypeURL, archetypePrefix)
	prefix, _, _ := strings.Cut(segment, "-")
	return models.Format(prefix)
}

type boardState int

const (
	mainboard boardState = iota
	sideboard
)

// ParseDeckList splits the plain-text export of a deck into its main and
// side boards. Lines read "<quantity> <card name>"; a line reading
// "sideboard" switches every following card to the side board.
func ParseDeckList(text string) (mainCards, sideCards []models.CardEntry) {
	mainCards = []models.CardEntry{}
	sideCards = []models.CardEntry{}
	state := mainboard

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "sideboard") {
			state = sideboard
			continue
		}

		m := cardLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty < 1 {
			continue
		}

		card := models.CardEntry{
			Quantity: qty,
			Name:     strings.TrimSpace(html.UnescapeString(m[2])),
		}
		if state == sideboard {
			sideCards = append(sideCards, card)
		} else {
			mainCards = append(mainCards, card)
		}
	}
	return mainCards, sideCards
}

// ParseMetadata reads the deck header. SourceURL is left for the caller.
func ParseMetadata(doc *goquery.Document) models.DeckMetadata {
	var md models.DeckMetadata

	title := doc.Find(".title").First()
	author := title.Find(".author").First()

	name := strings.TrimSpace(title.Contents().First().Text())
	if name == "" {
		name = strings.TrimSpace(strings.Replace(title.Text(), author.Text(), "", 1))
	}
	md.Name = optional(name)
	md.Author = optional(strings.Replace(author.Text(), "by ", "", 1))

	info := doc.Find(".deck-container-information").First().Text()

	if m := deckDateLine.FindStringSubmatchIndex(info); m != nil {
		md.Date = optional(info[m[2]:m[3]])
		// the date itself may look like a record
		info = info[:m[0]] + info[m[1]:]
	}
	if m := eventLine.FindStringSubmatch(info); m != nil {
		md.Event = optional(m[1])
		md.Placement = optional(m[2])
	}
	if m := recordText.FindStringSubmatch(info); m != nil {
		md.Record = optional(m[1])
	}

	href := doc.Find(`a[href*="/deck/"]`).First().AttrOr("href", "")
	if m := deckIDPath.FindStringSubmatch(href); m != nil {
		md.DeckID = optional(m[1])
	}

	return md
}

// ParseBreakdown reads the archetype card statistics. Containers with an
// unrecognized heading count as spells; cards without a name or stats line
// are skipped.
func ParseBreakdown(doc *goquery.Document) models.Breakdown {
	b := models.NewBreakdown()

	doc.Find(".spoiler-card-container").Each(func(_ int, container *goquery.Selection) {
		category := strings.ToLower(strings.TrimSpace(container.Find("h3").First().Text()))

		var bucket *[]models.BreakdownCard
		switch category {
		case "creatures":
			bucket = &b.Creatures
		case "lands":
			bucket = &b.Lands
		case "sideboard":
			bucket = &b.Sideboard
		default:
			bucket = &b.Spells
		}

		container.Find(".spoiler-card").Each(func(_ int, card *goquery.Selection) {
			name := strings.TrimSpace(card.Find(".price-card-invisible-label").First().Text())
			stats := strings.TrimSpace(card.Find(".archetype-breakdown-featured-card-text").First().Text())
			m := breakdownStats.FindStringSubmatch(stats)
			if name == "" || m == nil {
				return
			}

			avg, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return
			}
			pct, _ := strconv.Atoi(m[2])

			*bucket = append(*bucket, models.BreakdownCard{
				Name:           name,
				AvgQuantity:    avg,
				PercentOfDecks: pct,
			})
		})
	})

	return b
}

// ParsePrices reads the paper (dollars + cents) and online (tix) prices.
// Missing or unreadable prices are zero.
func ParsePrices(doc *goquery.Document) models.Prices {
	paper := doc.Find(".deck-price-v2.paper").First()
	dollars := digitsOnly(paper.Find(".dollars").First().Text())
	cents := digitsOnly(paper.Find(".cents").First().Text())
	if dollars == "" {
		dollars = "0"
	}
	if cents == "" {
		cents = "0"
	}

	var p models.Prices
	if d, err := decimal.NewFromString(dollars + "." + cents); err == nil {
		p.Paper = d
	}

	online := strings.ReplaceAll(doc.Find(".deck-price-v2.online").First().Text(), ",", "")
	if m := tixPrice.FindStringSubmatch(online); m != nil {
		if d, err := decimal.NewFromString(strings.TrimRight(m[1], ".")); err == nil {
			p.Online = d
		}
	}

	return p
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
