package metagame

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/mtgmeta/pkg/models"
)

// TileSelector matches one archetype entry on the metagame page
const TileSelector = ".archetype-tile"

const (
	titleLinkSelector    = ".archetype-tile-title .deck-price-paper a"
	fallbackLinkSelector = ".archetype-tile-title a"
	statisticSelector    = ".metagame-percentage .archetype-tile-statistic-value"
	manaIconSelector     = ".manacost i"
	keyCardSelector      = ".archetype-tile-description li"
	imageSelector        = ".card-img-tile"

	unknownName = "Unknown"
)

var (
	leadingNumber = regexp.MustCompile(`^\s*([\d.]+)`)
	parenCount    = regexp.MustCompile(`\((\d+)\)`)
	cssURL        = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

	manaClasses = map[string]models.Color{
		"ms-w": models.ColorWhite,
		"ms-u": models.ColorBlue,
		"ms-b": models.ColorBlack,
		"ms-r": models.ColorRed,
		"ms-g": models.ColorGreen,
	}
)

// ParseTile maps one archetype tile. Missing pieces take their defaults,
// so a malformed tile never fails the whole page.
func ParseTile(tile *goquery.Selection) models.ArchetypeSummary {
	link := tile.Find(titleLinkSelector).First()
	if strings.TrimSpace(link.Text()) == "" {
		link = tile.Find(fallbackLinkSelector).First()
	}

	name := strings.TrimSpace(link.Text())
	if name == "" {
		name = unknownName
	}

	stat := tile.Find(statisticSelector).First()
	percentage, count := parseStatistic(stat)

	return models.ArchetypeSummary{
		Name:         name,
		Percentage:   percentage,
		Count:        count,
		Colors:       parseColors(tile),
		KeyCards:     parseKeyCards(tile),
		Image:        parseImage(tile),
		ArchetypeURL: archetypePath(link.AttrOr("href", "")),
	}
}

// parseStatistic reads "12.3%" followed by "(456)". The percentage is the
// first text node of the statistic element.
func parseStatistic(stat *goquery.Selection) (float64, int) {
	var percentage float64
	first := strings.TrimSpace(stat.Contents().First().Text())
	if first == "" {
		first = strings.TrimSpace(stat.Text())
	}
	if m := leadingNumber.FindStringSubmatch(strings.TrimSuffix(first, "%")); m != nil {
		if v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64); err == nil {
			percentage = v
		}
	}

	var count int
	if m := parenCount.FindStringSubmatch(stat.Text()); m != nil {
		count, _ = strconv.Atoi(m[1])
	}

	return percentage, count
}

func parseColors(tile *goquery.Selection) []models.Color {
	colors := []models.Color{}
	seen := make(map[models.Color]bool)

	tile.Find(manaIconSelector).Each(func(_ int, icon *goquery.Selection) {
		for _, class := range strings.Fields(icon.AttrOr("class", "")) {
			c, ok := manaClasses[strings.ToLower(class)]
			if !ok || seen[c] {
				continue
			}
			seen[c] = true
			colors = append(colors, c)
		}
	})
	return colors
}

func parseKeyCards(tile *goquery.Selection) []string {
	cards := []string{}
	tile.Find(keyCardSelector).Each(func(_ int, li *goquery.Selection) {
		if name := strings.TrimSpace(li.Text()); name != "" {
			cards = append(cards, name)
		}
	})
	return cards
}

func parseImage(tile *goquery.Selection) *string {
	style := tile.Find(imageSelector).First().AttrOr("style", "")
	m := cssURL.FindStringSubmatch(style)
	if m == nil {
		return nil
	}
	img := strings.TrimSpace(m[1])
	return &img
}

// archetypePath reduces an archetype link to its path, dropping scheme,
// host, query and fragment.
func archetypePath(href string) *string {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	u, err := url.Parse(href)
	if err != nil || u.Path == "" {
		return nil
	}
	p := u.Path
	return &p
}
