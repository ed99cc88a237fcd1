package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/law-makers/mtgmeta/pkg/models"
)

// SaveDeckCSV writes one row per card: board, quantity, name
func SaveDeckCSV(snap *models.DeckSnapshot, path string) error {
	rows := [][]string{{"board", "quantity", "name"}}
	for _, c := range snap.Mainboard {
		rows = append(rows, []string{"main", strconv.Itoa(c.Quantity), c.Name})
	}
	for _, c := range snap.Sideboard {
		rows = append(rows, []string{"side", strconv.Itoa(c.Quantity), c.Name})
	}
	return writeCSV(path, rows)
}

// SaveMetagameCSV writes one row per archetype in rank order
func SaveMetagameCSV(snap *models.PublicMetagameSnapshot, path string) error {
	rows := [][]string{{"rank", "name", "percentage", "colors", "key_cards"}}
	for i, d := range snap.Decks {
		colors := make([]string, len(d.Colors))
		for j, c := range d.Colors {
			colors[j] = string(c)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.Name,
			strconv.FormatFloat(d.Percentage, 'f', -1, 64),
			strings.Join(colors, ""),
			strings.Join(d.KeyCards, "; "),
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}
