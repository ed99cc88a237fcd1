// Package output exports stored snapshots to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/mtgmeta/pkg/models"
)

// SaveJSON writes v as indented JSON to path
func SaveJSON(v interface{}, path string) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(content, '\n'), 0644)
}

// SaveDeck writes snap to path, choosing the format from the extension
func SaveDeck(snap *models.DeckSnapshot, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(snap, path)
	case ".csv":
		return SaveDeckCSV(snap, path)
	default:
		return fmt.Errorf("unsupported output format %q: use .json or .csv", filepath.Ext(path))
	}
}

// SaveMetagame writes snap to path, choosing the format from the extension
func SaveMetagame(snap *models.PublicMetagameSnapshot, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(snap, path)
	case ".csv":
		return SaveMetagameCSV(snap, path)
	default:
		return fmt.Errorf("unsupported output format %q: use .json or .csv", filepath.Ext(path))
	}
}
