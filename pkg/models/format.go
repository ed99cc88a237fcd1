package models

import (
	"fmt"
	"strings"
)

// Format identifies a constructed format tracked on the metagame site
type Format string

const (
	FormatStandard Format = "standard"
	FormatModern   Format = "modern"
	FormatPioneer  Format = "pioneer"
	FormatPauper   Format = "pauper"
	FormatLegacy   Format = "legacy"
	FormatVintage  Format = "vintage"
)

// Formats lists every supported format in display order
var Formats = []Format{
	FormatStandard,
	FormatModern,
	FormatPioneer,
	FormatPauper,
	FormatLegacy,
	FormatVintage,
}

// Valid reports whether f is one of the supported formats
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat normalizes s and validates it against the supported formats
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("invalid format %q: valid formats are %s", s, FormatList())
	}
	return f, nil
}

// FormatList returns the supported formats joined for help and error text
func FormatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
