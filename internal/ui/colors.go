// Package ui styles terminal output of the CLI.
package ui

import "os"

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Enabled turns the helpers below into no-ops when false. It honours the
// NO_COLOR convention (https://no-color.org).
var Enabled = os.Getenv("NO_COLOR") == ""

func paint(style, s string) string {
	if !Enabled {
		return s
	}
	return style + s + ColorReset
}

// Bold highlights names: formats, slugs, archetypes
func Bold(s string) string {
	return paint(ColorBold, s)
}

func Success(s string) string {
	return paint(ColorGreen, s)
}

// Info dims secondary detail such as per-deck failure reasons
func Info(s string) string {
	return paint(ColorDim+ColorYellow, s)
}

func Error(s string) string {
	return paint(ColorRed, s)
}
