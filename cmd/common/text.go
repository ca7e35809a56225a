package common

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate shortens s to fit within maxWidth display cells, ending in "…"
// when anything was cut. Wide characters count as two cells.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	result := make([]rune, 0, len(s))
	width := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > maxWidth-1 {
			break
		}
		result = append(result, r)
		width += rw
	}
	return string(result) + "…"
}

// TruncateFromStart keeps the end of s, which is the interesting part of a
// path.
func TruncateFromStart(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	runes := []rune(s)
	start := len(runes)
	width := 0
	for start > 0 {
		rw := runewidth.RuneWidth(runes[start-1])
		if width+rw > maxWidth-1 {
			break
		}
		start--
		width += rw
	}
	return "…" + string(runes[start:])
}

// OneLine collapses line breaks and runs of whitespace so multi-line
// subtitles fit a table cell.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
