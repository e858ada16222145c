package storage

import (
	"regexp"
	"strings"
)

var (
	unsafeName = regexp.MustCompile(`[\\/:*?"<>| ]+`)
	// illegalCell matches control characters spreadsheets reject
	illegalCell = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// NormName strips path-unsafe characters, spaces and line breaks
func NormName(s string) string {
	s = unsafeName.ReplaceAllString(s, "")
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// CleanCell removes characters that are illegal in spreadsheet cells
func CleanCell(s string) string {
	return illegalCell.ReplaceAllString(s, "")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
