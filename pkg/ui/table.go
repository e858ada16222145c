package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// MaxCellWidth bounds a column, in terminal cells
const MaxCellWidth = 40

// Table aligns rows by display width, so CJK text lines up
type Table struct {
	header []string
	rows   [][]string
}

// NewTable starts a table with header
func NewTable(header ...string) *Table {
	return &Table{header: header}
}

// Append adds one row. Missing cells render empty, extra cells are dropped.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.header))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, MaxCellWidth, "…")
}

// Render writes the header, a rule and every row
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.header))
	measure := func(row []string) {
		for i, c := range row {
			if n := runewidth.StringWidth(cell(c)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(t.header)
	for _, r := range t.rows {
		measure(r)
	}

	write := func(row []string) error {
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = runewidth.FillRight(cell(c), widths[i])
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
		return err
	}

	if err := write(t.header); err != nil {
		return err
	}
	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	if _, err := fmt.Fprintln(w, strings.Join(rule, "  ")); err != nil {
		return err
	}
	for _, r := range t.rows {
		if err := write(r); err != nil {
			return err
		}
	}
	return nil
}
