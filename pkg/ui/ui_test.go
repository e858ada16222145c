package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTableAlignsWideRunes(t *testing.T) {
	tb := NewTable("ID", "标题", "类型")
	tb.Append("n1", "晚霞", "图集")
	tb.Append("n22", "a", "视频", "ignored")
	tb.Append("n3")

	var buf bytes.Buffer
	if err := tb.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if tb.Len() != 3 {
		t.Errorf("Expected 3 rows, got %d", tb.Len())
	}

	// the third column starts at the same display offset on every full row
	col := func(line, value string) int {
		i := strings.Index(line, value)
		if i < 0 {
			t.Fatalf("%q not found in %q", value, line)
		}
		return runewidth.StringWidth(line[:i])
	}
	if a, b := col(lines[2], "图集"), col(lines[3], "视频"); a != b {
		t.Errorf("Columns misaligned: %d vs %d\n%s", a, b, buf.String())
	}
	if strings.Contains(buf.String(), "ignored") {
		t.Error("Extra cells should be dropped")
	}
}

func TestTableTruncatesLongCells(t *testing.T) {
	tb := NewTable("title")
	tb.Append(strings.Repeat("长", 100))

	var buf bytes.Buffer
	if err := tb.Render(&buf); err != nil {
		t.Fatal(err)
	}
	row := strings.Split(buf.String(), "\n")[2]
	if w := runewidth.StringWidth(row); w > MaxCellWidth {
		t.Errorf("Expected width <= %d, got %d", MaxCellWidth, w)
	}
	if !strings.HasSuffix(row, "…") {
		t.Errorf("Expected ellipsis, got %q", row)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if IsTerminal(&buf) {
		t.Fatal("A buffer is not a terminal")
	}

	p.Info("Export", "/tmp/a.xlsx")
	p.Error("fetch failed", "boom")
	if got := buf.String(); got != "Export: /tmp/a.xlsx\nfetch failed: boom\n" {
		t.Errorf("Unexpected plain output %q", got)
	}

	buf.Reset()
	p.SetQuiet(true)
	p.Success("done")
	p.Warning("careful")
	p.Banner()
	p.Error("still shown")
	if got := buf.String(); got != "still shown\n" {
		t.Errorf("Quiet mode should only print errors, got %q", got)
	}

	buf.Reset()
	p.SetQuiet(false)
	p.SetColor(true)
	p.Success("ok")
	if got := buf.String(); got != Green("ok")+"\n" {
		t.Errorf("Expected colored output, got %q", got)
	}
}
