// Package ui renders command output for terminals.
package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Banner printed above interactive commands
const Banner = `
  ╔════════════════════════════════════════╗
  ║   xhscrawler · 小红书 notes, users,    ║
  ║   comments and media                   ║
  ╚════════════════════════════════════════╝
`

// ANSI color wrappers
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes status lines, colored when the output is a terminal
type Printer struct {
	out   io.Writer
	color bool
	quiet bool
}

// NewPrinter writes to out. Colors are enabled only for terminals.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, color: IsTerminal(out)}
}

// SetColor forces colors on or off
func (p *Printer) SetColor(on bool) { p.color = on }

// SetQuiet suppresses everything except errors
func (p *Printer) SetQuiet(on bool) { p.quiet = on }

// Writer returns the underlying output
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) paint(c func(string) string, s string) string {
	if !p.color {
		return s
	}
	return c(s)
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.out, s)
}

// Banner prints the banner
func (p *Printer) Banner() {
	if p.quiet {
		return
	}
	fmt.Fprint(p.out, p.paint(Cyan, Banner))
}

// Error prints msg, followed by the first arg as detail
func (p *Printer) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	p.line(p.paint(Red, msg))
}

// Success prints msg in green
func (p *Printer) Success(msg string) {
	if !p.quiet {
		p.line(p.paint(Green, msg))
	}
}

// Info prints a label: value pair
func (p *Printer) Info(label, value string) {
	if !p.quiet {
		p.line(p.paint(Cyan, label) + ": " + p.paint(Yellow, value))
	}
}

// Warning prints msg in yellow
func (p *Printer) Warning(msg string, args ...interface{}) {
	if p.quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	p.line(p.paint(Yellow, msg))
}

// Highlight prints msg in magenta
func (p *Printer) Highlight(msg string) {
	if !p.quiet {
		p.line(p.paint(Magenta, msg))
	}
}
