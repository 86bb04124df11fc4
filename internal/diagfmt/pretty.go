// Package diagfmt renders authoring diagnostics (directive and
// preamble errors) for humans and machines.
package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"diagtest/internal/diag"
	"diagtest/internal/source"
)

type palette struct {
	sevError *color.Color
	sevWarn  *color.Color
	sevInfo  *color.Color
	path     *color.Color
	gutter   *color.Color
	caret    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sevError: color.New(color.FgRed, color.Bold),
		sevWarn:  color.New(color.FgYellow, color.Bold),
		sevInfo:  color.New(color.FgCyan),
		path:     color.New(color.Bold),
		gutter:   color.New(color.FgBlue),
		caret:    color.New(color.FgGreen, color.Bold),
	}
	if !enabled {
		for _, c := range []*color.Color{p.sevError, p.sevWarn, p.sevInfo, p.path, p.gutter, p.caret} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.sevError
	case diag.SevWarning:
		return p.sevWarn
	default:
		return p.sevInfo
	}
}

// Pretty writes the bag in a human-readable form:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	    <line no> | <source line>
//	              | ^~~~
//
// followed by the notes. Callers are expected to Sort the bag first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		writeHeading(w, fs, p, d.Primary, p.severity(d.Severity),
			d.Severity.String()+" "+d.Code.String(), d.Message, opts)
		writeExcerpt(w, fs, p, d.Primary)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				writeHeading(w, fs, p, note.Span, p.sevInfo, "note", note.Msg, opts)
				writeExcerpt(w, fs, p, note.Span)
			}
		}
	}
}

func writeHeading(w io.Writer, fs *source.FileSet, p palette, sp source.Span,
	sevColor *color.Color, label, msg string, opts PrettyOpts) {
	if sp.IsZero() {
		fmt.Fprintf(w, "%s: %s\n", sevColor.Sprint(label), msg)
		return
	}
	start, _ := fs.Resolve(sp)
	loc := fmt.Sprintf("%s:%d:%d", displayPath(fs.Get(sp.File).Path, fs.BaseDir(), opts.PathMode), start.Line, start.Col)
	fmt.Fprintf(w, "%s: %s: %s\n", p.path.Sprint(loc), sevColor.Sprint(label), msg)
}

// writeExcerpt prints the first line of the span with a caret underline.
// Multi-line spans only underline to the end of the first line.
func writeExcerpt(w io.Writer, fs *source.FileSet, p palette, sp source.Span) {
	if sp.IsZero() {
		return
	}
	start, end := fs.Resolve(sp)
	text := fs.Get(sp.File).GetLine(start.Line)
	if text == "" && start.Col > 1 {
		return
	}

	gutter := fmt.Sprintf("%5d |", start.Line)
	fmt.Fprintf(w, "%s %s\n", p.gutter.Sprint(gutter), text)

	runes := []rune(text)
	colIdx := int(start.Col) - 1
	if colIdx > len(runes) {
		colIdx = len(runes)
	}
	pad := runewidth.StringWidth(string(runes[:colIdx]))

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		endIdx := int(end.Col) - 1
		if endIdx > len(runes) {
			endIdx = len(runes)
		}
		if endIdx > colIdx {
			width = runewidth.StringWidth(string(runes[colIdx:endIdx]))
		}
	}
	underline := "^" + strings.Repeat("~", max(width-1, 0))
	fmt.Fprintf(w, "%s %s%s\n",
		p.gutter.Sprint("      |"), strings.Repeat(" ", pad), p.caret.Sprint(underline))
}

func displayPath(path, baseDir string, mode PathMode) string {
	switch mode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeRelative, PathModeAuto:
		if baseDir == "" {
			return path
		}
		rel, err := filepath.Rel(baseDir, absOrSelf(path))
		if err != nil || strings.HasPrefix(rel, "..") {
			if mode == PathModeAuto {
				return path
			}
		}
		if err == nil {
			return filepath.ToSlash(rel)
		}
		return path
	default:
		return path
	}
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
