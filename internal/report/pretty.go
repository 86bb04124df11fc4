package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"diagtest/internal/diagfmt"
	"diagtest/internal/runner"
	"diagtest/internal/source"
)

// PrettyOpts configures the human-readable report.
type PrettyOpts struct {
	Color     bool
	ShowSkips bool // include SKIP lines, not just counts
	Timings   bool // append per-verdict compile times
}

type outcomePalette struct {
	pass, fail, skip, warn, file *color.Color
}

func newOutcomePalette(enabled bool) outcomePalette {
	p := outcomePalette{
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		skip: color.New(color.FgHiBlack),
		warn: color.New(color.FgYellow, color.Bold),
		file: color.New(color.Bold),
	}
	if !enabled {
		for _, c := range []*color.Color{p.pass, p.fail, p.skip, p.warn, p.file} {
			c.DisableColor()
		}
	}
	return p
}

func (p outcomePalette) outcome(o runner.Outcome) *color.Color {
	switch o {
	case runner.OutcomePass:
		return p.pass
	case runner.OutcomeSkip:
		return p.skip
	case runner.OutcomeTimeout, runner.OutcomeAmbiguous:
		return p.warn
	default:
		return p.fail
	}
}

// Pretty writes the full run report: per-file verdict lines, authoring
// diagnostics for malformed files and a closing summary line.
func Pretty(w io.Writer, results []runner.FileResult, fs *source.FileSet, opts PrettyOpts) {
	p := newOutcomePalette(opts.Color)

	for i := range results {
		fr := &results[i]
		fmt.Fprintln(w, p.file.Sprint(fr.Path))

		if fr.Bag.Len() > 0 {
			fr.Bag.Sort()
			diagfmt.Pretty(w, fr.Bag, fs, diagfmt.PrettyOpts{
				Color:     opts.Color,
				ShowNotes: true,
			})
		}
		for j := range fr.Verdicts {
			v := &fr.Verdicts[j]
			if v.Outcome == runner.OutcomeSkip && !opts.ShowSkips {
				continue
			}
			writeVerdict(w, p, v, opts)
		}
		fmt.Fprintln(w)
	}

	s := Summarize(results)
	fmt.Fprintln(w, summaryLine(p, s))
}

func writeVerdict(w io.Writer, p outcomePalette, v *runner.Verdict, opts PrettyOpts) {
	label := p.outcome(v.Outcome).Sprintf("%-9s", v.Outcome)
	where := v.Descriptor.Key()
	if v.Descriptor.Executable == "" {
		where = "-"
	}
	fmt.Fprintf(w, "  %s %s  [%s]", label, v.CaseName, where)
	if opts.Timings && v.Elapsed > 0 {
		fmt.Fprintf(w, "  %s", v.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	if v.Detail != "" && v.Outcome != runner.OutcomePass {
		for _, line := range strings.Split(v.Detail, "\n") {
			fmt.Fprintf(w, "            %s\n", line)
		}
	}
}

func summaryLine(p outcomePalette, s Summary) string {
	parts := []string{
		p.pass.Sprintf("%d passed", s.Pass),
	}
	if s.Fail > 0 {
		parts = append(parts, p.fail.Sprintf("%d failed", s.Fail))
	}
	if s.Ambiguous > 0 {
		parts = append(parts, p.warn.Sprintf("%d ambiguous", s.Ambiguous))
	}
	if s.Timeout > 0 {
		parts = append(parts, p.warn.Sprintf("%d timed out", s.Timeout))
	}
	if s.Errors > 0 {
		parts = append(parts, p.fail.Sprintf("%d errored", s.Errors))
	}
	parts = append(parts, p.skip.Sprintf("%d skipped", s.Skip))
	line := strings.Join(parts, ", ")
	line += fmt.Sprintf(" (%d files", s.Files)
	if s.MalformedFiles > 0 {
		line += p.fail.Sprintf(", %d malformed", s.MalformedFiles)
	}
	return line + ")"
}
