package report

import (
	"encoding/json"
	"io"

	"diagtest/internal/diagfmt"
	"diagtest/internal/runner"
	"diagtest/internal/source"
	"diagtest/internal/toolchain"
)

// JSONOpts configures machine-readable run output.
type JSONOpts struct {
	IncludeDiags  bool // include extracted compiler diagnostics per verdict
	IncludeSkips  bool
	AuthoringOpts diagfmt.JSONOpts
}

// CompilerDiagJSON is one extracted compiler diagnostic.
type CompilerDiagJSON struct {
	Level   string `json:"level"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// VerdictJSON is one (case, descriptor) verdict.
type VerdictJSON struct {
	Case        string             `json:"case"`
	Descriptor  string             `json:"descriptor,omitempty"`
	Outcome     string             `json:"outcome"`
	Detail      string             `json:"detail,omitempty"`
	ElapsedMS   float64            `json:"elapsed_ms,omitempty"`
	Diagnostics []CompilerDiagJSON `json:"diagnostics,omitempty"`
}

// FileJSON collects everything reported for one fixture file.
type FileJSON struct {
	Path      string                   `json:"path"`
	Authoring []diagfmt.DiagnosticJSON `json:"authoring_diagnostics,omitempty"`
	Verdicts  []VerdictJSON            `json:"verdicts"`
}

// RunJSON is the root structure of the machine-readable report.
type RunJSON struct {
	Files   []FileJSON `json:"files"`
	Summary Summary    `json:"summary"`
}

// BuildRunOutput assembles the JSON structure without serializing it.
func BuildRunOutput(results []runner.FileResult, fs *source.FileSet, opts JSONOpts) RunJSON {
	out := RunJSON{Files: make([]FileJSON, 0, len(results))}

	for i := range results {
		fr := &results[i]
		fj := FileJSON{Path: fr.Path, Verdicts: make([]VerdictJSON, 0, len(fr.Verdicts))}

		if fr.Bag.Len() > 0 {
			fr.Bag.Sort()
			fj.Authoring = diagfmt.BuildDiagnosticsOutput(fr.Bag, fs, opts.AuthoringOpts).Diagnostics
		}

		for j := range fr.Verdicts {
			v := &fr.Verdicts[j]
			if v.Outcome == runner.OutcomeSkip && !opts.IncludeSkips {
				continue
			}
			vj := VerdictJSON{
				Case:    v.CaseName,
				Outcome: v.Outcome.String(),
				Detail:  v.Detail,
			}
			if v.Descriptor.Executable != "" {
				vj.Descriptor = v.Descriptor.Key()
			}
			if v.Elapsed > 0 {
				vj.ElapsedMS = float64(v.Elapsed.Microseconds()) / 1000
			}
			if opts.IncludeDiags {
				vj.Diagnostics = convertDiags(v.Diags)
			}
			fj.Verdicts = append(fj.Verdicts, vj)
		}
		out.Files = append(out.Files, fj)
	}

	out.Summary = Summarize(results)
	return out
}

func convertDiags(diags []toolchain.Diagnostic) []CompilerDiagJSON {
	if len(diags) == 0 {
		return nil
	}
	out := make([]CompilerDiagJSON, len(diags))
	for i, d := range diags {
		out[i] = CompilerDiagJSON{
			Level:   d.Level,
			Path:    d.Path,
			Line:    d.Line,
			Col:     d.Col,
			Code:    d.Code,
			Message: d.Message,
		}
	}
	return out
}

// JSON writes the run report as indented JSON.
func JSON(w io.Writer, results []runner.FileResult, fs *source.FileSet, opts JSONOpts) error {
	output := BuildRunOutput(results, fs, opts)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
