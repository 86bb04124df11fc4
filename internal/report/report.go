// Package report aggregates verdicts into run summaries and renders
// them for humans and machines.
package report

import (
	"diagtest/internal/runner"
)

// Summary counts verdicts across a whole run.
type Summary struct {
	Files          int `json:"files"`
	MalformedFiles int `json:"malformed_files"`
	Pass           int `json:"pass"`
	Fail           int `json:"fail"`
	Skip           int `json:"skip"`
	Ambiguous      int `json:"ambiguous"`
	Timeout        int `json:"timeout"`
	Errors         int `json:"errors"`
}

// Summarize folds all file results into counts. Aggregation is
// order-independent, so the summary is stable regardless of worker
// scheduling.
func Summarize(results []runner.FileResult) Summary {
	var s Summary
	s.Files = len(results)
	for i := range results {
		fr := &results[i]
		if fr.Bag.HasErrors() {
			s.MalformedFiles++
		}
		for j := range fr.Verdicts {
			switch fr.Verdicts[j].Outcome {
			case runner.OutcomePass:
				s.Pass++
			case runner.OutcomeFail:
				s.Fail++
			case runner.OutcomeSkip:
				s.Skip++
			case runner.OutcomeAmbiguous:
				s.Ambiguous++
			case runner.OutcomeTimeout:
				s.Timeout++
			case runner.OutcomeError:
				s.Errors++
			}
		}
	}
	return s
}

// Failed reports whether the run must exit non-zero. Skips never fail
// a run; malformed fixture files always do.
func (s Summary) Failed() bool {
	return s.Fail > 0 || s.Ambiguous > 0 || s.Timeout > 0 || s.Errors > 0 || s.MalformedFiles > 0
}

// ExitCode maps the summary onto the process exit status.
func ExitCode(s Summary) int {
	if s.Failed() {
		return 1
	}
	return 0
}
