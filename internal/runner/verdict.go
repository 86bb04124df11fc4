package runner

import (
	"time"

	"diagtest/internal/directive"
	"diagtest/internal/toolchain"
)

// Outcome classifies one (TestCase, Descriptor) pair.
type Outcome uint8

const (
	// OutcomePass: the expected pattern appeared in the diagnostic stream.
	OutcomePass Outcome = iota
	// OutcomeFail: an expectation applied and the pattern did not appear.
	OutcomeFail
	// OutcomeSkip: no expectation applied to this configuration, or the
	// toolchain was unavailable. A deliberate no-op, never an error.
	OutcomeSkip
	// OutcomeAmbiguous: more than one expectation applied to the same
	// descriptor. An authoring bug; never silently resolved by
	// precedence.
	OutcomeAmbiguous
	// OutcomeTimeout: the compiler invocation exceeded its deadline.
	OutcomeTimeout
	// OutcomeError: the invocation failed abnormally (driver error),
	// distinct from a diagnostic mismatch.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "PASS"
	case OutcomeFail:
		return "FAIL"
	case OutcomeSkip:
		return "SKIP"
	case OutcomeAmbiguous:
		return "AMBIGUOUS"
	case OutcomeTimeout:
		return "TIMEOUT"
	case OutcomeError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Failed reports whether the outcome must fail the run.
// Skip never affects the exit status.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFail, OutcomeAmbiguous, OutcomeTimeout, OutcomeError:
		return true
	}
	return false
}

// Verdict is the write-once result of one (TestCase, Descriptor) pair.
// Descriptor is zero-valued for expectations that matched no available
// compiler at all.
type Verdict struct {
	File        string
	CaseName    string
	Descriptor  toolchain.Descriptor
	Expectation *directive.Expectation // nil when no expectation applied
	Outcome     Outcome
	Detail      string // actual diagnostic text for Fail, reason otherwise
	Elapsed     time.Duration
	Diags       []toolchain.Diagnostic // structured detail, report only
}
