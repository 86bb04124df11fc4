package directive

import (
	"regexp"

	"diagtest/internal/selector"
	"diagtest/internal/source"
)

// PreambleKind distinguishes the two preamble directive forms.
type PreambleKind uint8

const (
	// RefInclude inlines another file verbatim.
	RefInclude PreambleKind = iota
	// RefLoadDefaults resolves a named built-in preamble bundle.
	RefLoadDefaults
)

func (k PreambleKind) String() string {
	if k == RefInclude {
		return "include"
	}
	return "load_defaults"
}

// PreambleRef is one @include("path") or @load_defaults('tag') directive.
// Shadowed refs are parsed for well-formedness but never resolved.
type PreambleRef struct {
	Kind     PreambleKind
	Arg      string
	Span     source.Span
	Shadowed bool
}

// Kind tells the matcher how an expectation pattern is applied.
type Kind uint8

const (
	// KindLiteral matches the pattern as a plain substring, even when it
	// happens to be valid regex syntax.
	KindLiteral Kind = iota
	// KindRegex matches under regexp search semantics (not full-match).
	KindRegex
	// KindErrorCode matches the pattern as a whole token (C2065 must not
	// match inside XC20651).
	KindErrorCode
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRegex:
		return "regex"
	case KindErrorCode:
		return "error_code"
	}
	return "unknown"
}

// Level is the diagnostic severity an expectation was declared for.
// It is carried into the report; the matching policy itself is
// level-independent.
type Level uint8

const (
	LevelError Level = iota
	LevelWarning
	LevelNote
	LevelFatalError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	case LevelFatalError:
		return "fatal error"
	}
	return "unknown"
}

// Expectation asserts that a diagnostic pattern must appear when a
// matching compiler configuration compiles the owning test case.
type Expectation struct {
	Sel      selector.Selector
	Kind     Kind
	Level    Level
	Pattern  string
	Re       *regexp.Regexp // compiled at parse time for KindRegex
	Span     source.Span
	Shadowed bool
}

// TestCase is one @test("name"){ ... } block.
type TestCase struct {
	Name         string
	Body         string // verbatim text between the braces, directive text blanked
	Span         source.Span
	NameSpan     source.Span
	Active       bool // false when the @test token itself was shadowed
	Refs         []PreambleRef
	Expectations []Expectation
}

// ActiveExpectations returns the expectations that are not shadowed.
func (tc *TestCase) ActiveExpectations() []Expectation {
	out := make([]Expectation, 0, len(tc.Expectations))
	for _, e := range tc.Expectations {
		if !e.Shadowed {
			out = append(out, e)
		}
	}
	return out
}

// FileCases is the parse result for one fixture file.
type FileCases struct {
	File     *source.File
	Preamble []PreambleRef // file-level refs, applied to every case
	Cases    []TestCase    // in declaration order, shadowed ones included
}

// ActiveCases returns the cases that will actually execute.
func (fc *FileCases) ActiveCases() []TestCase {
	out := make([]TestCase, 0, len(fc.Cases))
	for _, tc := range fc.Cases {
		if tc.Active {
			out = append(out, tc)
		}
	}
	return out
}
