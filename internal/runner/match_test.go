package runner

import (
	"regexp"
	"testing"

	"diagtest/internal/directive"
)

func TestMatchLiteralIsNotRegex(t *testing.T) {
	exp := &directive.Expectation{
		Kind:    directive.KindLiteral,
		Pattern: "expected ')' before '.' token",
	}
	if !Match(exp, "unit.cpp:3:1: error: expected ')' before '.' token") {
		t.Fatal("literal pattern with regex metacharacters must match as text")
	}
	if Match(exp, "error: expected Z before Y token") {
		t.Fatal("literal pattern must not behave like a regex")
	}
}

func TestMatchLiteralSubstring(t *testing.T) {
	exp := &directive.Expectation{
		Kind:    directive.KindLiteral,
		Pattern: "was not declared",
	}
	if !Match(exp, "unit.cpp:4:12: error: 'x' was not declared in this scope\n") {
		t.Fatal("substring must match anywhere in the stream")
	}
	if Match(exp, "unit.cpp:4:12: error: something else\n") {
		t.Fatal("absent substring must not match")
	}
}

func TestMatchRegexSearchSemantics(t *testing.T) {
	exp := &directive.Expectation{
		Kind:    directive.KindRegex,
		Pattern: `undeclared (identifier|variable)`,
		Re:      regexp.MustCompile(`undeclared (identifier|variable)`),
	}
	// search, not full-match: surrounding text is fine
	if !Match(exp, "unit.cpp:4:12: error: use of undeclared identifier 'x'\n") {
		t.Fatal("regex must match a substring of the stream")
	}
	if Match(exp, "unit.cpp:4:12: error: unknown type name 'x'\n") {
		t.Fatal("non-matching regex must fail")
	}
}

func TestMatchErrorCodeWholeToken(t *testing.T) {
	exp := &directive.Expectation{
		Kind:    directive.KindErrorCode,
		Pattern: "C2065",
	}
	if !Match(exp, "unit.cpp(4): error C2065: 'x': undeclared identifier\n") {
		t.Fatal("exact code must match")
	}
	if Match(exp, "unit.cpp(4): error XC20651: bogus\n") {
		t.Fatal("code must not match inside a longer token")
	}
	if Match(exp, "unit.cpp(4): error C20651: bogus\n") {
		t.Fatal("code must not match a prefix of a longer code")
	}
}

func TestMatchErrorCodeAtStreamEdges(t *testing.T) {
	exp := &directive.Expectation{
		Kind:    directive.KindErrorCode,
		Pattern: "C2065",
	}
	if !Match(exp, "C2065") {
		t.Fatal("code at both stream edges must match")
	}
	if !Match(exp, "(C2065)") {
		t.Fatal("punctuation delimits tokens")
	}
}

func TestNormalizeStream(t *testing.T) {
	// e + combining acute (decomposed) vs U+00E9 (composed)
	decomposed := "error: 'cafe\u0301' was not declared"
	composed := "caf\u00e9"

	exp := &directive.Expectation{
		Kind:    directive.KindLiteral,
		Pattern: composed,
	}
	if !Match(exp, NormalizeStream(decomposed)) {
		t.Fatal("NFC normalization must unify composed and decomposed forms")
	}
}

func TestContainsToken(t *testing.T) {
	cases := []struct {
		s, token string
		want     bool
	}{
		{"error C2065: x", "C2065", true},
		{"errorC2065x", "C2065", false},
		{"C2065_suffix", "C2065", false},
		{"see C2065.", "C2065", true},
		{"", "C2065", false},
		{"C2065", "", false},
	}
	for _, tc := range cases {
		if got := containsToken(tc.s, tc.token); got != tc.want {
			t.Fatalf("containsToken(%q, %q) = %v, want %v", tc.s, tc.token, got, tc.want)
		}
	}
}
