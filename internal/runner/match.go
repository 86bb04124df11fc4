package runner

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"diagtest/internal/directive"
)

// NormalizeStream brings a diagnostic stream to NFC so that patterns
// containing composed characters (gcc quotes identifiers with
// typographic quotes) compare predictably.
func NormalizeStream(s string) string {
	return norm.NFC.String(s)
}

// Match applies an expectation's pattern to a normalized diagnostic
// stream.
//
//   - Literal patterns match as plain substrings, even when the text
//     happens to be valid regex syntax.
//   - Regex patterns use search semantics, not full-match.
//   - Error codes match as whole tokens: C2065 must not match inside
//     XC20651.
func Match(exp *directive.Expectation, stream string) bool {
	switch exp.Kind {
	case directive.KindLiteral:
		return strings.Contains(stream, norm.NFC.String(exp.Pattern))
	case directive.KindRegex:
		return exp.Re.MatchString(stream)
	case directive.KindErrorCode:
		return containsToken(stream, exp.Pattern)
	}
	return false
}

// containsToken reports whether token occurs in s delimited by
// non-identifier characters on both sides.
func containsToken(s, token string) bool {
	if token == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(s[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(token)
		beforeOK := idx == 0 || !isTokenByte(s[idx-1])
		afterOK := end == len(s) || !isTokenByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isTokenByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
