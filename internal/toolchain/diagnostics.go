package toolchain

import (
	"regexp"
	"strconv"
	"strings"

	"diagtest/internal/selector"
)

// Diagnostic is one structured line extracted from a compiler's output
// stream. Extraction exists for report detail only; expectation
// matching works on the raw stream.
type Diagnostic struct {
	Level   string // note, warning, error, fatal error
	Path    string
	Line    int
	Col     int
	Code    string // MSVC-style error code, e.g. C2065
	Message string
}

// gccDiagPattern matches gcc/clang style lines:
//
//	file.cpp:4:5: error: 'x' was not declared in this scope
var gccDiagPattern = regexp.MustCompile(
	`^((?P<path>[^:]*?):((?P<line>[0-9]+):)?((?P<col>[0-9]+):)? )?((?P<level>error|warning|note): )(?P<message>.*)$`)

// msvcDiagPattern matches cl.exe style lines:
//
//	file.cpp(4): error C2065: 'x': undeclared identifier
var msvcDiagPattern = regexp.MustCompile(
	`^((?P<path>[a-zA-Z0-9:\\/._-]*?)\((?P<line>[0-9]+)\): )((?P<level>fatal error|error|warning) )((?P<code>[A-Z][0-9]+): )(?P<message>.*)$`)

// ExtractDiagnostics parses the stream line by line with the family's
// diagnostic pattern. Lines that do not match are skipped.
func ExtractDiagnostics(family selector.Family, stream string) []Diagnostic {
	pattern := gccDiagPattern
	if family == selector.FamilyMSVC {
		pattern = msvcDiagPattern
	}

	var out []Diagnostic
	for _, line := range strings.Split(stream, "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		d := Diagnostic{
			Level:   group(pattern, m, "level"),
			Path:    group(pattern, m, "path"),
			Message: group(pattern, m, "message"),
		}
		if family == selector.FamilyMSVC {
			d.Code = group(pattern, m, "code")
		}
		d.Line, _ = strconv.Atoi(group(pattern, m, "line"))
		if idx := pattern.SubexpIndex("col"); idx >= 0 {
			d.Col, _ = strconv.Atoi(m[idx])
		}
		out = append(out, d)
	}
	return out
}

func group(pattern *regexp.Regexp, m []string, name string) string {
	idx := pattern.SubexpIndex(name)
	if idx < 0 || idx >= len(m) {
		return ""
	}
	return m[idx]
}
