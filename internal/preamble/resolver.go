// Package preamble expands @include and @load_defaults references into
// the preamble text shared by the test cases of a fixture file.
package preamble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"diagtest/internal/diag"
	"diagtest/internal/directive"
	"diagtest/internal/source"
)

// ResolveError is a collaborator failure: a missing include file, an
// include cycle or an unknown defaults tag. It is fatal to the fixture
// file that declared the reference, never to the whole run.
type ResolveError struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *ResolveError) Error() string {
	return e.Msg
}

// Resolver expands preamble references for one fixture file.
type Resolver struct {
	baseDir string            // directory of the fixture file, for relative includes
	table   map[string]string // defaults tag -> snippet
}

// NewResolver creates a resolver rooted at the fixture file's
// directory. Entries in overrides shadow the built-in defaults table.
func NewResolver(baseDir string, overrides map[string]string) *Resolver {
	table := make(map[string]string, len(builtinDefaults)+len(overrides))
	for tag, text := range builtinDefaults {
		table[tag] = text
	}
	for tag, text := range overrides {
		table[tag] = text
	}
	return &Resolver{baseDir: baseDir, table: table}
}

// Resolve concatenates the referenced preamble chunks in declaration
// order. Shadowed references are skipped. Includes are inlined verbatim
// with no recursive expansion; including the same file twice is treated
// as a cycle.
func (r *Resolver) Resolve(refs []directive.PreambleRef) (string, error) {
	var b strings.Builder
	visited := make(map[string]bool)

	for _, ref := range refs {
		if ref.Shadowed {
			continue
		}
		switch ref.Kind {
		case directive.RefInclude:
			text, err := r.include(ref, visited)
			if err != nil {
				return "", err
			}
			writeChunk(&b, text)
		case directive.RefLoadDefaults:
			text, ok := r.table[ref.Arg]
			if !ok {
				return "", &ResolveError{
					Code: diag.IncUnknownDefaults,
					Span: ref.Span,
					Msg: fmt.Sprintf("unknown defaults tag %q (known: %s)",
						ref.Arg, strings.Join(BuiltinTags(), ", ")),
				}
			}
			writeChunk(&b, text)
		}
	}
	return b.String(), nil
}

func (r *Resolver) include(ref directive.PreambleRef, visited map[string]bool) (string, error) {
	path := ref.Arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	path = filepath.Clean(path)

	if visited[path] {
		return "", &ResolveError{
			Code: diag.IncCycle,
			Span: ref.Span,
			Msg:  fmt.Sprintf("include cycle: %q already included", ref.Arg),
		}
	}
	visited[path] = true

	// #nosec G304 -- path comes from the fixture under test
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &ResolveError{
			Code: diag.IncFileNotFound,
			Span: ref.Span,
			Msg:  fmt.Sprintf("cannot include %q: %v", ref.Arg, err),
		}
	}
	return string(content), nil
}

// writeChunk appends text ensuring chunks stay newline-separated.
func writeChunk(b *strings.Builder, text string) {
	b.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
}
