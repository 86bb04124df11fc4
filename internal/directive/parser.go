// Package directive turns annotated fixture text into test-case
// descriptors. It recognizes @include/@load_defaults preamble
// directives, @test("name"){...} blocks and the expectation directives
// inside them, in both live and shadowed (comment-disabled) spelling.
package directive

import (
	"fmt"

	"diagtest/internal/diag"
	"diagtest/internal/source"
)

// Parse scans a fixture file and returns its test-case descriptors.
// Parse errors are reported through reporter with precise spans; the
// returned FileCases contains everything that could still be recovered.
// Parsing is deterministic and idempotent.
func Parse(file *source.File, reporter diag.Reporter) *FileCases {
	p := &parser{
		c:         NewCursor(file),
		file:      file,
		reporter:  reporter,
		out:       &FileCases{File: file},
		seenNames: make(map[string]source.Span),
	}
	p.run()
	return p.out
}

type parser struct {
	c             Cursor
	file          *source.File
	reporter      diag.Reporter
	out           *FileCases
	seenNames     map[string]source.Span // active case names -> name span
	lineCommented bool                   // a // marker was seen on the current line
}

func (p *parser) errAt(code diag.Code, span source.Span, msg string) {
	p.reporter.Report(code, diag.SevError, span, msg, nil)
}

func (p *parser) errScan(e *scanError) {
	p.reporter.Report(e.Code, diag.SevError, e.Span, e.Msg, nil)
}

// skipToEOL recovers from a malformed directive by discarding the rest
// of the line. The newline itself is left for the caller.
func (p *parser) skipToEOL() {
	for !p.c.EOF() && p.c.Peek() != '\n' {
		p.c.Bump()
	}
}

func (p *parser) run() {
	for !p.c.EOF() {
		switch p.c.Peek() {
		case '\n':
			p.c.Bump()
			p.lineCommented = false
		case '/':
			if p.c.PeekAt(1) == '/' {
				p.lineCommented = true
			}
			p.c.Bump()
		case '@':
			p.topDirective()
		default:
			p.c.Bump()
		}
	}
}

// topDirective handles an '@' outside any test block.
func (p *parser) topDirective() {
	mark := p.c.Mark()
	p.c.Bump()

	shadowed := p.lineCommented
	if p.c.Peek() == '#' {
		// legacy comment-out spelling: @#directive(...)
		shadowed = true
		p.c.Bump()
	}

	name := scanIdent(&p.c)
	switch name {
	case "include", "load_defaults":
		if ref, ok := p.parseRef(mark, name, shadowed); ok {
			p.out.Preamble = append(p.out.Preamble, ref)
		}
	case "test":
		p.parseTest(mark, shadowed)
	case "error", "warning", "note", "fatal_error", "error_code":
		if p.c.Peek() == '(' {
			if _, _, err := scanArgs(&p.c); err != nil {
				p.errScan(err)
				p.skipToEOL()
				return
			}
			if p.c.Peek() == '@' {
				p.c.Bump()
			}
		}
		if !shadowed {
			p.errAt(diag.DirExpectationOutside, p.c.SpanFrom(mark),
				"@"+name+" is only allowed inside a @test block")
		}
	default:
		// not a directive form; '@' occurs in ordinary text too
	}
}

// parseRef parses @include("path") or @load_defaults('tag').
func (p *parser) parseRef(mark Mark, name string, shadowed bool) (PreambleRef, bool) {
	if p.c.Peek() != '(' {
		p.errAt(diag.DirUnterminatedArgs, p.c.SpanHere(), "expected '(' after @"+name)
		p.skipToEOL()
		return PreambleRef{}, false
	}
	args, _, err := scanArgs(&p.c)
	if err != nil {
		p.errScan(err)
		p.skipToEOL()
		return PreambleRef{}, false
	}
	if len(args) != 1 || !args[0].Quoted || args[0].Key != "" {
		p.errAt(diag.DirBadArgument, p.c.SpanFrom(mark),
			"@"+name+" takes exactly one quoted argument")
		return PreambleRef{}, false
	}
	if args[0].Str == "" {
		p.errAt(diag.DirBadArgument, args[0].Span, "@"+name+" argument must not be empty")
		return PreambleRef{}, false
	}

	kind := RefInclude
	if name == "load_defaults" {
		kind = RefLoadDefaults
	}
	return PreambleRef{
		Kind:     kind,
		Arg:      args[0].Str,
		Span:     p.c.SpanFrom(mark),
		Shadowed: shadowed,
	}, true
}

// parseTest parses @test("name"){...}. The opening brace must follow
// the closing parenthesis immediately: '){' is the sole valid test-open
// token, never ') {'.
func (p *parser) parseTest(mark Mark, shadowed bool) {
	if p.c.Peek() != '(' {
		p.errAt(diag.DirUnterminatedArgs, p.c.SpanHere(), "expected '(' after @test")
		p.skipToEOL()
		return
	}
	args, _, err := scanArgs(&p.c)
	if err != nil {
		p.errScan(err)
		p.skipToEOL()
		return
	}
	if len(args) != 1 || !args[0].Quoted || args[0].Key != "" {
		p.errAt(diag.DirMissingName, p.c.SpanFrom(mark), "@test takes exactly one quoted name")
		p.skipToEOL()
		return
	}
	name := args[0].Str
	nameSpan := args[0].Span

	switch {
	case p.c.Peek() == '{':
		// fine
	case p.c.Peek() == ' ' || p.c.Peek() == '\t':
		wsMark := p.c.Mark()
		skipHSpace(&p.c)
		if p.c.Peek() != '{' {
			p.errAt(diag.DirTrailingGarbage, p.c.SpanFrom(wsMark),
				"expected '{' immediately after @test(...)")
			p.skipToEOL()
			return
		}
		p.errAt(diag.DirSpaceBeforeBrace, p.c.SpanFrom(wsMark),
			"no whitespace allowed between @test(...) and '{'")
	default:
		p.errAt(diag.DirTrailingGarbage, p.c.SpanHere(),
			"expected '{' immediately after @test(...)")
		p.skipToEOL()
		return
	}
	p.c.Bump() // '{'

	tc := TestCase{
		Name:     name,
		NameSpan: nameSpan,
		Active:   !shadowed,
	}
	p.parseBody(&tc)
	tc.Span = p.c.SpanFrom(mark)

	if tc.Active {
		if prev, dup := p.seenNames[tc.Name]; dup {
			p.reporter.Report(diag.DirDuplicateTestName, diag.SevError, tc.NameSpan,
				fmt.Sprintf("duplicate test name %q", tc.Name),
				[]diag.Note{{Span: prev, Msg: "first declared here"}})
		} else {
			p.seenNames[tc.Name] = tc.NameSpan
		}
	}
	p.out.Cases = append(p.out.Cases, tc)
}

// parseBody captures everything between the test braces. Nested braces
// are tracked so the block closes only at matching depth zero; braces
// on shadowed lines count too, which is what closes a fully
// comment-disabled block. Directive text inside the body is blanked
// (replaced with spaces) so line and column numbers of the remaining
// code survive compilation unchanged.
func (p *parser) parseBody(tc *TestCase) {
	depth := 1
	blockStart := p.c.Mark()
	lineCommented := p.lineCommented
	var body []byte

	for {
		if p.c.EOF() {
			p.errAt(diag.DirUnterminatedBlock, p.c.SpanFrom(blockStart), "unterminated @test block")
			break
		}
		switch p.c.Peek() {
		case '\n':
			body = append(body, p.c.Bump())
			lineCommented = false
		case '/':
			if p.c.PeekAt(1) == '/' {
				lineCommented = true
			}
			body = append(body, p.c.Bump())
		case '{':
			depth++
			body = append(body, p.c.Bump())
		case '}':
			depth--
			if depth == 0 {
				p.c.Bump()
				p.lineCommented = lineCommented
				tc.Body = string(body)
				return
			}
			body = append(body, p.c.Bump())
		case '@':
			p.blockDirective(tc, &body, lineCommented)
		default:
			body = append(body, p.c.Bump())
		}
	}
	tc.Body = string(body)
}

// blockDirective handles an '@' inside a test body.
func (p *parser) blockDirective(tc *TestCase, body *[]byte, lineCommented bool) {
	mark := p.c.Mark()
	p.c.Bump()

	shadowed := lineCommented
	commentShadowed := lineCommented
	if p.c.Peek() == '#' {
		shadowed = true
		p.c.Bump()
	}

	name := scanIdent(&p.c)
	switch name {
	case "error", "warning", "note", "fatal_error", "error_code":
		exp, ok := p.parseExpectation(mark, name, shadowed)
		if p.c.Peek() == '@' {
			// legacy trailing terminator
			p.c.Bump()
		}
		if ok {
			tc.Expectations = append(tc.Expectations, exp)
		}
		p.emitDirectiveText(body, mark, commentShadowed)

	case "include", "load_defaults":
		ref, ok := p.parseRef(mark, name, shadowed)
		if p.c.Peek() == '@' {
			p.c.Bump()
		}
		if ok {
			tc.Refs = append(tc.Refs, ref)
		}
		p.emitDirectiveText(body, mark, commentShadowed)

	case "test":
		p.errAt(diag.DirNestedTest, p.c.SpanFrom(mark), "@test blocks cannot nest")
		if p.c.Peek() == '(' {
			if _, _, err := scanArgs(&p.c); err != nil {
				p.skipToEOL()
			}
		}
		p.emitDirectiveText(body, mark, commentShadowed)

	default:
		// ordinary text; keep what was consumed
		raw := p.file.Content[uint32(mark):p.c.Off]
		*body = append(*body, raw...)
	}
}

// emitDirectiveText appends the directive's raw text to the body when
// it sits inside a line comment (already inert for the compiler), or an
// equally sized run of spaces otherwise, keeping layout byte-stable.
func (p *parser) emitDirectiveText(body *[]byte, mark Mark, commentShadowed bool) {
	raw := p.file.Content[uint32(mark):p.c.Off]
	if commentShadowed {
		*body = append(*body, raw...)
		return
	}
	for range raw {
		*body = append(*body, ' ')
	}
}
