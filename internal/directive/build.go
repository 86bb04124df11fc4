package directive

import (
	"errors"
	"regexp"

	"diagtest/internal/diag"
	"diagtest/internal/selector"
)

// parseExpectation parses the argument list of an expectation directive
// that the cursor is positioned at, e.g.
//
//	@error(gcc, "text")
//	@error(GCC(dialect='>11'), regex="pat")
//	@error_code(msvc, 'C2065')
//
// Shadowed expectations go through the same validation: a disabled
// directive with a typo is still an authoring bug worth surfacing.
func (p *parser) parseExpectation(mark Mark, name string, shadowed bool) (Expectation, bool) {
	if p.c.Peek() != '(' {
		p.errAt(diag.DirUnterminatedArgs, p.c.SpanHere(), "expected '(' after @"+name)
		p.skipToEOL()
		return Expectation{}, false
	}
	args, _, err := scanArgs(&p.c)
	if err != nil {
		p.errScan(err)
		p.skipToEOL()
		return Expectation{}, false
	}
	span := p.c.SpanFrom(mark)

	if len(args) == 0 {
		p.errAt(diag.DirMissingSelector, span, "@"+name+" needs a compiler selector")
		return Expectation{}, false
	}
	sel, ok := p.buildSelector(args[0])
	if !ok {
		return Expectation{}, false
	}

	exp := Expectation{
		Sel:      sel,
		Span:     span,
		Shadowed: shadowed,
		Level:    levelOf(name),
	}

	rest := args[1:]
	if len(rest) == 0 {
		p.errAt(diag.DirMissingPattern, span, "@"+name+" needs a diagnostic pattern")
		return Expectation{}, false
	}
	if len(rest) > 1 {
		p.errAt(diag.DirBadArgument, rest[1].Span, "@"+name+" takes exactly one pattern argument")
		return Expectation{}, false
	}
	pat := rest[0]
	if !pat.Quoted {
		p.errAt(diag.DirBadArgument, pat.Span, "pattern must be a quoted string")
		return Expectation{}, false
	}

	if name == "error_code" {
		if pat.Key != "" {
			p.errAt(diag.DirUnknownKey, pat.Span, "@error_code takes a positional code, not a keyword argument")
			return Expectation{}, false
		}
		exp.Kind = KindErrorCode
		exp.Pattern = pat.Str
		return exp, true
	}

	switch pat.Key {
	case "":
		exp.Kind = KindLiteral
		exp.Pattern = pat.Str
	case "regex":
		re, reErr := regexp.Compile(pat.Str)
		if reErr != nil {
			p.errAt(diag.DirBadRegex, pat.Span, "invalid regex pattern: "+reErr.Error())
			return Expectation{}, false
		}
		exp.Kind = KindRegex
		exp.Pattern = pat.Str
		exp.Re = re
	default:
		p.errAt(diag.DirUnknownKey, pat.Span, "unknown argument key "+pat.Key+" (expected regex)")
		return Expectation{}, false
	}
	return exp, true
}

// buildSelector turns the first directive argument into a Selector:
// either a bare family name or Family(field='op value', ...).
func (p *parser) buildSelector(a arg) (selector.Selector, bool) {
	switch {
	case a.Call != nil:
		fam, ok := selector.ParseFamily(a.Call.Name)
		if !ok {
			p.errAt(diag.DirBadSelector, a.Span, "unknown compiler family "+a.Call.Name)
			return selector.Selector{}, false
		}
		sel := selector.Selector{Family: fam}
		for _, field := range a.Call.Args {
			if field.Key == "" || !field.Quoted {
				p.errAt(diag.DirBadConstraint, field.Span, "selector fields must be key='value'")
				return selector.Selector{}, false
			}
			if err := sel.Field(field.Key, field.Str); err != nil {
				code := diag.DirBadConstraint
				if errors.Is(err, selector.ErrUnknownField) {
					code = diag.DirUnknownKey
				}
				p.errAt(code, field.Span, err.Error())
				return selector.Selector{}, false
			}
		}
		return sel, true

	case a.Ident != "":
		fam, ok := selector.ParseFamily(a.Ident)
		if !ok {
			p.errAt(diag.DirBadSelector, a.Span, "unknown compiler family "+a.Ident)
			return selector.Selector{}, false
		}
		return selector.Selector{Family: fam}, true

	default:
		p.errAt(diag.DirBadSelector, a.Span, "expected a compiler selector")
		return selector.Selector{}, false
	}
}

func levelOf(name string) Level {
	switch name {
	case "warning":
		return LevelWarning
	case "note":
		return LevelNote
	case "fatal_error":
		return LevelFatalError
	default:
		return LevelError
	}
}
