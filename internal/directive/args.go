package directive

import (
	"diagtest/internal/diag"
	"diagtest/internal/source"
)

// arg is one parsed directive argument: positional or key=value, with a
// quoted string, bare identifier or nested call as its value.
type arg struct {
	Key    string // "" for positional
	Str    string
	Ident  string
	Call   *callExpr
	Quoted bool
	Span   source.Span
}

// callExpr is a nested call value, e.g. GCC(dialect='>11').
type callExpr struct {
	Name string
	Args []arg
	Span source.Span
}

// scanError carries a parse failure with its location.
type scanError struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func scanIdent(c *Cursor) string {
	m := c.Mark()
	if !isIdentStart(c.Peek()) {
		return ""
	}
	for isIdentByte(c.Peek()) {
		c.Bump()
	}
	return string(c.File.Content[uint32(m):c.Off])
}

// skipHSpace consumes spaces and tabs, never newlines: directive
// argument lists are single-line.
func skipHSpace(c *Cursor) {
	for {
		b := c.Peek()
		if b != ' ' && b != '\t' {
			return
		}
		c.Bump()
	}
}

// scanString consumes a quoted string. Both '...' and "..." quoting are
// accepted; backslash escapes the quote character and backslash itself.
func scanString(c *Cursor) (string, source.Span, *scanError) {
	m := c.Mark()
	quote := c.Peek()
	if quote != '\'' && quote != '"' {
		return "", c.SpanHere(), &scanError{
			Code: diag.DirBadString,
			Span: c.SpanHere(),
			Msg:  "expected quoted string",
		}
	}
	c.Bump()
	var out []byte
	for {
		b := c.Peek()
		switch b {
		case 0, '\n':
			return "", c.SpanFrom(m), &scanError{
				Code: diag.DirBadString,
				Span: c.SpanFrom(m),
				Msg:  "unterminated string",
			}
		case '\\':
			next := c.PeekAt(1)
			if next == quote || next == '\\' {
				c.Bump()
				out = append(out, c.Bump())
				continue
			}
			out = append(out, c.Bump())
		case quote:
			c.Bump()
			return string(out), c.SpanFrom(m), nil
		default:
			out = append(out, c.Bump())
		}
	}
}

// scanArgs consumes a parenthesized argument list. The cursor must be
// positioned at '('.
func scanArgs(c *Cursor) ([]arg, source.Span, *scanError) {
	open := c.Mark()
	if c.Peek() != '(' {
		return nil, c.SpanHere(), &scanError{
			Code: diag.DirUnterminatedArgs,
			Span: c.SpanHere(),
			Msg:  "expected '('",
		}
	}
	c.Bump()

	var args []arg
	skipHSpace(c)
	if c.Peek() == ')' {
		c.Bump()
		return args, c.SpanFrom(open), nil
	}

	for {
		skipHSpace(c)
		a, err := scanArg(c)
		if err != nil {
			return nil, c.SpanFrom(open), err
		}
		args = append(args, a)

		skipHSpace(c)
		switch c.Peek() {
		case ',':
			c.Bump()
		case ')':
			c.Bump()
			return args, c.SpanFrom(open), nil
		default:
			return nil, c.SpanFrom(open), &scanError{
				Code: diag.DirUnterminatedArgs,
				Span: c.SpanHere(),
				Msg:  "expected ',' or ')' in argument list",
			}
		}
	}
}

func scanArg(c *Cursor) (arg, *scanError) {
	m := c.Mark()

	if c.Peek() == '\'' || c.Peek() == '"' {
		s, sp, err := scanString(c)
		if err != nil {
			return arg{}, err
		}
		return arg{Str: s, Quoted: true, Span: sp}, nil
	}

	name := scanIdent(c)
	if name == "" {
		return arg{}, &scanError{
			Code: diag.DirBadArgument,
			Span: c.SpanHere(),
			Msg:  "expected argument",
		}
	}
	skipHSpace(c)

	switch c.Peek() {
	case '=':
		c.Bump()
		skipHSpace(c)
		if c.Peek() == '\'' || c.Peek() == '"' {
			s, _, err := scanString(c)
			if err != nil {
				return arg{}, err
			}
			return arg{Key: name, Str: s, Quoted: true, Span: c.SpanFrom(m)}, nil
		}
		val := scanIdent(c)
		if val == "" {
			return arg{}, &scanError{
				Code: diag.DirBadArgument,
				Span: c.SpanHere(),
				Msg:  "expected value after '='",
			}
		}
		return arg{Key: name, Ident: val, Span: c.SpanFrom(m)}, nil

	case '(':
		inner, _, err := scanArgs(c)
		if err != nil {
			return arg{}, err
		}
		call := &callExpr{Name: name, Args: inner, Span: c.SpanFrom(m)}
		return arg{Call: call, Span: c.SpanFrom(m)}, nil

	default:
		return arg{Ident: name, Span: c.SpanFrom(m)}, nil
	}
}
