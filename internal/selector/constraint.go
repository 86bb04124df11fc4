package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a constraint comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpLT
	OpLE
	OpGT
	OpGE
	OpCompat // ~= compatible release
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpCompat:
		return "~="
	}
	return "?"
}

// Constraint compares one descriptor field against a declared value.
// A nil *Constraint means "don't care".
type Constraint struct {
	Op    Op
	Value string
}

// ParseConstraint splits an optional operator prefix off the value,
// e.g. ">11" or "<=12.0" or "~=13.1". No prefix means exact match.
func ParseConstraint(text string) (*Constraint, error) {
	op := OpEq
	rest := text
	switch {
	case strings.HasPrefix(text, ">="):
		op, rest = OpGE, text[2:]
	case strings.HasPrefix(text, "<="):
		op, rest = OpLE, text[2:]
	case strings.HasPrefix(text, "~="):
		op, rest = OpCompat, text[2:]
	case strings.HasPrefix(text, ">"):
		op, rest = OpGT, text[1:]
	case strings.HasPrefix(text, "<"):
		op, rest = OpLT, text[1:]
	case strings.HasPrefix(text, "="):
		op, rest = OpEq, text[1:]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, fmt.Errorf("constraint %q has no value", text)
	}
	return &Constraint{Op: op, Value: rest}, nil
}

func (c *Constraint) String() string {
	if c == nil {
		return "*"
	}
	return c.Op.String() + c.Value
}

// MatchVersion applies the constraint to a dotted-numeric version.
func (c *Constraint) MatchVersion(version string) bool {
	if c == nil {
		return true
	}
	if c.Op == OpCompat {
		// compatible release: first component equal, remainder >= value
		if majorComponent(version) != majorComponent(c.Value) {
			return false
		}
		return compareVersions(version, c.Value) >= 0
	}
	return c.applyOrder(compareVersions(version, c.Value))
}

// MatchStandard applies the constraint to a standard/dialect token.
// Standards compare on their trailing numeric component ("c++17" -> 17);
// tokens without digits (e.g. "latest") only satisfy exact equality.
func (c *Constraint) MatchStandard(standard string) bool {
	if c == nil {
		return true
	}
	got, gotOK := standardNumber(standard)
	want, wantOK := standardNumber(c.Value)
	if !gotOK || !wantOK {
		return c.Op == OpEq && strings.EqualFold(standard, c.Value)
	}
	switch {
	case got < want:
		return c.applyOrder(-1)
	case got > want:
		return c.applyOrder(1)
	default:
		return c.applyOrder(0)
	}
}

// MatchTarget applies the constraint to a target token. Targets have no
// ordering; anything but exact comparison fails.
func (c *Constraint) MatchTarget(target string) bool {
	if c == nil {
		return true
	}
	if c.Op != OpEq {
		return false
	}
	return strings.EqualFold(target, c.Value)
}

func (c *Constraint) applyOrder(cmp int) bool {
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpLT:
		return cmp < 0
	case OpLE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpGE:
		return cmp >= 0
	case OpCompat:
		return cmp >= 0
	}
	return false
}

// compareVersions orders dotted-numeric versions; missing components
// count as zero, non-numeric components as zero as well.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(strings.TrimSpace(as[i]))
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(strings.TrimSpace(bs[i]))
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func majorComponent(v string) int {
	head, _, _ := strings.Cut(v, ".")
	n, _ := strconv.Atoi(strings.TrimSpace(head))
	return n
}

// standardNumber extracts the last run of digits from a standard token.
func standardNumber(s string) (int, bool) {
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0, false
	}
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
