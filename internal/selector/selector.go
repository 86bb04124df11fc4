// Package selector implements the compiler-selector predicate language
// used by expectation directives: a bare family name, or a constrained
// form like GCC(dialect='>11', version='<12.0', target='x64').
package selector

import (
	"errors"
	"fmt"
)

// ErrUnknownField marks constraint keys the selector grammar does not
// know. Unknown keys are never silently ignored: a typo in a version
// constraint would otherwise defeat the tool's purpose.
var ErrUnknownField = errors.New("unknown selector field")

// Selector is a predicate over a concrete compiler descriptor.
// Nil constraints match any value of their field.
type Selector struct {
	Family   Family
	Version  *Constraint
	Standard *Constraint
	Target   *Constraint
}

// Field assigns a constraint to a named selector field. Returned errors
// are authoring mistakes (unknown key, empty constraint) and surface as
// MalformedDirective at parse time.
func (s *Selector) Field(key, value string) error {
	c, err := ParseConstraint(value)
	if err != nil {
		return err
	}
	switch key {
	case "version":
		if s.Version != nil {
			return fmt.Errorf("duplicate field %q", key)
		}
		s.Version = c
	case "standard", "dialect":
		if s.Standard != nil {
			return fmt.Errorf("duplicate field %q", key)
		}
		s.Standard = c
	case "target":
		if s.Target != nil {
			return fmt.Errorf("duplicate field %q", key)
		}
		s.Target = c
	default:
		return fmt.Errorf("%w %q (expected version, standard, dialect or target)", ErrUnknownField, key)
	}
	return nil
}

// Matches evaluates the selector against a concrete descriptor.
// Pure and total: never fails at evaluation time.
func (s *Selector) Matches(family Family, version, standard, target string) bool {
	if s.Family != family {
		return false
	}
	return s.Version.MatchVersion(version) &&
		s.Standard.MatchStandard(standard) &&
		s.Target.MatchTarget(target)
}

func (s *Selector) String() string {
	if s.Version == nil && s.Standard == nil && s.Target == nil {
		return s.Family.String()
	}
	out := s.Family.String() + "("
	sep := ""
	if s.Version != nil {
		out += "version='" + s.Version.String() + "'"
		sep = ", "
	}
	if s.Standard != nil {
		out += sep + "standard='" + s.Standard.String() + "'"
		sep = ", "
	}
	if s.Target != nil {
		out += sep + "target='" + s.Target.String() + "'"
	}
	return out + ")"
}
