package runner

import (
	"diagtest/internal/directive"
	"diagtest/internal/preamble"
)

// Materialize assembles the self-contained translation unit for one
// test case: resolved preamble plus the verbatim body. The result does
// not depend on any descriptor, so it is computed once per case and
// shared read-only by every worker that compiles it.
func Materialize(fc *directive.FileCases, tc *directive.TestCase, res *preamble.Resolver) (string, error) {
	refs := make([]directive.PreambleRef, 0, len(fc.Preamble)+len(tc.Refs))
	// file-level refs come first, then the case's own
	refs = append(refs, fc.Preamble...)
	refs = append(refs, tc.Refs...)

	pre, err := res.Resolve(refs)
	if err != nil {
		return "", err
	}
	return pre + "\n" + tc.Body, nil
}
