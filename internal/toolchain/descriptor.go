// Package toolchain discovers installed compilers and drives them as
// opaque external processes. Compiler output is a diagnostic stream to
// pattern-match, never a structured AST.
package toolchain

import (
	"fmt"

	"diagtest/internal/selector"
)

// Descriptor is one concrete discovered compiler configuration:
// family + version + language standard + target. Descriptors are
// read-only inputs to selector evaluation; one verdict is produced per
// descriptor, with no guessing of a "default" version.
type Descriptor struct {
	Family     selector.Family
	Version    string // dotted-numeric, e.g. "13.2.0"
	Standard   string // e.g. "c++17"
	Target     string // e.g. "x86_64-linux-gnu"
	Executable string // absolute path; empty means unavailable
}

// Available reports whether the toolchain binary was actually found.
func (d Descriptor) Available() bool {
	return d.Executable != ""
}

// MatchedBy evaluates a selector against this descriptor.
func (d Descriptor) MatchedBy(sel *selector.Selector) bool {
	return sel.Matches(d.Family, d.Version, d.Standard, d.Target)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s-%s (%s, %s)", d.Family, d.Version, d.Standard, d.Target)
}

// Key is a stable identifier for report ordering and progress events.
func (d Descriptor) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s", d.Family, d.Version, d.Standard, d.Target)
}
