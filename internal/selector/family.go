package selector

import "strings"

// Family identifies a compiler front-end family. The c_ variants force
// the C front-end of the same toolchain and are deliberately distinct
// families: a selector for gcc never applies to c_gcc and vice versa.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyGCC
	FamilyClang
	FamilyMSVC
	FamilyCGCC
	FamilyCClang
)

var familyNames = map[string]Family{
	"gcc":     FamilyGCC,
	"clang":   FamilyClang,
	"msvc":    FamilyMSVC,
	"c_gcc":   FamilyCGCC,
	"c_clang": FamilyCClang,
}

// ParseFamily resolves a family name case-insensitively.
func ParseFamily(name string) (Family, bool) {
	f, ok := familyNames[strings.ToLower(name)]
	return f, ok
}

func (f Family) String() string {
	switch f {
	case FamilyGCC:
		return "gcc"
	case FamilyClang:
		return "clang"
	case FamilyMSVC:
		return "msvc"
	case FamilyCGCC:
		return "c_gcc"
	case FamilyCClang:
		return "c_clang"
	}
	return "unknown"
}

// IsC reports whether the family forces the C front-end.
func (f Family) IsC() bool {
	return f == FamilyCGCC || f == FamilyCClang
}
