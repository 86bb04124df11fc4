package toolchain

import "diagtest/internal/selector"

// familyStandards lists the language standards each family is probed
// with, oldest first. One descriptor is produced per (binary, standard).
var familyStandards = map[selector.Family][]string{
	selector.FamilyGCC:    {"c++98", "c++03", "c++11", "c++14", "c++17", "c++20", "c++23"},
	selector.FamilyClang:  {"c++98", "c++03", "c++11", "c++14", "c++17", "c++20", "c++23"},
	selector.FamilyCGCC:   {"c89", "c99", "c11", "c17", "c23"},
	selector.FamilyCClang: {"c89", "c99", "c11", "c17", "c23"},
	selector.FamilyMSVC:   {"c++14", "c++17", "c++20", "c++latest"},
}

// Standards returns the probe standards for a family.
func Standards(f selector.Family) []string {
	return familyStandards[f]
}
