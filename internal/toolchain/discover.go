package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"diagtest/internal/selector"
)

var errNoBanner = errors.New("could not parse compiler banner")

// executablePatterns maps each family to the binary names that serve
// its front-end. The C++ families run g++/clang++; the c_ families run
// the C driver of the same toolchain.
var executablePatterns = map[selector.Family]*regexp.Regexp{
	selector.FamilyGCC:    regexp.MustCompile(`^g\+\+(-[0-9]+)?(\.exe|\.EXE)?$`),
	selector.FamilyCGCC:   regexp.MustCompile(`^gcc(-[0-9]+)?(\.exe|\.EXE)?$`),
	selector.FamilyClang:  regexp.MustCompile(`^clang\+\+(-[0-9]+)?(\.exe|\.EXE)?$`),
	selector.FamilyCClang: regexp.MustCompile(`^clang(-[0-9]+)?(\.exe|\.EXE)?$`),
	selector.FamilyMSVC:   regexp.MustCompile(`^cl(\.exe|\.EXE)?$`),
}

// Discoverer yields the compiler descriptors available on the host.
type Discoverer interface {
	Discover(ctx context.Context) ([]Descriptor, error)
}

// PathDiscoverer scans PATH for known toolchain binaries, probes each
// once for version and target, and crosses the result with the
// per-family standards table.
type PathDiscoverer struct {
	// Extra maps a family name to additional executables to probe,
	// from the project manifest.
	Extra map[string][]string

	// Cache holds probe results across runs; nil disables caching.
	Cache *ProbeCache
}

// Discover returns one descriptor per (binary, standard) in a stable
// order: family, then version, then standards table order.
func (d *PathDiscoverer) Discover(ctx context.Context) ([]Descriptor, error) {
	found := make(map[selector.Family][]string)
	for family, pattern := range executablePatterns {
		found[family] = findExecutables(pattern)
	}
	for name, paths := range d.Extra {
		family, ok := selector.ParseFamily(name)
		if !ok {
			continue
		}
		found[family] = append(found[family], paths...)
	}

	var out []Descriptor
	for family, paths := range found {
		for _, exe := range dedupe(paths) {
			res, err := d.probeCached(ctx, family, exe)
			if err != nil {
				// an unprobeable binary is not a run failure,
				// it just contributes no descriptors
				continue
			}
			for _, std := range Standards(family) {
				out = append(out, Descriptor{
					Family:     family,
					Version:    res.Version,
					Standard:   std,
					Target:     res.Target,
					Executable: exe,
				})
			}
		}
	}

	sortDescriptors(out)
	return out, nil
}

func (d *PathDiscoverer) probeCached(ctx context.Context, family selector.Family, exe string) (probeResult, error) {
	if d.Cache != nil {
		if res, ok := d.Cache.Get(exe); ok {
			return res, nil
		}
	}
	res, err := probe(ctx, family, exe)
	if err != nil {
		return res, err
	}
	if d.Cache != nil {
		d.Cache.Put(exe, res)
	}
	return res, nil
}

// findExecutables walks every PATH entry and returns resolved paths of
// files whose base name matches the pattern. Resolving symlinks here
// collapses aliases like cc -> gcc.
func findExecutables(pattern *regexp.Regexp) []string {
	pathEnv := os.Getenv("PATH")
	if pathEnv == "" {
		return nil
	}
	var out []string
	for _, dir := range filepath.SplitList(pathEnv) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !pattern.MatchString(entry.Name()) {
				continue
			}
			full := filepath.Join(dir, entry.Name())
			if resolved, err := filepath.EvalSymlinks(full); err == nil {
				full = resolved
			}
			out = append(out, full)
		}
	}
	return out
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// sortDescriptors orders descriptors for reproducible reports:
// family, version, standards table order, then executable path.
func sortDescriptors(descs []Descriptor) {
	stdRank := func(d Descriptor) int {
		for i, std := range Standards(d.Family) {
			if std == d.Standard {
				return i
			}
		}
		return len(Standards(d.Family))
	}
	sort.SliceStable(descs, func(i, j int) bool {
		a, b := descs[i], descs[j]
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Version != b.Version {
			return versionLess(a.Version, b.Version)
		}
		if ra, rb := stdRank(a), stdRank(b); ra != rb {
			return ra < rb
		}
		return a.Executable < b.Executable
	})
}

func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			// numeric-aware: shorter digit strings sort first
			if len(as[i]) != len(bs[i]) {
				return len(as[i]) < len(bs[i])
			}
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}

// StaticDiscoverer returns a fixed descriptor list; used by tests and
// by manifest-pinned configurations.
type StaticDiscoverer struct {
	Descriptors []Descriptor
}

func (s *StaticDiscoverer) Discover(context.Context) ([]Descriptor, error) {
	out := append([]Descriptor(nil), s.Descriptors...)
	sortDescriptors(out)
	return out, nil
}
