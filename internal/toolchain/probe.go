package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"time"

	"diagtest/internal/selector"
)

// versionPattern picks the version and target out of gcc/clang banner
// output (`gcc -v --version` writes the interesting lines to stderr,
// `clang --version` to stdout; both streams are scanned).
var versionPattern = regexp.MustCompile(
	`(?m)(Target: (?P<target>.*)|(gcc|clang) version (?P<version>[0-9.]+))`)

// msvcVersionPattern matches the cl.exe banner, e.g.
// "... Optimizing Compiler Version 19.29.30133 for x64".
var msvcVersionPattern = regexp.MustCompile(
	`Version (?P<version>[0-9.]+) for (?P<target>\S+)`)

const probeTimeout = 10 * time.Second

// probeResult is what a version probe learns about one binary.
type probeResult struct {
	Version string
	Target  string
}

// probe runs the toolchain binary once to learn its version and target.
func probe(ctx context.Context, family selector.Family, executable string) (probeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-v", "--version"}
	if family == selector.FamilyMSVC {
		args = nil // cl.exe prints its banner on any invocation
	}

	// #nosec G204 -- executable comes from PATH discovery or the manifest
	cmd := exec.CommandContext(ctx, executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// banner probes may exit non-zero (cl.exe without input does);
	// the output is still what we are after
	_ = cmd.Run()

	combined := stdout.String() + "\n" + stderr.String()
	if family == selector.FamilyMSVC {
		return parseMSVCBanner(combined)
	}
	return parseBanner(combined)
}

func parseBanner(text string) (probeResult, error) {
	var res probeResult
	for _, m := range versionPattern.FindAllStringSubmatch(text, -1) {
		if t := m[versionPattern.SubexpIndex("target")]; t != "" {
			res.Target = t
		}
		if v := m[versionPattern.SubexpIndex("version")]; v != "" {
			res.Version = v
		}
	}
	if res.Version == "" {
		return res, errNoBanner
	}
	return res, nil
}

func parseMSVCBanner(text string) (probeResult, error) {
	m := msvcVersionPattern.FindStringSubmatch(text)
	if m == nil {
		return probeResult{}, errNoBanner
	}
	return probeResult{
		Version: m[msvcVersionPattern.SubexpIndex("version")],
		Target:  m[msvcVersionPattern.SubexpIndex("target")],
	}, nil
}
