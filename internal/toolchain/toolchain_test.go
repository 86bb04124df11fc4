package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"diagtest/internal/selector"
)

func TestParseBanner(t *testing.T) {
	banner := `Using built-in specs.
COLLECT_GCC=g++
Target: x86_64-linux-gnu
Thread model: posix
gcc version 13.2.0 (Ubuntu 13.2.0-23ubuntu4)
g++ (Ubuntu 13.2.0-23ubuntu4) 13.2.0
`
	res, err := parseBanner(banner)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "13.2.0" || res.Target != "x86_64-linux-gnu" {
		t.Fatalf("probe = %+v", res)
	}
}

func TestParseBannerClang(t *testing.T) {
	banner := `Ubuntu clang version 17.0.6 (9ubuntu1)
Target: x86_64-pc-linux-gnu
Thread model: posix
`
	res, err := parseBanner(banner)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "17.0.6" || res.Target != "x86_64-pc-linux-gnu" {
		t.Fatalf("probe = %+v", res)
	}
}

func TestParseBannerNoVersion(t *testing.T) {
	if _, err := parseBanner("not a compiler\n"); !errors.Is(err, errNoBanner) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseMSVCBanner(t *testing.T) {
	banner := "Microsoft (R) C/C++ Optimizing Compiler Version 19.29.30133 for x64\n"
	res, err := parseMSVCBanner(banner)
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "19.29.30133" || res.Target != "x64" {
		t.Fatalf("probe = %+v", res)
	}
}

func TestDescriptorMatchedBy(t *testing.T) {
	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Version:    "13.2.0",
		Standard:   "c++17",
		Target:     "x86_64-linux-gnu",
		Executable: "/usr/bin/g++",
	}

	sel := selector.Selector{Family: selector.FamilyGCC}
	if !desc.MatchedBy(&sel) {
		t.Fatal("bare family selector must match")
	}

	if err := sel.Field("version", ">13"); err != nil {
		t.Fatal(err)
	}
	if !desc.MatchedBy(&sel) {
		t.Fatal("gcc 13.2.0 satisfies >13")
	}

	other := selector.Selector{Family: selector.FamilyCGCC}
	if desc.MatchedBy(&other) {
		t.Fatal("c_gcc selector must not match a gcc descriptor")
	}
}

func TestStandards(t *testing.T) {
	if got := Standards(selector.FamilyCGCC); got[0] != "c89" {
		t.Fatalf("c_gcc standards = %v", got)
	}
	if got := Standards(selector.FamilyMSVC); got[len(got)-1] != "c++latest" {
		t.Fatalf("msvc standards = %v", got)
	}
	for _, std := range Standards(selector.FamilyGCC) {
		if !strings.HasPrefix(std, "c++") {
			t.Fatalf("gcc standard %q is not a C++ standard", std)
		}
	}
}

func TestExtractDiagnosticsGCC(t *testing.T) {
	stream := `unit.cpp: In function 'int main()':
unit.cpp:4:12: error: 'x' was not declared in this scope
    4 |     return x;
      |            ^
unit.cpp:2:5: warning: unused variable 'y' [-Wunused-variable]
`
	diags := ExtractDiagnostics(selector.FamilyGCC, stream)
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %d, want 2: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Level != "error" || d.Line != 4 || d.Col != 12 {
		t.Fatalf("diag[0] = %+v", d)
	}
	if d.Message != "'x' was not declared in this scope" {
		t.Fatalf("message = %q", d.Message)
	}
	if diags[1].Level != "warning" {
		t.Fatalf("diag[1] = %+v", diags[1])
	}
}

func TestExtractDiagnosticsMSVC(t *testing.T) {
	stream := `unit.cpp
unit.cpp(4): error C2065: 'x': undeclared identifier
unit.cpp(2): warning C4101: 'y': unreferenced local variable
`
	diags := ExtractDiagnostics(selector.FamilyMSVC, stream)
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %d, want 2: %+v", len(diags), diags)
	}
	if diags[0].Code != "C2065" || diags[0].Line != 4 {
		t.Fatalf("diag[0] = %+v", diags[0])
	}
	if diags[1].Code != "C4101" || diags[1].Level != "warning" {
		t.Fatalf("diag[1] = %+v", diags[1])
	}
}

// fakeCompiler writes a shell script that prints the given stderr text
// and exits with the given code.
func fakeCompiler(t *testing.T, dir, name, stderrText string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\necho '%s' >&2\nexit %d\n", stderrText, exitCode)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}
	return path
}

func TestInvoke(t *testing.T) {
	dir := t.TempDir()
	exe := fakeCompiler(t, dir, "g++", "unit.cpp:1:1: error: boom", 1)

	inv := NewInvoker(t.TempDir(), 5*time.Second, false)
	defer inv.Cleanup()

	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Version:    "13.0.0",
		Standard:   "c++17",
		Executable: exe,
	}
	res, err := inv.Invoke(context.Background(), desc, "int main() { return x; }\n")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 1 {
		t.Fatalf("exit = %d, want 1", res.ExitCode)
	}
	if !strings.Contains(res.Stream(), "error: boom") {
		t.Fatalf("stream = %q", res.Stream())
	}
	if res.Elapsed <= 0 {
		t.Fatal("elapsed not recorded")
	}
}

func TestInvokeUnavailable(t *testing.T) {
	inv := NewInvoker(t.TempDir(), 5*time.Second, false)
	defer inv.Cleanup()

	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Standard:   "c++17",
		Executable: filepath.Join(t.TempDir(), "gone"),
	}
	_, err := inv.Invoke(context.Background(), desc, "int main() {}\n")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	desc.Executable = ""
	_, err = inv.Invoke(context.Background(), desc, "int main() {}\n")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	inv := NewInvoker(t.TempDir(), 100*time.Millisecond, false)
	defer inv.Cleanup()

	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Standard:   "c++17",
		Executable: path,
	}
	_, err := inv.Invoke(context.Background(), desc, "int main() {}\n")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestInvokeCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	inv := NewInvoker(t.TempDir(), 30*time.Second, false)
	defer inv.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Standard:   "c++17",
		Executable: path,
	}
	start := time.Now()
	_, err := inv.Invoke(ctx, desc, "int main() {}\n")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("cancellation must not be classified as a timeout")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("cancel did not abandon the process promptly: %s", elapsed)
	}
}

func TestInvokeForkedChildDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forking")
	// the child inherits the output pipes and outlives the compiler
	script := "#!/bin/sh\necho 'unit.cpp:1:1: error: boom' >&2\nsleep 30 &\nexit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	inv := NewInvoker(t.TempDir(), 30*time.Second, false)
	defer inv.Cleanup()

	desc := Descriptor{
		Family:     selector.FamilyGCC,
		Standard:   "c++17",
		Executable: path,
	}
	start := time.Now()
	res, err := inv.Invoke(context.Background(), desc, "int main() {}\n")
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("forked child blocked the invocation: %s", elapsed)
	}
	if res.ExitCode != 1 {
		t.Fatalf("exit = %d, want 1", res.ExitCode)
	}
	if !strings.Contains(res.Stream(), "error: boom") {
		t.Fatalf("stream = %q", res.Stream())
	}
}

func TestBuildArgs(t *testing.T) {
	gcc := Descriptor{Family: selector.FamilyGCC, Standard: "c++20"}
	got := buildArgs(gcc, "unit.cpp")
	want := []string{"-std=c++20", "-fsyntax-only", "unit.cpp"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}

	msvc := Descriptor{Family: selector.FamilyMSVC, Standard: "c++17"}
	got = buildArgs(msvc, "unit.cpp")
	if got[0] != "/nologo" || got[2] != "/std:c++17" {
		t.Fatalf("msvc args = %v", got)
	}
}

func TestUnitFileName(t *testing.T) {
	if unitFileName(selector.FamilyCGCC) != "unit.c" {
		t.Fatal("c_gcc units must be .c files")
	}
	if unitFileName(selector.FamilyClang) != "unit.cpp" {
		t.Fatal("clang units must be .cpp files")
	}
}

func TestPathDiscoverer(t *testing.T) {
	dir := t.TempDir()
	banner := "gcc version 12.3.0"
	script := "#!/bin/sh\necho 'Target: x86_64-linux-gnu' >&2\necho '" + banner + "' >&2\n"
	if err := os.WriteFile(filepath.Join(dir, "g++"), []byte(script), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	disc := &PathDiscoverer{}
	descs, err := disc.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(descs) != len(Standards(selector.FamilyGCC)) {
		t.Fatalf("descriptors = %d, want one per standard: %+v", len(descs), descs)
	}
	for _, d := range descs {
		if d.Family != selector.FamilyGCC || d.Version != "12.3.0" {
			t.Fatalf("descriptor = %+v", d)
		}
	}
	// stable order: standards table order
	if descs[0].Standard != "c++98" || descs[len(descs)-1].Standard != "c++23" {
		t.Fatalf("order = %v ... %v", descs[0].Standard, descs[len(descs)-1].Standard)
	}
}

func TestStaticDiscoverer(t *testing.T) {
	disc := &StaticDiscoverer{Descriptors: []Descriptor{
		{Family: selector.FamilyClang, Version: "17.0.1", Standard: "c++20", Executable: "/x/clang++"},
		{Family: selector.FamilyGCC, Version: "13.2.0", Standard: "c++17", Executable: "/x/g++"},
	}}
	descs, err := disc.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if descs[0].Family != selector.FamilyGCC {
		t.Fatalf("order = %+v", descs)
	}
}

func TestProbeCache(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	cache, err := OpenProbeCache("diagtest-test")
	if err != nil {
		t.Fatal(err)
	}

	exe := filepath.Join(t.TempDir(), "g++")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	if _, ok := cache.Get(exe); ok {
		t.Fatal("empty cache returned a hit")
	}
	cache.Put(exe, probeResult{Version: "13.2.0", Target: "x86_64-linux-gnu"})
	res, ok := cache.Get(exe)
	if !ok || res.Version != "13.2.0" {
		t.Fatalf("cache round trip = %+v, ok=%v", res, ok)
	}

	// touching the binary invalidates the entry
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(exe, later, later); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(exe); ok {
		t.Fatal("stale entry returned after binary changed")
	}

	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
}
