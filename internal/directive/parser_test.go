package directive

import (
	"strings"
	"testing"

	"diagtest/internal/diag"
	"diagtest/internal/selector"
	"diagtest/internal/source"
)

func parseSrc(t *testing.T, src string) (*FileCases, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("fixture.cpp", []byte(src))
	bag := diag.NewBag(100)
	fc := Parse(fs.Get(id), diag.BagReporter{Bag: bag})
	return fc, bag
}

func requireCodes(t *testing.T, bag *diag.Bag, codes ...diag.Code) {
	t.Helper()
	got := make([]diag.Code, 0, bag.Len())
	for _, d := range bag.Items() {
		got = append(got, d.Code)
	}
	if len(got) != len(codes) {
		t.Fatalf("diagnostics = %v, want %v", got, codes)
	}
	for i, c := range codes {
		if got[i] != c {
			t.Fatalf("diagnostics = %v, want %v", got, codes)
		}
	}
}

func TestParseSimpleCase(t *testing.T) {
	src := `@test("undeclared"){
int main() { return x; }
@error(gcc, "was not declared")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	if len(fc.Cases) != 1 {
		t.Fatalf("cases = %d, want 1", len(fc.Cases))
	}
	tc := fc.Cases[0]
	if tc.Name != "undeclared" || !tc.Active {
		t.Fatalf("case = %+v", tc)
	}
	if len(tc.Expectations) != 1 {
		t.Fatalf("expectations = %d, want 1", len(tc.Expectations))
	}
	exp := tc.Expectations[0]
	if exp.Kind != KindLiteral || exp.Pattern != "was not declared" || exp.Shadowed {
		t.Fatalf("expectation = %+v", exp)
	}
	if exp.Sel.Family != selector.FamilyGCC {
		t.Fatalf("family = %v", exp.Sel.Family)
	}
	if exp.Level != LevelError {
		t.Fatalf("level = %v", exp.Level)
	}
}

func TestParseBodyBlanksDirectives(t *testing.T) {
	src := `@test("layout"){
int x;
@error(gcc, "boom")
int y;
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	directive := `@error(gcc, "boom")`
	want := "\nint x;\n" + strings.Repeat(" ", len(directive)) + "\nint y;\n"
	if fc.Cases[0].Body != want {
		t.Fatalf("body = %q, want %q", fc.Cases[0].Body, want)
	}
}

func TestParseCommentedDirectiveKeptVerbatim(t *testing.T) {
	src := `@test("layout"){
// @error(gcc, "off")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	if fc.Cases[0].Body != "\n// @error(gcc, \"off\")\n" {
		t.Fatalf("body = %q", fc.Cases[0].Body)
	}
	exps := fc.Cases[0].Expectations
	if len(exps) != 1 || !exps[0].Shadowed {
		t.Fatalf("expectations = %+v", exps)
	}
	if len(fc.Cases[0].ActiveExpectations()) != 0 {
		t.Fatal("shadowed expectation must not be active")
	}
}

func TestParseLegacyShadowSpelling(t *testing.T) {
	src := `@test("legacy"){
@#error(clang, "disabled")
@error(clang, "live")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	exps := fc.Cases[0].Expectations
	if len(exps) != 2 {
		t.Fatalf("expectations = %d, want 2", len(exps))
	}
	if !exps[0].Shadowed || exps[1].Shadowed {
		t.Fatalf("shadow flags = %v %v", exps[0].Shadowed, exps[1].Shadowed)
	}
	active := fc.Cases[0].ActiveExpectations()
	if len(active) != 1 || active[0].Pattern != "live" {
		t.Fatalf("active = %+v", active)
	}
}

func TestParseShadowedCase(t *testing.T) {
	src := `// @test("disabled"){
// int bad syntax here
// @error(gcc, "whatever")
// }
@test("live"){
@error(gcc, "x")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	if len(fc.Cases) != 2 {
		t.Fatalf("cases = %d, want 2", len(fc.Cases))
	}
	if fc.Cases[0].Active || !fc.Cases[1].Active {
		t.Fatalf("active flags = %v %v", fc.Cases[0].Active, fc.Cases[1].Active)
	}
	active := fc.ActiveCases()
	if len(active) != 1 || active[0].Name != "live" {
		t.Fatalf("ActiveCases = %+v", active)
	}
}

func TestParseRegexExpectation(t *testing.T) {
	src := `@test("re"){
@error(gcc, regex="use of .* identifier")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	exp := fc.Cases[0].Expectations[0]
	if exp.Kind != KindRegex || exp.Re == nil {
		t.Fatalf("expectation = %+v", exp)
	}
	if !exp.Re.MatchString("use of undeclared identifier") {
		t.Fatal("compiled regex does not match")
	}
}

func TestParseBadRegex(t *testing.T) {
	src := `@test("re"){
@error(gcc, regex="use of [")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirBadRegex)
}

func TestParseErrorCode(t *testing.T) {
	src := `@test("code"){
@error_code(msvc, 'C2065')
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	exp := fc.Cases[0].Expectations[0]
	if exp.Kind != KindErrorCode || exp.Pattern != "C2065" {
		t.Fatalf("expectation = %+v", exp)
	}
	if exp.Sel.Family != selector.FamilyMSVC {
		t.Fatalf("family = %v", exp.Sel.Family)
	}
}

func TestParseErrorCodeRejectsKeyword(t *testing.T) {
	src := `@test("code"){
@error_code(msvc, regex='C2065')
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirUnknownKey)
}

func TestParseConstrainedSelector(t *testing.T) {
	src := `@test("sel"){
@error(GCC(dialect='>11', version='<14'), "too new")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	sel := fc.Cases[0].Expectations[0].Sel
	if sel.Family != selector.FamilyGCC {
		t.Fatalf("family = %v", sel.Family)
	}
	if sel.Standard == nil || sel.Version == nil {
		t.Fatalf("constraints = %+v", sel)
	}
	if !sel.Matches(selector.FamilyGCC, "12.3.0", "c++17", "") {
		t.Fatal("selector must match gcc 12 / c++17")
	}
	if sel.Matches(selector.FamilyGCC, "14.1.0", "c++17", "") {
		t.Fatal("version bound ignored")
	}
}

func TestParseUnknownSelectorField(t *testing.T) {
	src := `@test("sel"){
@error(GCC(vendor='gnu'), "x")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirUnknownKey)
}

func TestParseUnknownFamily(t *testing.T) {
	src := `@test("sel"){
@error(icc, "x")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirBadSelector)
}

func TestParseSpaceBeforeBrace(t *testing.T) {
	src := `@test("oops") {
@error(gcc, "x")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirSpaceBeforeBrace)
}

func TestParseDuplicateNames(t *testing.T) {
	src := `@test("dup"){
@error(gcc, "a")
}
@test("dup"){
@error(gcc, "b")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirDuplicateTestName)

	if len(bag.Items()[0].Notes) != 1 {
		t.Fatal("duplicate diagnostic must point at the first declaration")
	}
}

func TestParseShadowedDuplicateAllowed(t *testing.T) {
	src := `// @test("dup"){
// }
@test("dup"){
@error(gcc, "b")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag)
}

func TestParseExpectationOutsideBlock(t *testing.T) {
	src := `@error(gcc, "stray")
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirExpectationOutside)
}

func TestParseShadowedExpectationOutsideBlockIgnored(t *testing.T) {
	src := `// @error(gcc, "stray but inert")
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag)
}

func TestParseUnterminatedBlock(t *testing.T) {
	src := `@test("open"){
int x;
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirUnterminatedBlock)
}

func TestParseNestedTest(t *testing.T) {
	src := `@test("outer"){
@test("inner"){
}
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirNestedTest)
}

func TestParseNestedBracesInBody(t *testing.T) {
	src := `@test("braces"){
struct S { int a; };
int main() { if (true) { return 0; } }
@error(gcc, "never")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	if len(fc.Cases) != 1 {
		t.Fatalf("cases = %d, want 1", len(fc.Cases))
	}
	if !strings.Contains(fc.Cases[0].Body, "struct S { int a; };") {
		t.Fatalf("body = %q", fc.Cases[0].Body)
	}
}

func TestParseCommentedBraceClosesShadowedBlock(t *testing.T) {
	// braces count even on commented lines, so a fully
	// comment-disabled block still closes at its // }
	src := `// @test("off"){
// }
@test("on"){
@error(gcc, "x")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)
	if len(fc.Cases) != 2 {
		t.Fatalf("cases = %d, want 2", len(fc.Cases))
	}
}

func TestParseFileLevelPreamble(t *testing.T) {
	src := `@include("common.h")
@load_defaults('gnu++')
// @include("disabled.h")
@test("t"){
@include("local.h")
@error(gcc, "x")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	if len(fc.Preamble) != 3 {
		t.Fatalf("preamble refs = %d, want 3", len(fc.Preamble))
	}
	if fc.Preamble[0].Kind != RefInclude || fc.Preamble[0].Arg != "common.h" {
		t.Fatalf("ref[0] = %+v", fc.Preamble[0])
	}
	if fc.Preamble[1].Kind != RefLoadDefaults || fc.Preamble[1].Arg != "gnu++" {
		t.Fatalf("ref[1] = %+v", fc.Preamble[1])
	}
	if !fc.Preamble[2].Shadowed {
		t.Fatal("commented include must be shadowed")
	}
	if len(fc.Cases[0].Refs) != 1 || fc.Cases[0].Refs[0].Arg != "local.h" {
		t.Fatalf("case refs = %+v", fc.Cases[0].Refs)
	}
}

func TestParseEmptyIncludeArg(t *testing.T) {
	src := `@include("")
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirBadArgument)
}

func TestParseUnknownAtIgnored(t *testing.T) {
	src := `@test("attr"){
[[nodiscard]] int f();
char c = '@';
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)
	if len(fc.Cases) != 1 || len(fc.Cases[0].Expectations) != 0 {
		t.Fatalf("cases = %+v", fc.Cases)
	}
}

func TestParseMissingPattern(t *testing.T) {
	src := `@test("t"){
@error(gcc)
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirMissingPattern)
}

func TestParseMissingSelector(t *testing.T) {
	src := `@test("t"){
@error()
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirMissingSelector)
}

func TestParseShadowedDirectiveStillValidated(t *testing.T) {
	src := `@test("t"){
// @error(gcc, regex="broken [")
@error(gcc, "fine")
}
`
	_, bag := parseSrc(t, src)
	requireCodes(t, bag, diag.DirBadRegex)
}

func TestParseIdempotent(t *testing.T) {
	src := `@include("common.h")
@test("a"){
@error(GCC(version='>11'), "x")
}
// @test("b"){
// @warning(clang, "y")
// }
`
	first, bag1 := parseSrc(t, src)
	second, bag2 := parseSrc(t, src)
	if bag1.Len() != bag2.Len() {
		t.Fatalf("diagnostic counts differ: %d vs %d", bag1.Len(), bag2.Len())
	}
	if len(first.Cases) != len(second.Cases) {
		t.Fatalf("case counts differ: %d vs %d", len(first.Cases), len(second.Cases))
	}
	for i := range first.Cases {
		a, b := first.Cases[i], second.Cases[i]
		if a.Name != b.Name || a.Body != b.Body || a.Active != b.Active ||
			len(a.Expectations) != len(b.Expectations) {
			t.Fatalf("case %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestParseWarningAndNoteLevels(t *testing.T) {
	src := `@test("levels"){
@warning(gcc, "w")
@note(gcc, "n")
@fatal_error(gcc, "f")
}
`
	fc, bag := parseSrc(t, src)
	requireCodes(t, bag)

	exps := fc.Cases[0].Expectations
	if len(exps) != 3 {
		t.Fatalf("expectations = %d, want 3", len(exps))
	}
	wantLevels := []Level{LevelWarning, LevelNote, LevelFatalError}
	for i, want := range wantLevels {
		if exps[i].Level != want {
			t.Fatalf("level[%d] = %v, want %v", i, exps[i].Level, want)
		}
	}
}
