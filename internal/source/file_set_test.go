package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToLineCol(t *testing.T) {
	content := []byte("abc\ndef\n\nxyz")
	idx := buildLineIndex(content)

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},  // 'a'
		{2, 1, 3},  // 'c'
		{3, 1, 4},  // the newline terminates line 1
		{4, 2, 1},  // 'd'
		{7, 2, 4},  // newline after "def"
		{8, 3, 1},  // empty line
		{9, 4, 1},  // 'x'
		{11, 4, 3}, // 'z'
		{12, 4, 4}, // one past end
	}
	for _, tc := range cases {
		got := toLineCol(idx, tc.off)
		if got.Line != tc.line || got.Col != tc.col {
			t.Fatalf("toLineCol(off=%d) = %d:%d, want %d:%d",
				tc.off, got.Line, got.Col, tc.line, tc.col)
		}
	}
}

func TestToLineColNoNewlines(t *testing.T) {
	got := toLineCol(buildLineIndex([]byte("abc")), 2)
	if got.Line != 1 || got.Col != 3 {
		t.Fatalf("toLineCol = %d:%d, want 1:3", got.Line, got.Col)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc\r\n"))
	if !changed {
		t.Fatal("expected change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("normalizeCRLF = %q", out)
	}

	out, changed = normalizeCRLF([]byte("plain\n"))
	if changed || string(out) != "plain\n" {
		t.Fatalf("untouched input changed: %q", out)
	}
}

func TestRemoveBOM(t *testing.T) {
	out, had := removeBOM([]byte{0xEF, 0xBB, 0xBF, 'x'})
	if !had || string(out) != "x" {
		t.Fatalf("removeBOM = %q, had=%v", out, had)
	}
	out, had = removeBOM([]byte("x"))
	if had || string(out) != "x" {
		t.Fatal("removeBOM must leave plain content alone")
	}
}

func TestFileSetLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.cpp")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFint x;\r\nint y;\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f := fs.Get(id)
	if string(f.Content) != "int x;\nint y;\n" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %v, want BOM and CRLF bits", f.Flags)
	}
	if got := f.GetLine(2); got != "int y;" {
		t.Fatalf("GetLine(2) = %q", got)
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("virt.cpp", []byte("one\ntwo\n"))

	start, end := fs.Resolve(Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %d:%d, want 2:1", start.Line, start.Col)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("end = %d:%d, want 2:4", end.Line, end.Col)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 5, End: 9}
	b := Span{File: 1, Start: 2, End: 7}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 9 {
		t.Fatalf("Cover = %v", got)
	}

	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatal("Cover across files must be a no-op")
	}
}
