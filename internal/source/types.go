package source

type (
	// FileID uniquely identifies a fixture file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about how a file was loaded.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single fixture file.
// Content is immutable once loaded; diagnostics and test-case bodies
// reference it by byte offset.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Flags   FileFlags
}

// LineCol is a human-readable position in a file, both 1-based.
type LineCol struct {
	Line uint32
	Col  uint32
}
