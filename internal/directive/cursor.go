package directive

import (
	"fmt"

	"fortio.org/safecast"

	"diagtest/internal/source"
)

// Cursor is a byte position inside a fixture file.
type Cursor struct {
	File *source.File
	Off  uint32
}

// NewCursor creates a cursor at the start of file.
func NewCursor(f *source.File) Cursor {
	// fail early on absurd inputs instead of wrapping offsets
	if _, err := safecast.Conv[uint32](len(f.Content)); err != nil {
		panic(fmt.Errorf("file content overflow: %w", err))
	}
	return Cursor{File: f, Off: 0}
}

// EOF reports whether the cursor is past the last byte.
func (c *Cursor) EOF() bool {
	return c.Off >= uint32(len(c.File.Content)) //nolint:gosec // checked in NewCursor
}

// Peek returns the current byte, or 0 at EOF.
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.File.Content[c.Off]
}

// PeekAt returns the byte n positions ahead, or 0 past EOF.
func (c *Cursor) PeekAt(n uint32) byte {
	idx := c.Off + n
	if idx >= uint32(len(c.File.Content)) { //nolint:gosec
		return 0
	}
	return c.File.Content[idx]
}

// Bump advances one byte and returns it, or 0 at EOF.
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.File.Content[c.Off]
	c.Off++
	return b
}

// Mark remembers a position so a Span can be produced later.
type Mark uint32

func (c *Cursor) Mark() Mark {
	return Mark(c.Off)
}

// SpanFrom builds the span from a mark to the current position.
func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{File: c.File.ID, Start: uint32(m), End: c.Off}
}

// SpanHere builds an empty span at the current position.
func (c *Cursor) SpanHere() source.Span {
	return source.Span{File: c.File.ID, Start: c.Off, End: c.Off}
}

// Reset rewinds the cursor to a mark.
func (c *Cursor) Reset(m Mark) {
	c.Off = uint32(m)
}
