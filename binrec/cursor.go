package binrec

import "fmt"

// Cursor is a read position over a whole resource.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current offset.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the total length of the resource.
func (c *Cursor) Len() int {
	return len(c.data)
}

// Seek moves the cursor to an absolute offset. Seeking to the very end is allowed.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("seek to offset %#x outside of %d byte resource", pos, len(c.data))
	}
	c.pos = pos
	return nil
}

// Bytes returns the next n bytes and advances past them.
// The returned slice aliases the resource.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || n > len(c.data)-c.pos {
		return nil, &ShortReadError{Offset: c.pos, Want: n, Have: len(c.data) - c.pos}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Record returns a Decoder over the next size bytes and advances past them.
func (c *Cursor) Record(size int) (*Decoder, error) {
	start := c.pos
	b, err := c.Bytes(size)
	if err != nil {
		return nil, err
	}
	return NewDecoder(b, start), nil
}

// Read decodes a single record of the given size into v.
func Read(c *Cursor, size int, v Record) error {
	d, err := c.Record(size)
	if err != nil {
		return err
	}
	return v.DecodeRecord(d)
}

// ReadArray decodes n consecutive records of the given size.
// Errors are annotated with the index of the failing record.
func ReadArray[T any, PT interface {
	*T
	Record
}](c *Cursor, n, size int) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		if err := Read(c, size, PT(&out[i])); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return out, nil
}
