// Package binrec reads and writes the fixed-size, big-endian records that make up
// the SN64 instrument bank and the SSEQ sequence archive.
//
// A Cursor walks a whole resource and hands out one record at a time as a Decoder.
// A Decoder reads the fields of that record in order and, once finished, checks that
// exactly the declared number of bytes were consumed. Errors are sticky: after the
// first failure every further call on a Decoder is a no-op and Finish reports the
// original error.
package binrec

import (
	"encoding/binary"
	"fmt"
)

// Record is implemented by every record type that can be decoded from a Decoder.
type Record interface {
	DecodeRecord(d *Decoder) error
}

// Decoder decodes the fields of a single record.
type Decoder struct {
	data []byte
	pos  int
	base int // Absolute offset of data[0] in the source stream, used in errors.
	err  error
}

// NewDecoder returns a Decoder over one record's bytes. base is the absolute offset of
// the record in its source stream and only affects error messages.
func NewDecoder(data []byte, base int) *Decoder {
	return &Decoder{data: data, base: base}
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Offset returns the absolute offset of the next unread byte.
func (d *Decoder) Offset() int {
	return d.base + d.pos
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.data)-d.pos {
		d.err = &ShortReadError{Offset: d.Offset(), Want: n, Have: len(d.data) - d.pos}
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

// Magic verifies that the next len(tag) bytes equal tag.
func (d *Decoder) Magic(tag string) *Decoder {
	offset := d.Offset()
	b := d.take(len(tag))
	if b == nil {
		return d
	}
	if string(b) != tag {
		d.err = &MagicMismatchError{Expected: tag, Found: append([]byte(nil), b...), Offset: offset}
	}
	return d
}

// BigEndian decodes each field in order. Every field must be a pointer to a
// fixed-size value accepted by encoding/binary (integers, bools, or arrays of them).
func (d *Decoder) BigEndian(fields ...any) *Decoder {
	for _, f := range fields {
		size := binary.Size(f)
		if size < 0 {
			panic(fmt.Sprintf("binrec: unsupported field type %T", f))
		}
		b := d.take(size)
		if b == nil {
			return d
		}
		if _, err := binary.Decode(b, binary.BigEndian, f); err != nil {
			d.err = fmt.Errorf("decode %T at offset %#x: %w", f, d.Offset()-size, err)
			return d
		}
	}
	return d
}

// Finish asserts that the record consumed exactly size bytes and returns the first
// error encountered while decoding it.
func (d *Decoder) Finish(size int) error {
	if d.err != nil {
		return d.err
	}
	if d.pos != size {
		return &SizeMismatchError{Expected: size, Actual: d.pos, Offset: d.base}
	}
	if len(d.data) != size {
		return &SizeMismatchError{Expected: size, Actual: len(d.data), Offset: d.base}
	}
	return nil
}

// Encoder is the write-side mirror of Decoder.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with room for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Magic appends a literal tag.
func (e *Encoder) Magic(tag string) *Encoder {
	e.buf = append(e.buf, tag...)
	return e
}

// BigEndian appends each field in big-endian order. Fields may be values or pointers.
func (e *Encoder) BigEndian(fields ...any) *Encoder {
	for _, f := range fields {
		var err error
		e.buf, err = binary.Append(e.buf, binary.BigEndian, f)
		if err != nil {
			panic(fmt.Sprintf("binrec: unsupported field type %T: %v", f, err))
		}
	}
	return e
}

// Raw appends b unchanged.
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Bytes returns the encoded record.
func (e *Encoder) Bytes() []byte {
	return e.buf
}
