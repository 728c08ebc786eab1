package binrec

import "fmt"

// MagicMismatchError is returned when a record's literal tag does not match the expected one.
type MagicMismatchError struct {
	Expected string
	Found    []byte
	Offset   int // Absolute offset of the tag in the source stream.
}

func (e *MagicMismatchError) Error() string {
	return fmt.Sprintf("magic mismatch at offset %#x: expected %q, found %q", e.Offset, e.Expected, e.Found)
}

// SizeMismatchError is returned when the bytes consumed while decoding a record
// differ from the record's declared binary size.
type SizeMismatchError struct {
	Expected int
	Actual   int
	Offset   int // Absolute offset of the start of the record.
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("record at offset %#x: decoded %d bytes, declared size is %d", e.Offset, e.Actual, e.Expected)
}

// ShortReadError is returned when fewer bytes remain in the source than a read requires.
type ShortReadError struct {
	Offset int
	Want   int
	Have   int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read at offset %#x: need %d bytes, %d available", e.Offset, e.Want, e.Have)
}
