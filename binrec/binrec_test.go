package binrec

import (
	"bytes"
	"errors"
	"testing"
)

type pair struct {
	A uint16
	B uint32
}

func (p *pair) DecodeRecord(d *Decoder) error {
	return d.BigEndian(&p.A, &p.B).Finish(6)
}

func TestDecoderBigEndian(t *testing.T) {
	var (
		u8  uint8
		u16 uint16
		i16 int16
		u32 uint32
		arr [2]int16
	)
	data := []byte{0x7f, 0x12, 0x34, 0xff, 0xfe, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x80, 0x00}
	err := NewDecoder(data, 0).BigEndian(&u8, &u16, &i16, &u32, &arr).Finish(len(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u8 != 0x7f || u16 != 0x1234 || i16 != -2 || u32 != 0xdeadbeef {
		t.Fatalf("got u8=%#x u16=%#x i16=%d u32=%#x", u8, u16, i16, u32)
	}
	if arr != [2]int16{1, -0x8000} {
		t.Fatalf("got arr=%v", arr)
	}
}

func TestDecoderMagic(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		if err := NewDecoder([]byte("SN64"), 0).Magic("SN64").Finish(4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		err := NewDecoder([]byte("SSEQ"), 0x40).Magic("SN64").Finish(4)
		var magicErr *MagicMismatchError
		if !errors.As(err, &magicErr) {
			t.Fatalf("expected MagicMismatchError, got %v", err)
		}
		if magicErr.Expected != "SN64" || string(magicErr.Found) != "SSEQ" || magicErr.Offset != 0x40 {
			t.Fatalf("unexpected error fields: %+v", magicErr)
		}
	})
}

func TestDecoderSizeMismatch(t *testing.T) {
	var v uint16
	err := NewDecoder([]byte{1, 2, 3, 4}, 8).BigEndian(&v).Finish(4)
	var sizeErr *SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeMismatchError, got %v", err)
	}
	if sizeErr.Expected != 4 || sizeErr.Actual != 2 || sizeErr.Offset != 8 {
		t.Fatalf("unexpected error fields: %+v", sizeErr)
	}
}

func TestDecoderShortReadIsSticky(t *testing.T) {
	var a, b uint32
	d := NewDecoder([]byte{1, 2}, 0).BigEndian(&a)
	var short *ShortReadError
	if !errors.As(d.Err(), &short) {
		t.Fatalf("expected ShortReadError, got %v", d.Err())
	}
	// Further reads must not clear or replace the first error.
	if err := d.BigEndian(&b).Finish(8); err != d.Err() {
		t.Fatalf("sticky error replaced: %v", err)
	}
}

func TestEncoderMirrorsDecoder(t *testing.T) {
	in := []byte{'T', 'A', 'G', '!', 0x12, 0x34, 0xff, 0xfe, 0xaa}
	var (
		a uint16
		b int16
		r [1]byte
	)
	if err := NewDecoder(in, 0).Magic("TAG!").BigEndian(&a, &b, &r).Finish(len(in)); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := NewEncoder(len(in)).Magic("TAG!").BigEndian(a, b, r).Bytes()
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch:\n in=% x\nout=% x", in, out)
	}
}

func TestCursor(t *testing.T) {
	data := []byte{0, 1, 0, 0, 0, 2, 0, 3, 0, 0, 0, 4, 0xff}
	c := NewCursor(data)

	pairs, err := ReadArray[pair](c, 2, 6)
	if err != nil {
		t.Fatalf("ReadArray: %v", err)
	}
	if pairs[0] != (pair{1, 2}) || pairs[1] != (pair{3, 4}) {
		t.Fatalf("got %+v", pairs)
	}
	if c.Pos() != 12 {
		t.Fatalf("pos = %d, want 12", c.Pos())
	}

	if _, err := ReadArray[pair](c, 1, 6); err == nil {
		t.Fatalf("expected short read error")
	} else {
		var short *ShortReadError
		if !errors.As(err, &short) || short.Offset != 12 || short.Have != 1 {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := c.Seek(len(data)); err != nil {
		t.Fatalf("seek to end: %v", err)
	}
	if err := c.Seek(len(data) + 1); err == nil {
		t.Fatalf("expected seek past end to fail")
	}
}
