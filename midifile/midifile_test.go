package midifile_test

import (
	"bytes"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/QEStudios/RomSoundConverter/internal/romtest"
	"github.com/QEStudios/RomSoundConverter/midifile"
	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
	"github.com/davecgh/go-spew/spew"
	"gitlab.com/gomidi/midi/v2/smf"
)

var quiet = log.New(io.Discard, "", 0)

func parseBank(t *testing.T, b romtest.Bank) *sn64.Bank {
	t.Helper()
	bank, err := sn64.NewParser(b.Bytes(), quiet).Parse()
	if err != nil {
		t.Fatalf("parse bank: %v", err)
	}
	return bank
}

func parseArchive(t *testing.T, a romtest.Archive) *sseq.Archive {
	t.Helper()
	archive, err := sseq.NewParser(a.Bytes(), quiet).Parse()
	if err != nil {
		t.Fatalf("parse archive: %v", err)
	}
	return archive
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// singleInstrument is a bank with one patch playing one instrument over every note.
func singleInstrument() romtest.Bank {
	return romtest.Bank{
		Patches:    []sn64.Patch{{Offset: 0, Length: 1}},
		Subpatches: []sn64.Subpatch{romtest.Instrument(0, 127, 2)},
	}
}

// prologue0 is the prologue of a 120 BPM track on channel 0 playing program 0.
var prologue0 = []byte{
	0x00, 0xff, 0x51, 0x03, 0x07, 0xa1, 0x20,
	0x00, 0xc0, 0x00,
	0x00, 0xb0, 0x07, 0x64,
	0x00, 0xb0, 0x0a, 0x40,
}

// transcode runs a single music track through the converter and returns its MTrk payload.
func transcode(t *testing.T, bank *sn64.Bank, track romtest.Track, index int) ([]byte, error) {
	t.Helper()
	archive := parseArchive(t, romtest.Archive{Sequences: [][]romtest.Track{{track}}})
	chunk, err := midifile.TranscodeTrack(bank, archive.Sequences[0].Tracks[0], index)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk[:4], []byte("MTrk")) {
		t.Fatalf("chunk does not start with MTrk: % x", chunk[:4])
	}
	return chunk[8:], nil
}

func TestEndToEnd(t *testing.T) {
	bank := parseBank(t, singleInstrument())
	archive := parseArchive(t, romtest.Archive{Sequences: [][]romtest.Track{
		{romtest.MusicTrack(0, 0x00, 0x11, 0x3c, 0x64, 0x00, 0x22)},
	}})

	song, err := midifile.BuildSong(bank, archive.Sequences[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := song.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	want := join(
		[]byte("MThd"), []byte{0, 0, 0, 6, 0, 1, 0, 1, 0, 0x60},
		[]byte("MTrk"), []byte{0, 0, 0, 0x1a},
		prologue0,
		[]byte{0x00, 0x90, 0x3c, 0x64},
		[]byte{0x00, 0xff, 0x2f, 0x00},
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected file:\n got=% x\nwant=% x", got, want)
	}
	if song.CalculateSize() != len(want) {
		t.Fatalf("CalculateSize = %d, want %d", song.CalculateSize(), len(want))
	}
}

func TestOutputReadsBack(t *testing.T) {
	bank := parseBank(t, singleInstrument())
	var tracks []romtest.Track
	for i := 0; i < 11; i++ {
		tracks = append(tracks, romtest.MusicTrack(0, 0x00, 0x11, 0x3c, 0x64, 0x60, 0x12, 0x3c, 0x00, 0x22))
	}
	archive := parseArchive(t, romtest.Archive{Sequences: [][]romtest.Track{tracks}})

	song, err := midifile.BuildSong(bank, archive.Sequences[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := song.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(s.Tracks) != int(archive.Entries[0].NumTracks) {
		t.Fatalf("%d tracks, entry has %d", len(s.Tracks), archive.Entries[0].NumTracks)
	}
	if tf, ok := s.TimeFormat.(smf.MetricTicks); !ok || tf != 96 {
		t.Fatalf("unexpected time format %v", s.TimeFormat)
	}

	for i, track := range s.Tracks {
		wantChannel := uint8(midifile.TrackChannel(i))
		found := false
		for _, event := range track {
			var ch, key, vel uint8
			if event.Message.GetNoteOn(&ch, &key, &vel) && vel > 0 {
				found = true
				if ch != wantChannel || key != 0x3c || vel != 0x64 {
					t.Fatalf("track %d: note on ch=%d key=%d vel=%d", i, ch, key, vel)
				}
			}
		}
		if !found {
			t.Fatalf("track %d: no note on event:\n%s", i, spew.Sdump(track))
		}
	}
}

func TestTrackChannel(t *testing.T) {
	cases := map[int]int{0: 0, 8: 8, 9: 10, 14: 15}
	for track, want := range cases {
		if got := midifile.TrackChannel(track); got != want {
			t.Errorf("TrackChannel(%d) = %d, want %d", track, got, want)
		}
		if midifile.TrackChannel(track) == midifile.PercussionChannel {
			t.Errorf("track %d mapped onto the percussion channel", track)
		}
	}
}

func TestChannelOverflow(t *testing.T) {
	bank := parseBank(t, singleInstrument())
	if _, err := transcode(t, bank, romtest.MusicTrack(0, 0x00, 0x22), 15); err == nil {
		t.Fatalf("expected an error for track 15")
	}
}

func TestPitchBend(t *testing.T) {
	cases := []struct {
		lo, hi byte
		want   uint16
	}{
		{0x00, 0x00, 0x2000},
		{0x00, 0x10, 0x3000},
		{0xff, 0xff, 0x1fff},
		{0xff, 0x7f, 0x3fff},
		{0x00, 0x80, 0x0000},
		{0x00, 0xe0, 0x0000},
	}
	for _, c := range cases {
		if got := midifile.PitchBend(c.lo, c.hi); got != c.want {
			t.Errorf("PitchBend(%#02x, %#02x) = %#04x, want %#04x", c.lo, c.hi, got, c.want)
		}
	}

	for hi := 0; hi < 256; hi++ {
		for lo := 0; lo < 256; lo += 15 {
			if got := midifile.PitchBend(byte(lo), byte(hi)); got > 0x3fff {
				t.Fatalf("PitchBend(%#02x, %#02x) = %#04x out of range", lo, hi, got)
			}
		}
	}
}

func TestTempo(t *testing.T) {
	if got := midifile.Tempo(120); got != 500000 {
		t.Fatalf("Tempo(120) = %d", got)
	}
	if got := midifile.Tempo(1); got != 0xffffff {
		t.Fatalf("Tempo(1) = %#x, want clamped to 24 bits", got)
	}
}

func TestBendRange(t *testing.T) {
	bank := parseBank(t, romtest.Bank{
		Patches: []sn64.Patch{{Offset: 0, Length: 2}},
		Subpatches: []sn64.Subpatch{
			romtest.Instrument(0, 59, 2),
			romtest.Instrument(60, 127, 12),
		},
	})
	track := romtest.MusicTrack(0,
		0x00, 0x09, 0x00, 0x10, // bend with the default subpatch
		0x00, 0x11, 0x48, 0x64, // note 72 selects the second subpatch
		0x00, 0x09, 0x00, 0x00,
		0x00, 0x09, 0x00, 0x00, // same range, no RPN
		0x00, 0x22,
	)
	got, err := transcode(t, bank, track, 0)
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}

	rpn := func(semitones byte) []byte {
		return []byte{
			0xb0, 0x65, 0x00, 0x00,
			0xb0, 0x64, 0x00, 0x00,
			0xb0, 0x06, semitones, 0x00,
			0xb0, 0x26, 0x00, 0x00,
			0xb0, 0x65, 0x7f, 0x00,
			0xb0, 0x64, 0x7f, 0x00,
		}
	}
	want := join(
		prologue0,
		[]byte{0x00}, rpn(2), []byte{0xe0, 0x00, 0x60},
		[]byte{0x00, 0x90, 0x48, 0x64},
		[]byte{0x00}, rpn(12), []byte{0xe0, 0x00, 0x40},
		[]byte{0x00, 0xe0, 0x00, 0x40},
		[]byte{0x00, 0xff, 0x2f, 0x00},
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected payload:\n got=% x\nwant=% x", got, want)
	}
}

func TestSecondaryBank(t *testing.T) {
	bank := parseBank(t, romtest.Bank{
		Patches: []sn64.Patch{
			{Offset: 0, Length: 1},
			{Offset: 1, Length: 1},
			{Offset: 2, Length: 1},
		},
		Subpatches: []sn64.Subpatch{
			romtest.Instrument(0, 127, 0),
			romtest.Instrument(0, 127, 0),
			romtest.Sound(),
		},
	})
	track := romtest.MusicTrack(2,
		0x00, 0x09, 0x00, 0x00, // sounds never get a bend range
		0x00, 0x07, 0x01, 0x00,
		0x00, 0x22,
	)
	archive := parseArchive(t, romtest.Archive{Sequences: [][]romtest.Track{{track}}})
	song, err := midifile.BuildSong(bank, archive.Sequences[0])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if song.Format != 0 {
		t.Fatalf("format = %d, want 0 for a sound patch", song.Format)
	}

	want := join(
		[]byte{0x00, 0xff, 0x51, 0x03, 0x07, 0xa1, 0x20},
		[]byte{0x00, 0xb0, 0x00, 0x01},
		[]byte{0x00, 0xc0, 0x00},
		[]byte{0x00, 0xb0, 0x07, 0x64},
		[]byte{0x00, 0xb0, 0x0a, 0x40},
		[]byte{0x00, 0xe0, 0x00, 0x40},
		[]byte{0x00, 0xc0, 0x01},
		[]byte{0x00, 0xff, 0x2f, 0x00},
	)
	if got := song.Tracks[0][8:]; !bytes.Equal(got, want) {
		t.Fatalf("unexpected payload:\n got=% x\nwant=% x", got, want)
	}
}

func TestMarkers(t *testing.T) {
	bank := parseBank(t, singleInstrument())
	track := romtest.MusicTrack(0,
		0x00, 0x23,
		0x81, 0x00, 0x0b, 0x05,
		0x00, 0x0e, 0x7f,
		0x00, 0x20, 0x01, 0x02,
		0x00, 0x22,
	)
	got, err := transcode(t, bank, track, 0)
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}

	want := join(
		prologue0,
		[]byte{0x00, 0xff, 0x7f, 0x02, 0x00, 0x23},
		[]byte{0x81, 0x00, 0xff, 0x07, 0x13}, []byte("UNKNOWN EVENT: 0x0B"),
		[]byte{0x00, 0xb0, 0x40, 0x7f},
		[]byte{0x00, 0xff, 0x7f, 0x04, 0x00, 0x20, 0x01, 0x02},
		[]byte{0x00, 0xff, 0x2f, 0x00},
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected payload:\n got=% x\nwant=% x", got, want)
	}
}

func TestChannelMessagesUseTrackChannel(t *testing.T) {
	bank := parseBank(t, singleInstrument())
	got, err := transcode(t, bank, romtest.MusicTrack(0,
		0x00, 0x0c, 0x50,
		0x00, 0x0d, 0x20,
		0x00, 0x11, 0x3c, 0x64,
		0x00, 0x12, 0x3c,
		0x00, 0x22,
	), 9)
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}

	// No tempo outside of channel 0.
	want := join(
		[]byte{0x00, 0xca, 0x00},
		[]byte{0x00, 0xba, 0x07, 0x64},
		[]byte{0x00, 0xba, 0x0a, 0x40},
		[]byte{0x00, 0xba, 0x07, 0x50},
		[]byte{0x00, 0xba, 0x0a, 0x20},
		[]byte{0x00, 0x9a, 0x3c, 0x64},
		[]byte{0x00, 0x9a, 0x3c, 0x00},
		[]byte{0x00, 0xff, 0x2f, 0x00},
	)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected payload:\n got=% x\nwant=% x", got, want)
	}
}

func TestTranscodeErrors(t *testing.T) {
	bank := parseBank(t, singleInstrument())

	t.Run("unknown opcode", func(t *testing.T) {
		_, err := transcode(t, bank, romtest.MusicTrack(0, 0x00, 0x99, 0x00, 0x22), 0)
		var opErr *midifile.UnknownOpcodeError
		if !errors.As(err, &opErr) {
			t.Fatalf("expected UnknownOpcodeError, got %v", err)
		}
		if opErr.Opcode != 0x99 || opErr.Offset != 1 {
			t.Fatalf("unexpected error: %+v", opErr)
		}
	})

	t.Run("truncated operands", func(t *testing.T) {
		_, err := transcode(t, bank, romtest.MusicTrack(0, 0x00, 0x11, 0x3c), 0)
		var truncErr *midifile.TruncatedEventStreamError
		if !errors.As(err, &truncErr) {
			t.Fatalf("expected TruncatedEventStreamError, got %v", err)
		}
		if truncErr.Size != 3 {
			t.Fatalf("unexpected error: %+v", truncErr)
		}
	})

	t.Run("missing end marker", func(t *testing.T) {
		_, err := transcode(t, bank, romtest.MusicTrack(0, 0x00, 0x11, 0x3c, 0x64), 0)
		var truncErr *midifile.TruncatedEventStreamError
		if !errors.As(err, &truncErr) {
			t.Fatalf("expected TruncatedEventStreamError, got %v", err)
		}
		if truncErr.Offset != 4 {
			t.Fatalf("unexpected error: %+v", truncErr)
		}
	})

	t.Run("unterminated delta time", func(t *testing.T) {
		_, err := transcode(t, bank, romtest.MusicTrack(0, 0x81, 0x80), 0)
		var truncErr *midifile.TruncatedEventStreamError
		if !errors.As(err, &truncErr) {
			t.Fatalf("expected TruncatedEventStreamError, got %v", err)
		}
	})

	t.Run("zero tempo", func(t *testing.T) {
		track := romtest.MusicTrack(0, 0x00, 0x22)
		track.Header.BPM = 0
		_, err := transcode(t, bank, track, 0)
		var tempoErr *midifile.InvalidTempoError
		if !errors.As(err, &tempoErr) {
			t.Fatalf("expected InvalidTempoError, got %v", err)
		}

		// Only the first track carries the tempo.
		if _, err := transcode(t, bank, track, 1); err != nil {
			t.Fatalf("track 1: %v", err)
		}
	})

	t.Run("missing patch", func(t *testing.T) {
		_, err := transcode(t, bank, romtest.MusicTrack(4, 0x00, 0x22), 0)
		var patchErr *sn64.PatchIndexError
		if !errors.As(err, &patchErr) {
			t.Fatalf("expected PatchIndexError, got %v", err)
		}
	})
}

func TestOpcodes(t *testing.T) {
	sizes := map[midifile.Opcode]int{
		midifile.OpProgramChange: 3,
		midifile.OpPitchBend:     3,
		midifile.OpUnknown0B:     2,
		midifile.OpVolume:        2,
		midifile.OpPan:           2,
		midifile.OpSustain:       2,
		midifile.OpNoteOn:        3,
		midifile.OpNoteOff:       2,
		midifile.OpGotoLoop:      3,
		midifile.OpEnd:           1,
		midifile.OpSetLoop:       1,
		midifile.Opcode(0x99):    0,
	}
	for op, want := range sizes {
		if got := op.Size(); got != want {
			t.Errorf("%v: size %d, want %d", op, got, want)
		}
	}
}
