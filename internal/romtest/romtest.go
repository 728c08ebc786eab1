// Package romtest builds synthetic SN64 banks and SSEQ archives for tests.
package romtest

import (
	"encoding"

	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
)

func appendRecord(b []byte, r encoding.BinaryMarshaler) []byte {
	data, err := r.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return append(b, data...)
}

// Bank describes the tables of a synthetic instrument bank.
type Bank struct {
	Patches    []sn64.Patch
	Subpatches []sn64.Subpatch
	Waves      []sn64.WaveTable
	Loops      []sn64.LoopTable

	// One predictor table per wave. Missing tables are written as zeros.
	Predictors []sn64.PredictorTable
}

// Header returns the bank header matching the tables.
func (b Bank) Header() sn64.Header {
	return sn64.Header{
		GameID:        2,
		NumInst:       uint32(len(b.Patches)),
		NumPatches:    uint16(len(b.Patches)),
		PatchSize:     sn64.PatchSize,
		NumSubpatches: uint16(len(b.Subpatches)),
		SubpatchSize:  sn64.SubpatchSize,
		NumSounds:     uint16(len(b.Waves)),
		SoundSize:     sn64.WaveTableSize,
	}
}

// Bytes encodes the bank in SN64 layout.
func (b Bank) Bytes() []byte {
	gap := make([]byte, 4)

	out := appendRecord(nil, b.Header())
	for _, p := range b.Patches {
		out = appendRecord(out, p)
	}
	out = append(out, gap...)
	for _, s := range b.Subpatches {
		out = appendRecord(out, s)
	}
	out = append(out, gap...)
	for _, w := range b.Waves {
		out = appendRecord(out, w)
	}
	out = appendRecord(out, sn64.LoopInfo{NumSounds: uint16(len(b.Waves)), NumLoops: uint16(len(b.Loops))})
	for _, l := range b.Loops {
		out = appendRecord(out, l)
	}
	for i := range b.Waves {
		var p sn64.PredictorTable
		if i < len(b.Predictors) {
			p = b.Predictors[i]
		}
		out = appendRecord(out, p)
	}
	return out
}

// Instrument returns a melodic subpatch covering notes lo..hi.
func Instrument(lo, hi, bendRange uint8) sn64.Subpatch {
	return sn64.Subpatch{
		Instrument:          1,
		MinNote:             lo,
		MaxNote:             hi,
		RootKey:             60,
		Pan:                 64,
		PitchWheelRangeHigh: bendRange,
	}
}

// Sound returns a secondary bank subpatch covering every note.
func Sound() sn64.Subpatch {
	return sn64.Subpatch{MinNote: 0, MaxNote: 127, RootKey: 60, Pan: 64}
}

// Track is one track of a synthetic sequence. Header.Size is filled in from Events.
type Track struct {
	Header     sseq.TrackHeader
	LoopParams [4]byte // Written when Header.Loop is nonzero.
	Events     []byte
}

// MusicTrack returns a music track playing patch at 120 BPM with 96 ticks per quarter note.
func MusicTrack(patch uint16, events ...byte) Track {
	return Track{
		Header: sseq.TrackHeader{
			Flag:    sseq.FlagMusic,
			PatchID: patch,
			Volume:  100,
			Pan:     64,
			BPM:     120,
			TimeDiv: 96,
		},
		Events: events,
	}
}

// Archive describes a synthetic sequence archive; every element of Sequences is one entry.
type Archive struct {
	Sequences [][]Track
}

// Bytes encodes the archive in SSEQ layout, with track data laid out in entry order.
func (a Archive) Bytes() []byte {
	var (
		entries []sseq.Entry
		data    []byte
	)
	for _, tracks := range a.Sequences {
		start := len(data)
		for _, t := range tracks {
			h := t.Header
			h.Size = uint16(len(t.Events))
			data = appendRecord(data, h)
			if h.Loops() {
				data = append(data, t.LoopParams[:]...)
			}
			data = append(data, t.Events...)
		}
		entries = append(entries, sseq.Entry{
			NumTracks: uint16(len(tracks)),
			Length:    uint32(len(data) - start),
			Offset:    uint32(start),
		})
	}

	out := appendRecord(nil, sseq.Header{
		GameID:     2,
		NumEntries: uint32(len(entries)),
		EntrySize:  uint32(len(entries) * sseq.EntrySize),
	})
	for _, e := range entries {
		out = appendRecord(out, e)
	}
	return append(out, data...)
}
