package sseq

import "github.com/QEStudios/RomSoundConverter/binrec"

// Binary sizes of the records in an SSEQ archive, including reserved bytes.
const (
	HeaderSize      = 32
	EntrySize       = 16
	TrackHeaderSize = 20
	LoopParamsSize  = 4
)

// Magic is the tag at the start of every SSEQ archive.
const Magic = "SSEQ"

// FlagMusic is set in the flag of every track that belongs to a piece of music.
// Sound effects leave it clear.
const FlagMusic = 0x100

// The archive header.
type Header struct {
	GameID     uint32 // Always 2 in known archives.
	NumEntries uint32
	EntrySize  uint32 // Total size of the entry table; EntrySize * NumEntries.

	reserved0 [4]byte
	reserved1 [8]byte
	reserved2 [4]byte
}

func (h *Header) DecodeRecord(d *binrec.Decoder) error {
	return d.Magic(Magic).
		BigEndian(&h.GameID, &h.reserved0, &h.NumEntries, &h.reserved1, &h.EntrySize, &h.reserved2).
		Finish(HeaderSize)
}

func (h Header) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(HeaderSize).
		Magic(Magic).
		BigEndian(h.GameID, h.reserved0, h.NumEntries, h.reserved1, h.EntrySize, h.reserved2).
		Bytes(), nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	return h.DecodeRecord(binrec.NewDecoder(data, 0))
}

// An Entry describes one sequence: a song or a sound effect.
type Entry struct {
	NumTracks uint16
	Length    uint32 // Length of the entry's track data.
	Offset    uint32 // Offset of the entry's first track header, relative to the end of the entry table.

	reserved0 [2]byte
	reserved1 [4]byte
}

func (e *Entry) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&e.NumTracks, &e.reserved0, &e.Length, &e.Offset, &e.reserved1).Finish(EntrySize)
}

func (e Entry) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(EntrySize).BigEndian(e.NumTracks, e.reserved0, e.Length, e.Offset, e.reserved1).Bytes(), nil
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	return e.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A TrackHeader precedes every track's event stream.
type TrackHeader struct {
	Flag    uint16 // FlagMusic on music, usually 0 on sounds.
	PatchID uint16 // Patch played by the track; also its initial program.
	Volume  uint8  // Initial volume.
	Pan     uint8  // Initial pan.
	BPM     uint16
	TimeDiv uint16 // Ticks per quarter note.
	Loop    uint16 // Nonzero if the track loops.
	Size    uint16 // Size of the event stream in bytes.

	reserved0 [2]byte
	reserved1 [2]byte
	reserved2 [2]byte
}

// Loops reports whether the track has loop parameters before its event stream.
func (t TrackHeader) Loops() bool {
	return t.Loop != 0
}

// IsMusic reports whether the track is flagged as music.
func (t TrackHeader) IsMusic() bool {
	return t.Flag&FlagMusic != 0
}

func (t *TrackHeader) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(
		&t.Flag, &t.PatchID, &t.reserved0,
		&t.Volume, &t.Pan, &t.reserved1,
		&t.BPM, &t.TimeDiv, &t.Loop, &t.reserved2,
		&t.Size,
	).Finish(TrackHeaderSize)
}

func (t TrackHeader) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(TrackHeaderSize).BigEndian(
		t.Flag, t.PatchID, t.reserved0,
		t.Volume, t.Pan, t.reserved1,
		t.BPM, t.TimeDiv, t.Loop, t.reserved2,
		t.Size,
	).Bytes(), nil
}

func (t *TrackHeader) UnmarshalBinary(data []byte) error {
	return t.DecodeRecord(binrec.NewDecoder(data, 0))
}
