package sn64

import "github.com/QEStudios/RomSoundConverter/binrec"

// Binary sizes of the records in an SN64 bank, including reserved bytes.
const (
	HeaderSize         = 56
	PatchSize          = 4
	SubpatchSize       = 20
	WaveTableSize      = 12
	LoopInfoSize       = 8
	LoopTableSize      = 48
	PredictorTableSize = 264
)

// Magic is the tag at the start of every SN64 bank.
const Magic = "SN64"

// The bank header.
type Header struct {
	GameID        uint32 // Always 2 in known banks.
	Len1          uint32 // Length of the file minus the header size.
	NumInst       uint32 // Number of instruments (31 in known banks).
	NumPatches    uint16
	PatchSize     uint16 // Declared size of a patch record.
	NumSubpatches uint16
	SubpatchSize  uint16 // Declared size of a subpatch record.
	NumSounds     uint16
	SoundSize     uint16 // Declared size of a wave table record.

	reserved0 [16]byte // Includes the version id (always 100), unused by the game.
	reserved1 [4]byte
	reserved2 [8]byte
}

func (h *Header) DecodeRecord(d *binrec.Decoder) error {
	return d.Magic(Magic).
		BigEndian(&h.GameID, &h.reserved0, &h.Len1, &h.reserved1).
		BigEndian(&h.NumInst,
			&h.NumPatches, &h.PatchSize,
			&h.NumSubpatches, &h.SubpatchSize,
			&h.NumSounds, &h.SoundSize).
		BigEndian(&h.reserved2).
		Finish(HeaderSize)
}

func (h Header) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(HeaderSize).
		Magic(Magic).
		BigEndian(h.GameID, h.reserved0, h.Len1, h.reserved1).
		BigEndian(h.NumInst,
			h.NumPatches, h.PatchSize,
			h.NumSubpatches, h.SubpatchSize,
			h.NumSounds, h.SoundSize).
		BigEndian(h.reserved2).
		Bytes(), nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	return h.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A Patch is an instrument slot referencing a contiguous run of subpatches.
type Patch struct {
	Length uint16 // Number of subpatches.
	Offset uint16 // Index of the first subpatch.
}

func (p *Patch) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&p.Length, &p.Offset).Finish(PatchSize)
}

func (p Patch) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(PatchSize).BigEndian(p.Length, p.Offset).Bytes(), nil
}

func (p *Patch) UnmarshalBinary(data []byte) error {
	return p.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A Subpatch is the timbre used for a range of notes within a patch.
type Subpatch struct {
	UnityPitch          uint8
	Attenuation         uint8
	Pan                 uint8
	Instrument          uint8 // Nonzero for melodic instruments, zero for secondary bank sounds.
	RootKey             uint8
	Detune              uint8
	MinNote             uint8 // Inclusive.
	MaxNote             uint8 // Inclusive.
	PitchWheelRangeLow  uint8
	PitchWheelRangeHigh uint8
	SoundID             uint16
	AttackTime          int16 // Fade in.
	DecayTime           int16 // Fade out.

	unknown [2]byte
	volume  [2]byte // Unknown purpose, unused by the game.
}

// IsInstrument reports whether the subpatch belongs to the melodic instrument bank.
func (s Subpatch) IsInstrument() bool {
	return s.Instrument != 0
}

// Covers reports whether note falls within the subpatch's note range.
func (s Subpatch) Covers(note int) bool {
	return note >= int(s.MinNote) && note <= int(s.MaxNote)
}

func (s *Subpatch) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(
		&s.UnityPitch, &s.Attenuation, &s.Pan, &s.Instrument,
		&s.RootKey, &s.Detune, &s.MinNote, &s.MaxNote,
		&s.PitchWheelRangeLow, &s.PitchWheelRangeHigh,
		&s.SoundID, &s.AttackTime, &s.unknown, &s.DecayTime, &s.volume,
	).Finish(SubpatchSize)
}

func (s Subpatch) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(SubpatchSize).BigEndian(
		s.UnityPitch, s.Attenuation, s.Pan, s.Instrument,
		s.RootKey, s.Detune, s.MinNote, s.MaxNote,
		s.PitchWheelRangeLow, s.PitchWheelRangeHigh,
		s.SoundID, s.AttackTime, s.unknown, s.DecayTime, s.volume,
	).Bytes(), nil
}

func (s *Subpatch) UnmarshalBinary(data []byte) error {
	return s.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A WaveTable entry locates a sound's sample data in the ROM.
type WaveTable struct {
	Start  uint16
	Size   uint16
	Pitch  uint16 // Pitch correction.
	LoopID uint16 // Index into the loop table.

	pad0 [2]byte
	pad1 [2]byte
}

func (w *WaveTable) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&w.Start, &w.Size, &w.pad0, &w.Pitch, &w.LoopID, &w.pad1).Finish(WaveTableSize)
}

func (w WaveTable) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(WaveTableSize).BigEndian(w.Start, w.Size, w.pad0, w.Pitch, w.LoopID, w.pad1).Bytes(), nil
}

func (w *WaveTable) UnmarshalBinary(data []byte) error {
	return w.DecodeRecord(binrec.NewDecoder(data, 0))
}

// LoopInfo precedes the loop table.
type LoopInfo struct {
	NumSounds uint16
	NumLoops  uint16

	pad0       [2]byte
	numSounds2 [2]byte // Repeats NumSounds in known banks.
}

func (l *LoopInfo) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&l.NumSounds, &l.pad0, &l.NumLoops, &l.numSounds2).Finish(LoopInfoSize)
}

func (l LoopInfo) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(LoopInfoSize).BigEndian(l.NumSounds, l.pad0, l.NumLoops, l.numSounds2).Bytes(), nil
}

func (l *LoopInfo) UnmarshalBinary(data []byte) error {
	return l.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A LoopTable entry holds the loop points of a sample.
type LoopTable struct {
	LoopStart uint32
	LoopEnd   uint32

	reserved [40]byte // Garbage in the ROM, overwritten at runtime.
}

func (l *LoopTable) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&l.LoopStart, &l.LoopEnd, &l.reserved).Finish(LoopTableSize)
}

func (l LoopTable) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(LoopTableSize).BigEndian(l.LoopStart, l.LoopEnd, l.reserved).Bytes(), nil
}

func (l *LoopTable) UnmarshalBinary(data []byte) error {
	return l.DecodeRecord(binrec.NewDecoder(data, 0))
}

// A PredictorTable is the ADPCM codebook of a sound.
type PredictorTable struct {
	Order         uint32
	NumPredictors uint32
	Predictors    [128]int16
}

func (p *PredictorTable) DecodeRecord(d *binrec.Decoder) error {
	return d.BigEndian(&p.Order, &p.NumPredictors, &p.Predictors).Finish(PredictorTableSize)
}

func (p PredictorTable) MarshalBinary() ([]byte, error) {
	return binrec.NewEncoder(PredictorTableSize).BigEndian(p.Order, p.NumPredictors, p.Predictors).Bytes(), nil
}

func (p *PredictorTable) UnmarshalBinary(data []byte) error {
	return p.DecodeRecord(binrec.NewDecoder(data, 0))
}
