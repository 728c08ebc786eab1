package midifile

import "bytes"

// Channel message status bytes. The low nibble holds the channel.
const (
	statusNoteOn        = 0x90
	statusControlChange = 0xb0
	statusProgramChange = 0xc0
	statusPitchBend     = 0xe0
)

// Controller numbers.
const (
	ccBankSelect  = 0x00
	ccDataEntry   = 0x06
	ccVolume      = 0x07
	ccPan         = 0x0a
	ccDataEntryLo = 0x26
	ccSustain     = 0x40
	ccRPNLo       = 0x64
	ccRPNHi       = 0x65
)

// Meta events.
const (
	metaPrefix        = 0xff
	metaCuePoint      = 0x07
	metaEndOfTrack    = 0x2f
	metaTempo         = 0x51
	metaSequencerData = 0x7f
)

const (
	// PercussionChannel is the General MIDI drum channel. Tracks are never mapped onto it.
	PercussionChannel = 9

	pitchBendCenter = 0x2000
	pitchBendMax    = 0x3fff
	maxTempo        = 0xffffff // Tempo is a 24-bit value.

	// Label of the cue point written for OpUnknown0B events.
	unknownEventLabel = "UNKNOWN EVENT: 0x0B"
)

// TrackChannel maps a track index onto a MIDI channel, skipping the percussion channel.
func TrackChannel(track int) int {
	if track >= PercussionChannel {
		return track + 1
	}
	return track
}

// PitchBend converts the two operand bytes of a pitch bend event, a signed 16-bit
// little-endian bend, into a 14-bit MIDI pitch bend value.
func PitchBend(lo, hi byte) uint16 {
	bend := int(int16(uint16(lo)|uint16(hi)<<8)) + pitchBendCenter
	if bend > pitchBendMax {
		bend = pitchBendMax
	}
	if bend < 0 {
		bend = 0
	}
	return uint16(bend)
}

// Tempo returns the MIDI tempo (microseconds per quarter note) for bpm.
func Tempo(bpm uint16) uint32 {
	if bpm == 0 {
		return maxTempo
	}
	tempo := uint32(60_000_000 / uint32(bpm))
	if tempo > maxTempo {
		tempo = maxTempo
	}
	return tempo
}

// eventWriter writes events for a single channel into a track payload. It writes
// event bodies only; delta times are written by the caller.
type eventWriter struct {
	out     *bytes.Buffer
	channel byte
}

// data masks a value into a 7-bit MIDI data byte.
func data(v byte) byte {
	return v & 0x7f
}

func (w *eventWriter) controller(cc, value byte) {
	w.out.Write([]byte{statusControlChange | w.channel, cc, data(value)})
}

func (w *eventWriter) programChange(program byte) {
	w.out.Write([]byte{statusProgramChange | w.channel, data(program)})
}

func (w *eventWriter) noteOn(note, velocity byte) {
	w.out.Write([]byte{statusNoteOn | w.channel, data(note), data(velocity)})
}

// pitchBend writes a 14-bit bend value, least significant 7 bits first.
func (w *eventWriter) pitchBend(value uint16) {
	w.out.Write([]byte{statusPitchBend | w.channel, byte(value & 0x7f), byte(value>>7) & 0x7f})
}

// bendRange sets the pitch bend sensitivity to semitones through registered
// parameter 0, then deselects the parameter. Every message after the first is
// preceded by a zero delta time, and so is the event that follows.
func (w *eventWriter) bendRange(semitones byte) {
	w.controller(ccRPNHi, 0)
	w.out.WriteByte(0)
	w.controller(ccRPNLo, 0)
	w.out.WriteByte(0)
	w.controller(ccDataEntry, semitones)
	w.out.WriteByte(0)
	w.controller(ccDataEntryLo, 0)
	w.out.WriteByte(0)
	w.controller(ccRPNHi, 0x7f)
	w.out.WriteByte(0)
	w.controller(ccRPNLo, 0x7f)
	w.out.WriteByte(0)
}

func (w *eventWriter) meta(kind byte, payload []byte) {
	w.out.Write([]byte{metaPrefix, kind, byte(len(payload))})
	w.out.Write(payload)
}

func (w *eventWriter) tempo(tempo uint32) {
	w.meta(metaTempo, []byte{byte(tempo >> 16), byte(tempo >> 8), byte(tempo)})
}

func (w *eventWriter) endOfTrack() {
	w.meta(metaEndOfTrack, nil)
}

// loopMarker writes a sequencer specific meta event carrying raw loop bytes
// behind a zero manufacturer byte.
func (w *eventWriter) loopMarker(raw []byte) {
	w.meta(metaSequencerData, append([]byte{0}, raw...))
}

func (w *eventWriter) cuePoint(label string) {
	w.meta(metaCuePoint, []byte(label))
}
