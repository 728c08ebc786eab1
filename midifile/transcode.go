package midifile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
)

// UnknownOpcodeError is returned when an event stream contains an opcode outside of
// the known set.
type UnknownOpcodeError struct {
	Opcode Opcode
	Offset int // Offset of the opcode within the event stream.
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown event %#02x at offset %d", byte(e.Opcode), e.Offset)
}

// TruncatedEventStreamError is returned when an event stream ends before its end marker.
type TruncatedEventStreamError struct {
	Offset int // Offset of the read that ran past the end.
	Size   int // Size of the event stream.
}

func (e *TruncatedEventStreamError) Error() string {
	return fmt.Sprintf("event stream of %d bytes ends at offset %d before the end marker", e.Size, e.Offset)
}

// InvalidTempoError is returned when the first track of a sequence has a tempo of 0 BPM.
type InvalidTempoError struct {
	BPM uint16
}

func (e *InvalidTempoError) Error() string {
	return fmt.Sprintf("invalid tempo of %d BPM", e.BPM)
}

// The states of the event stream transcoder.
type state int

const (
	stateEmitPrologue state = iota
	stateReadDeltaTime
	stateReadOpcode
	stateDispatchEvent
	stateTerminal
)

// transcoder converts the event stream of one track into the payload of an MTrk chunk.
type transcoder struct {
	bank  *sn64.Bank
	patch sn64.Patch
	track sseq.TrackHeader

	in  []byte
	pos int

	out bytes.Buffer
	w   eventWriter

	op        Opcode        // Opcode being dispatched.
	active    sn64.Subpatch // Subpatch of the note currently sounding.
	bendRange byte          // Last pitch bend range sent.
	lastNote  int
}

// TranscodeTrack converts one track into a complete MTrk chunk. index is the track's
// position within its sequence and selects the MIDI channel.
func TranscodeTrack(bank *sn64.Bank, track sseq.Track, index int) ([]byte, error) {
	channel := TrackChannel(index)
	if channel > 0x0f {
		return nil, fmt.Errorf("track %d: no MIDI channel left", index)
	}
	patch, err := bank.Patch(int(track.Header.PatchID))
	if err != nil {
		return nil, err
	}

	t := &transcoder{
		bank:     bank,
		patch:    patch,
		track:    track.Header,
		in:       track.Events,
		active:   bank.Default(patch),
		lastNote: sn64.NoNote,
	}
	t.w = eventWriter{out: &t.out, channel: byte(channel)}

	if err := t.run(); err != nil {
		return nil, err
	}
	return trackChunk(t.out.Bytes()), nil
}

// trackChunk wraps a track payload in an MTrk chunk.
func trackChunk(payload []byte) []byte {
	chunk := make([]byte, 0, 8+len(payload))
	chunk = append(chunk, "MTrk"...)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	return append(chunk, payload...)
}

func (t *transcoder) run() error {
	st := stateEmitPrologue
	for st != stateTerminal {
		switch st {
		case stateEmitPrologue:
			if err := t.prologue(); err != nil {
				return err
			}
			st = stateReadDeltaTime

		case stateReadDeltaTime:
			if err := t.copyDeltaTime(); err != nil {
				return err
			}
			st = stateReadOpcode

		case stateReadOpcode:
			offset := t.pos
			b, err := t.next()
			if err != nil {
				return err
			}
			t.op = Opcode(b)
			if !t.op.isValid() {
				return &UnknownOpcodeError{Opcode: t.op, Offset: offset}
			}
			if t.op == OpEnd {
				t.w.endOfTrack()
				st = stateTerminal
				continue
			}
			st = stateDispatchEvent

		case stateDispatchEvent:
			if err := t.dispatch(); err != nil {
				return err
			}
			// Pitch bend ranges depend on the subpatch that is actually sounding.
			t.active = t.bank.Resolve(t.patch, t.lastNote)
			st = stateReadDeltaTime
		}
	}
	return nil
}

// next consumes one byte of the event stream.
func (t *transcoder) next() (byte, error) {
	if t.pos >= len(t.in) {
		return 0, &TruncatedEventStreamError{Offset: t.pos, Size: len(t.in)}
	}
	b := t.in[t.pos]
	t.pos++
	return b, nil
}

// operands consumes the bytes that follow the current opcode.
func (t *transcoder) operands() ([]byte, error) {
	n := t.op.Size() - 1
	if n > len(t.in)-t.pos {
		return nil, &TruncatedEventStreamError{Offset: len(t.in), Size: len(t.in)}
	}
	b := t.in[t.pos : t.pos+n]
	t.pos += n
	return b, nil
}

// copyDeltaTime copies a variable-length delta time unchanged. SSEQ and MIDI share the
// same encoding: continuation bytes have the high bit set.
func (t *transcoder) copyDeltaTime() error {
	for {
		b, err := t.next()
		if err != nil {
			return err
		}
		t.out.WriteByte(b)
		if b&0x80 == 0 {
			return nil
		}
	}
}

// prologue sets up tempo, bank, program, volume and pan before the first event.
func (t *transcoder) prologue() error {
	if t.w.channel == 0 {
		if t.track.BPM == 0 {
			return &InvalidTempoError{BPM: t.track.BPM}
		}
		t.out.WriteByte(0)
		t.w.tempo(Tempo(t.track.BPM))
	}

	if !t.active.IsInstrument() {
		t.out.WriteByte(0)
		t.w.controller(ccBankSelect, 1)
	}

	t.out.WriteByte(0)
	t.w.programChange(byte(t.bank.Program(int(t.track.PatchID))))
	t.out.WriteByte(0)
	t.w.controller(ccVolume, t.track.Volume)
	t.out.WriteByte(0)
	t.w.controller(ccPan, t.track.Pan)
	return nil
}

// dispatch writes the MIDI event for the current opcode. The delta time preceding it
// has already been written.
func (t *transcoder) dispatch() error {
	args, err := t.operands()
	if err != nil {
		return err
	}

	switch t.op {
	case OpProgramChange:
		// The second operand byte is padding.
		t.w.programChange(byte(t.bank.Program(int(args[0]))))

	case OpPitchBend:
		if t.active.IsInstrument() && t.active.PitchWheelRangeHigh != t.bendRange {
			t.bendRange = t.active.PitchWheelRangeHigh
			t.w.bendRange(t.bendRange)
		}
		t.w.pitchBend(PitchBend(args[0], args[1]))

	case OpUnknown0B:
		t.w.cuePoint(unknownEventLabel)

	case OpVolume:
		t.w.controller(ccVolume, args[0])

	case OpPan:
		t.w.controller(ccPan, args[0])

	case OpSustain:
		t.w.controller(ccSustain, args[0])

	case OpNoteOn:
		t.w.noteOn(args[0], args[1])
		t.lastNote = int(args[0])

	case OpNoteOff:
		t.w.noteOn(args[0], 0)

	case OpGotoLoop, OpSetLoop:
		// Loop markers carry the raw event bytes, opcode included.
		raw := append([]byte{byte(t.op)}, args...)
		t.w.loopMarker(raw)

	default:
		panic(fmt.Sprintf("unhandled opcode %v", t.op))
	}
	return nil
}
