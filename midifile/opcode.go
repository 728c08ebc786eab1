package midifile

import "fmt"

// Opcode identifies an event in an SSEQ track's event stream.
type Opcode byte

const (
	OpProgramChange Opcode = 0x07
	OpPitchBend     Opcode = 0x09
	OpUnknown0B     Opcode = 0x0b // Purpose unknown; transcoded into a cue point marker.
	OpVolume        Opcode = 0x0c
	OpPan           Opcode = 0x0d
	OpSustain       Opcode = 0x0e
	OpNoteOn        Opcode = 0x11
	OpNoteOff       Opcode = 0x12
	OpGotoLoop      Opcode = 0x20
	OpEnd           Opcode = 0x22
	OpSetLoop       Opcode = 0x23
)

func (o Opcode) isValid() bool {
	switch o {
	case OpProgramChange, OpPitchBend, OpUnknown0B, OpVolume, OpPan, OpSustain,
		OpNoteOn, OpNoteOff, OpGotoLoop, OpEnd, OpSetLoop:
		return true
	default:
		return false
	}
}

// Size returns the number of bytes an event occupies in the event stream,
// counting the opcode byte itself, or 0 for an unknown opcode.
func (o Opcode) Size() int {
	switch o {
	case OpSetLoop, OpEnd:
		return 1
	case OpUnknown0B, OpVolume, OpPan, OpSustain, OpNoteOff:
		return 2
	case OpProgramChange, OpPitchBend, OpNoteOn, OpGotoLoop:
		return 3
	default:
		return 0
	}
}

func (o Opcode) String() string {
	switch o {
	case OpProgramChange:
		return "program change"
	case OpPitchBend:
		return "pitch bend"
	case OpUnknown0B:
		return "unknown 0x0b"
	case OpVolume:
		return "volume"
	case OpPan:
		return "pan"
	case OpSustain:
		return "sustain pedal"
	case OpNoteOn:
		return "play note"
	case OpNoteOff:
		return "stop note"
	case OpGotoLoop:
		return "goto loop"
	case OpEnd:
		return "end marker"
	case OpSetLoop:
		return "set loop"
	default:
		return fmt.Sprintf("opcode %#02x", byte(o))
	}
}
