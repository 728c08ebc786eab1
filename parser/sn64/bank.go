package sn64

import "fmt"

// NoNote is passed to Resolve when no note has been played yet.
const NoNote = -1

// A fully decoded SN64 instrument bank. A Bank is never modified after Parse returns,
// so it can be shared between goroutines.
type Bank struct {
	Header     Header
	Patches    []Patch
	Subpatches []Subpatch

	// Sample playback metadata. Decoded for completeness, not used for MIDI conversion.
	Waves      []WaveTable
	LoopInfo   LoopInfo
	Loops      []LoopTable
	Predictors []PredictorTable

	// SplitIndex is the index of the first patch whose default subpatch is not an
	// instrument. Patches from SplitIndex onwards form the secondary bank.
	// It is 0 when HasSecondaryBank is false.
	SplitIndex       int
	HasSecondaryBank bool
}

// PatchRangeError is returned when a patch references subpatches outside of the table.
type PatchRangeError struct {
	Patch         int
	Offset        uint16
	Length        uint16
	NumSubpatches int
}

func (e *PatchRangeError) Error() string {
	return fmt.Sprintf("patch %d: subpatch range [%d, %d) outside of table with %d subpatches",
		e.Patch, e.Offset, int(e.Offset)+int(e.Length), e.NumSubpatches)
}

// PatchIndexError is returned when a patch id does not exist in the bank.
type PatchIndexError struct {
	ID         int
	NumPatches int
}

func (e *PatchIndexError) Error() string {
	return fmt.Sprintf("patch %d does not exist; bank only contains %d patches", e.ID, e.NumPatches)
}

// Patch returns the patch with the given id.
func (b *Bank) Patch(id int) (Patch, error) {
	if id < 0 || id >= len(b.Patches) {
		return Patch{}, &PatchIndexError{ID: id, NumPatches: len(b.Patches)}
	}
	return b.Patches[id], nil
}

// Resolve returns the subpatch of p that plays note. The first subpatch in table order
// whose range covers note wins. If none does, or note is negative, the patch's first
// subpatch is returned.
func (b *Bank) Resolve(p Patch, note int) Subpatch {
	if note >= 0 {
		for i := 0; i < int(p.Length); i++ {
			s := b.Subpatches[int(p.Offset)+i]
			if s.Covers(note) {
				return s
			}
		}
	}
	return b.Subpatches[p.Offset]
}

// Default returns the first subpatch of p.
func (b *Bank) Default(p Patch) Subpatch {
	return b.Resolve(p, NoNote)
}

// Program maps a raw program id onto a MIDI program number. Ids belonging to the
// secondary bank are renumbered to start from 0; the secondary bank itself is
// selected with a bank select message.
func (b *Bank) Program(id int) int {
	if id >= b.SplitIndex {
		return id - b.SplitIndex
	}
	return id
}

// validate checks that every patch references a valid subpatch range.
func (b *Bank) validate() error {
	for i, p := range b.Patches {
		end := int(p.Offset) + int(p.Length)
		if int(p.Offset) >= len(b.Subpatches) || end > len(b.Subpatches) {
			return &PatchRangeError{Patch: i, Offset: p.Offset, Length: p.Length, NumSubpatches: len(b.Subpatches)}
		}
	}
	return nil
}

// findSplit locates the first patch that belongs to the secondary bank.
func (b *Bank) findSplit() {
	for i, p := range b.Patches {
		if !b.Default(p).IsInstrument() {
			b.SplitIndex = i
			b.HasSecondaryBank = true
			return
		}
	}
}
