// Package midifile converts SSEQ sequences into Standard MIDI Files.
package midifile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
)

const (
	headerChunkSize  = 14
	headerDataLength = 6
)

// A Song is one Standard MIDI File built from a single SSEQ entry.
type Song struct {
	Format  uint16   // Header format field.
	TimeDiv uint16   // Ticks per quarter note.
	Tracks  [][]byte // Complete MTrk chunks, in track order.
}

// BuildSong transcodes every track of seq. The header takes its format and time
// division from the last track: the format is the instrument flag of that track's
// default subpatch, the time division its timediv field.
func BuildSong(bank *sn64.Bank, seq sseq.Sequence) (*Song, error) {
	song := &Song{Tracks: make([][]byte, 0, len(seq.Tracks))}

	for j, track := range seq.Tracks {
		patch, err := bank.Patch(int(track.Header.PatchID))
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", j, err)
		}
		song.Format = uint16(bank.Default(patch).Instrument)
		song.TimeDiv = track.Header.TimeDiv

		chunk, err := TranscodeTrack(bank, track, j)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", j, err)
		}
		song.Tracks = append(song.Tracks, chunk)
	}

	return song, nil
}

// CalculateSize returns the size in bytes of the compiled file.
func (s *Song) CalculateSize() int {
	size := headerChunkSize
	for _, track := range s.Tracks {
		size += len(track)
	}
	return size
}

// Compile assembles the header chunk and the track chunks into a Standard MIDI File.
func (s *Song) Compile() ([]byte, error) {
	totalSize := s.CalculateSize()
	buffer := bytes.NewBuffer(make([]byte, 0, totalSize))

	buffer.WriteString("MThd")
	binary.Write(buffer, binary.BigEndian, uint32(headerDataLength))
	binary.Write(buffer, binary.BigEndian, s.Format)
	binary.Write(buffer, binary.BigEndian, uint16(len(s.Tracks)))
	binary.Write(buffer, binary.BigEndian, s.TimeDiv)

	for _, track := range s.Tracks {
		buffer.Write(track)
	}

	// Sanity check to make sure the output file is the expected size.
	if buffer.Len() != totalSize {
		return nil, fmt.Errorf("MIDI file size mismatch: got %d bytes, expected %d", buffer.Len(), totalSize)
	}
	return buffer.Bytes(), nil
}
