// Package sseq decodes the SSEQ music sequence archive: the entry table and, for
// every entry, its track headers and raw event streams.
package sseq

import (
	"bytes"
	"fmt"
	"log"

	"github.com/QEStudios/RomSoundConverter/binrec"
)

// A decoded SSEQ archive. Sequences[i] holds the tracks of Entries[i].
type Archive struct {
	Header    Header
	Entries   []Entry
	Sequences []Sequence

	// Offset immediately following the entry table. Entry offsets are relative to it.
	TrackTableBase int
}

// A Sequence is the decoded content of one entry.
type Sequence struct {
	Entry  Entry
	Tracks []Track
}

// A Track is a track header together with its event stream.
type Track struct {
	Header TrackHeader

	// Loop start parameters, present when Header.Loops() is true. Not interpreted.
	LoopParams []byte

	// The raw event stream, exactly Header.Size bytes.
	Events []byte

	// Absolute offset of the event stream within the archive.
	Offset int
}

// EntrySizeError is returned when the declared size of the entry table does not
// match the number of entries.
type EntrySizeError struct {
	Declared   uint32
	NumEntries uint32
}

func (e *EntrySizeError) Error() string {
	return fmt.Sprintf("entry table size is %d, expected %d for %d entries of %d bytes",
		e.Declared, int(e.NumEntries)*EntrySize, e.NumEntries, EntrySize)
}

// UnsupportedTrackLayoutError is returned when a multi-track entry contains a track
// that is not flagged as music.
type UnsupportedTrackLayoutError struct {
	Entry     int
	Track     int
	NumTracks int
	Flag      uint16
	Offset    int // Offset of the track header.
}

func (e *UnsupportedTrackLayoutError) Error() string {
	return fmt.Sprintf("entry %03d track %d at offset %#x: flag %#04x is not music but entry has %d tracks",
		e.Entry, e.Track, e.Offset, e.Flag, e.NumTracks)
}

type Parser struct {
	cursor *binrec.Cursor
	logger *log.Logger

	// Whether or not the parser has already been used.
	// Parsing can only be done once per Parser.
	used bool
}

// NewParser creates a new parser for the raw bytes of an SSEQ archive.
func NewParser(data []byte, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		cursor: binrec.NewCursor(data),
		logger: logger,
	}
}

// Parse decodes the whole archive. Any structural error aborts parsing.
func (p *Parser) Parse() (*Archive, error) {
	if p.used {
		return nil, fmt.Errorf("parser already used")
	}
	p.used = true

	c := p.cursor
	archive := &Archive{}

	if err := binrec.Read(c, HeaderSize, &archive.Header); err != nil {
		return nil, fmt.Errorf("sequence header: %w", err)
	}
	h := archive.Header

	var err error
	archive.Entries, err = binrec.ReadArray[Entry](c, int(h.NumEntries), EntrySize)
	if err != nil {
		return nil, fmt.Errorf("entry table: %w", err)
	}
	if int(h.EntrySize) != EntrySize*int(h.NumEntries) {
		return nil, &EntrySizeError{Declared: h.EntrySize, NumEntries: h.NumEntries}
	}

	p.logger.Printf("SSEQ: %d entries, entry table size %d", h.NumEntries, h.EntrySize)

	archive.TrackTableBase = c.Pos()
	archive.Sequences = make([]Sequence, len(archive.Entries))
	for i, entry := range archive.Entries {
		seq, err := p.parseSequence(archive.TrackTableBase, i, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %03d: %w", i, err)
		}
		archive.Sequences[i] = seq
	}

	return archive, nil
}

func (p *Parser) parseSequence(base, index int, entry Entry) (Sequence, error) {
	c := p.cursor
	seq := Sequence{Entry: entry, Tracks: make([]Track, entry.NumTracks)}

	if err := c.Seek(base + int(entry.Offset)); err != nil {
		return Sequence{}, err
	}

	for j := range seq.Tracks {
		track := &seq.Tracks[j]
		headerOffset := c.Pos()

		if err := binrec.Read(c, TrackHeaderSize, &track.Header); err != nil {
			return Sequence{}, fmt.Errorf("track %d header: %w", j, err)
		}
		if !track.Header.IsMusic() && entry.NumTracks > 1 {
			return Sequence{}, &UnsupportedTrackLayoutError{
				Entry:     index,
				Track:     j,
				NumTracks: int(entry.NumTracks),
				Flag:      track.Header.Flag,
				Offset:    headerOffset,
			}
		}

		if track.Header.Loops() {
			b, err := c.Bytes(LoopParamsSize)
			if err != nil {
				return Sequence{}, fmt.Errorf("track %d loop parameters: %w", j, err)
			}
			track.LoopParams = bytes.Clone(b)
		}

		track.Offset = c.Pos()
		b, err := c.Bytes(int(track.Header.Size))
		if err != nil {
			return Sequence{}, fmt.Errorf("track %d events: %w", j, err)
		}
		track.Events = bytes.Clone(b)
	}

	return seq, nil
}
