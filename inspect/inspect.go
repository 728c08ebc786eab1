// Package inspect reads converted MIDI files back and describes their contents.
package inspect

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TrackSummary counts the events of one track.
type TrackSummary struct {
	Events      int
	Notes       int
	Controllers int
	Programs    int
	PitchBends  int
	Markers     int     // Loop markers and cue points.
	Length      uint32  // Ticks up to the last event.
	Channels    []uint8 // Channels used, in ascending order.
	BPM         float64 // 0 when the track carries no tempo.
}

// Summary describes a whole MIDI file.
type Summary struct {
	Format uint16
	Ticks  uint16 // Ticks per quarter note.
	Tracks []TrackSummary
}

// Note is a note of a track with its absolute start and end in ticks.
type Note struct {
	Track    int
	Channel  uint8
	Key      uint8
	Velocity uint8
	Start    uint32
	End      uint32
}

// Read parses a MIDI file.
func Read(data []byte) (*smf.SMF, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading MIDI file: %w", err)
	}
	return s, nil
}

// Ticks returns the ticks per quarter note of s, or 0 for SMPTE time.
func Ticks(s *smf.SMF) uint16 {
	if tf, ok := s.TimeFormat.(smf.MetricTicks); ok {
		return uint16(tf)
	}
	return 0
}

// isMarker reports whether msg is a sequencer specific meta event or a cue point.
func isMarker(msg smf.Message) bool {
	return len(msg) > 1 && msg[0] == 0xff && (msg[1] == 0x7f || msg[1] == 0x07)
}

// Summarize counts the events of every track of data.
func Summarize(data []byte) (*Summary, error) {
	s, err := Read(data)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Format: s.Format(), Ticks: Ticks(s)}
	for _, track := range s.Tracks {
		var ts TrackSummary
		channels := make(map[uint8]bool)

		for _, event := range track {
			ts.Events++
			ts.Length += event.Delta
			msg := event.Message

			var ch, key, vel uint8
			var rel int16
			var abs uint16
			var bpm float64
			switch {
			case msg.GetNoteOn(&ch, &key, &vel):
				if vel > 0 {
					ts.Notes++
				}
				channels[ch] = true
			case msg.GetNoteOff(&ch, &key, &vel):
				channels[ch] = true
			case msg.GetControlChange(&ch, &key, &vel):
				ts.Controllers++
				channels[ch] = true
			case msg.GetProgramChange(&ch, &vel):
				ts.Programs++
				channels[ch] = true
			case midi.Message(msg).GetPitchBend(&ch, &rel, &abs):
				ts.PitchBends++
				channels[ch] = true
			case msg.GetMetaTempo(&bpm):
				ts.BPM = bpm
			case isMarker(msg):
				ts.Markers++
			}
		}

		for ch := range channels {
			ts.Channels = append(ts.Channels, ch)
		}
		sort.Slice(ts.Channels, func(i, j int) bool { return ts.Channels[i] < ts.Channels[j] })
		summary.Tracks = append(summary.Tracks, ts)
	}
	return summary, nil
}

// Notes pairs note on and note off events into notes, ordered by start time.
// Notes still sounding at the end of their track end with the track.
func Notes(s *smf.SMF) []Note {
	var notes []Note
	for i, track := range s.Tracks {
		var now uint32
		sounding := make(map[[2]uint8]Note)

		for _, event := range track {
			now += event.Delta
			var ch, key, vel uint8
			switch {
			case event.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
				if n, ok := sounding[[2]uint8{ch, key}]; ok {
					n.End = now
					notes = append(notes, n)
				}
				sounding[[2]uint8{ch, key}] = Note{Track: i, Channel: ch, Key: key, Velocity: vel, Start: now}
			case event.Message.GetNoteOn(&ch, &key, &vel), event.Message.GetNoteOff(&ch, &key, &vel):
				if n, ok := sounding[[2]uint8{ch, key}]; ok {
					n.End = now
					notes = append(notes, n)
					delete(sounding, [2]uint8{ch, key})
				}
			}
		}

		for _, n := range sounding {
			n.End = now
			notes = append(notes, n)
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Start != notes[j].Start {
			return notes[i].Start < notes[j].Start
		}
		if notes[i].Track != notes[j].Track {
			return notes[i].Track < notes[j].Track
		}
		return notes[i].Key < notes[j].Key
	})
	return notes
}

// describe returns a one-line description of msg.
func describe(msg smf.Message) string {
	var ch, key, vel uint8
	var rel int16
	var abs uint16
	var bpm float64
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		if vel == 0 {
			return fmt.Sprintf("ch%-2d note off  %3d", ch, key)
		}
		return fmt.Sprintf("ch%-2d note on   %3d vel %d", ch, key, vel)
	case msg.GetNoteOff(&ch, &key, &vel):
		return fmt.Sprintf("ch%-2d note off  %3d", ch, key)
	case msg.GetControlChange(&ch, &key, &vel):
		return fmt.Sprintf("ch%-2d control  %3d = %d", ch, key, vel)
	case msg.GetProgramChange(&ch, &vel):
		return fmt.Sprintf("ch%-2d program  %3d", ch, vel)
	case midi.Message(msg).GetPitchBend(&ch, &rel, &abs):
		return fmt.Sprintf("ch%-2d bend     %d", ch, abs)
	case msg.GetMetaTempo(&bpm):
		return fmt.Sprintf("tempo %.2f BPM", bpm)
	case isMarker(msg):
		return fmt.Sprintf("marker % x", []byte(msg))
	default:
		return fmt.Sprintf("% x", []byte(msg))
	}
}

// WriteEvents lists every event of data with its track and absolute time.
func WriteEvents(w io.Writer, data []byte) error {
	s, err := Read(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Format %d, %d tracks, %d ticks per quarter note\n", s.Format(), len(s.Tracks), Ticks(s))
	for i, track := range s.Tracks {
		fmt.Fprintf(w, "Track %d:\n", i)
		var now uint32
		for _, event := range track {
			now += event.Delta
			if _, err := fmt.Fprintf(w, "  %8d  %s\n", now, describe(event.Message)); err != nil {
				return err
			}
		}
	}
	return nil
}
