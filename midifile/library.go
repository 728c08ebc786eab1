package midifile

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
)

// ErrSongUnavailable is returned for entries that failed to convert and were skipped.
var ErrSongUnavailable = errors.New("song unavailable")

// IndexOutOfRangeError is returned when looking up a song that does not exist.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("song %d does not exist; library only contains %d songs", e.Index, e.Len)
}

// Options controls how a Library is built.
type Options struct {
	// SkipInvalid logs entries that fail to convert and carries on with the rest,
	// instead of failing the whole build.
	SkipInvalid bool

	// Workers is the number of entries converted concurrently. Values below 2
	// convert sequentially.
	Workers int

	Logger *log.Logger
}

// A Library holds the compiled MIDI file of every entry of an archive, indexed by
// entry position. It is immutable once built.
type Library struct {
	songs [][]byte
	errs  []error
}

type result struct {
	data []byte
	err  error
}

func convert(bank *sn64.Bank, seq sseq.Sequence) ([]byte, error) {
	song, err := BuildSong(bank, seq)
	if err != nil {
		return nil, err
	}
	return song.Compile()
}

// Build converts every entry of archive. The bank is only read, so it may be shared
// by concurrent workers.
func Build(bank *sn64.Bank, archive *sseq.Archive, opts Options) (*Library, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	results := make([]result, len(archive.Sequences))
	if opts.Workers < 2 {
		for i, seq := range archive.Sequences {
			data, err := convert(bank, seq)
			results[i] = result{data, err}
			if err != nil && !opts.SkipInvalid {
				break
			}
		}
	} else {
		indexes := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < opts.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					data, err := convert(bank, archive.Sequences[i])
					results[i] = result{data, err}
				}
			}()
		}
		for i := range archive.Sequences {
			indexes <- i
		}
		close(indexes)
		wg.Wait()
	}

	lib := &Library{
		songs: make([][]byte, len(results)),
		errs:  make([]error, len(results)),
	}
	failed := 0
	for i, r := range results {
		if r.err != nil {
			if !opts.SkipInvalid {
				return nil, fmt.Errorf("entry %03d: %w", i, r.err)
			}
			logger.Printf("Skipping entry %03d: %v", i, r.err)
			lib.errs[i] = r.err
			failed++
			continue
		}
		lib.songs[i] = r.data
	}

	logger.Printf("Converted %d of %d sequences", len(results)-failed, len(results))
	return lib, nil
}

// Len returns the number of entries in the library, including skipped ones.
func (l *Library) Len() int {
	return len(l.songs)
}

// Song returns a copy of the MIDI file for entry i.
func (l *Library) Song(i int) ([]byte, error) {
	if i < 0 || i >= len(l.songs) {
		return nil, &IndexOutOfRangeError{Index: i, Len: len(l.songs)}
	}
	if l.errs[i] != nil {
		return nil, fmt.Errorf("song %d: %w: %w", i, ErrSongUnavailable, l.errs[i])
	}
	return bytes.Clone(l.songs[i]), nil
}
