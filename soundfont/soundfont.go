// Package soundfont exposes the converted ROM music to a host synthesizer: the MIDI
// file of every sequence, and a font registration that answers to the ROM's name.
package soundfont

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/QEStudios/RomSoundConverter/midifile"
	"github.com/QEStudios/RomSoundConverter/parser/sn64"
	"github.com/QEStudios/RomSoundConverter/parser/sseq"
)

const (
	// FontFile is the only file name Load answers to.
	FontFile = "DOOM64.ROM"

	// FontName is the name reported by the loaded font.
	FontName = "Doom64EX RomSource"
)

// ErrNotFound is returned by Load for names other than FontFile, and by Font.Preset.
var ErrNotFound = errors.New("not found")

// A ROM supplies the raw bytes of the instrument bank and the sequence archive.
type ROM interface {
	SN64() ([]byte, error)
	SSEQ() ([]byte, error)
}

// FileROM reads both resources from files that have already been extracted from the ROM.
type FileROM struct {
	BankPath string
	SeqPath  string
}

func (r FileROM) SN64() ([]byte, error) {
	return os.ReadFile(r.BankPath)
}

func (r FileROM) SSEQ() ([]byte, error) {
	return os.ReadFile(r.SeqPath)
}

// Option configures a Loader.
type Option func(*midifile.Options)

// SkipInvalid makes the loader skip sequences that fail to convert.
func SkipInvalid() Option {
	return func(o *midifile.Options) { o.SkipInvalid = true }
}

// Workers sets the number of sequences converted concurrently.
func Workers(n int) Option {
	return func(o *midifile.Options) { o.Workers = n }
}

// A Loader converts the ROM's music the first time it is used. It is safe for
// concurrent use.
type Loader struct {
	rom    ROM
	logger *log.Logger
	opts   midifile.Options

	once    sync.Once
	bank    *sn64.Bank
	archive *sseq.Archive
	library *midifile.Library
	err     error
}

func NewLoader(rom ROM, logger *log.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	l := &Loader{rom: rom, logger: logger}
	l.opts.Logger = logger
	for _, opt := range opts {
		opt(&l.opts)
	}
	return l
}

// load reads the bank, then the sequences. A failed load is not retried.
func (l *Loader) load() error {
	l.once.Do(func() {
		l.err = l.loadInternal()
	})
	return l.err
}

func (l *Loader) loadInternal() error {
	data, err := l.rom.SN64()
	if err != nil {
		return fmt.Errorf("reading instrument bank: %w", err)
	}
	bank, err := sn64.NewParser(data, l.logger).Parse()
	if err != nil {
		return fmt.Errorf("parsing instrument bank: %w", err)
	}

	data, err = l.rom.SSEQ()
	if err != nil {
		return fmt.Errorf("reading sequences: %w", err)
	}
	archive, err := sseq.NewParser(data, l.logger).Parse()
	if err != nil {
		return fmt.Errorf("parsing sequences: %w", err)
	}

	library, err := midifile.Build(bank, archive, l.opts)
	if err != nil {
		return fmt.Errorf("converting sequences: %w", err)
	}

	l.bank, l.archive, l.library = bank, archive, library
	return nil
}

// Song returns the MIDI file of sequence i.
func (l *Loader) Song(i int) ([]byte, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.library.Song(i)
}

// Len returns the number of sequences in the ROM.
func (l *Loader) Len() (int, error) {
	if err := l.load(); err != nil {
		return 0, err
	}
	return l.library.Len(), nil
}

// Bank returns the parsed instrument bank.
func (l *Loader) Bank() (*sn64.Bank, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.bank, nil
}

// Archive returns the parsed sequence archive.
func (l *Loader) Archive() (*sseq.Archive, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.archive, nil
}

// Load registers the ROM as a font under name.
func (l *Loader) Load(name string) (*Font, error) {
	l.logger.Printf("Loading font: %s", name)
	if err := l.load(); err != nil {
		return nil, err
	}
	if name != FontFile {
		return nil, fmt.Errorf("font %q: %w", name, ErrNotFound)
	}
	return &Font{}, nil
}

// A Font stands in for the ROM in a synthesizer's font list. It carries no presets:
// instruments are selected through program and bank changes in the MIDI data.
type Font struct{}

func (f *Font) Name() string {
	return FontName
}

// Preset looks up a preset by bank and program number. It always fails with ErrNotFound.
func (f *Font) Preset(bank, program int) error {
	return fmt.Errorf("preset %d:%d: %w", bank, program, ErrNotFound)
}

// Presets returns every preset of the font, which is none.
func (f *Font) Presets() []string {
	return nil
}
