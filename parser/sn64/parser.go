// Package sn64 decodes the SN64 instrument bank: the patch table, the per-note-range
// subpatch table and the sample metadata tables that follow them.
package sn64

import (
	"fmt"
	"log"

	"github.com/QEStudios/RomSoundConverter/binrec"
)

// Each table in the bank is followed by a 4 byte gap before the next one starts.
const tableGap = 4

// Small struct for non-fatal warnings
type ParseWarning struct {
	Offset  int
	Message string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("offset %#x: %s", w.Offset, w.Message)
}

type Parser struct {
	cursor *binrec.Cursor
	logger *log.Logger

	// Collect any warnings whilst parsing.
	warnings []ParseWarning

	// Whether or not the parser has already been used.
	// Parsing can only be done once per Parser.
	used bool
}

// NewParser creates a new parser for the raw bytes of an SN64 bank.
func NewParser(data []byte, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		cursor: binrec.NewCursor(data),
		logger: logger,
	}
}

// addWarning adds to the list of warnings encountered when parsing.
func (p *Parser) addWarning(format string, args ...any) {
	p.warnings = append(p.warnings, ParseWarning{
		Offset:  p.cursor.Pos(),
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnings returns the warnings collected by Parse.
func (p *Parser) Warnings() []ParseWarning {
	return p.warnings
}

// checkDeclaredSize warns when the header declares a record size that differs from
// the size this parser decodes. The declared size is still used to locate the next table.
func (p *Parser) checkDeclaredSize(table string, declared uint16, actual int) {
	if int(declared) != actual {
		p.addWarning("%s record size declared as %d, decoding %d byte records", table, declared, actual)
	}
}

// seekPast moves the cursor to the end of a table that started at start.
func (p *Parser) seekPast(table string, start int, count, declaredSize uint16, gap int) error {
	if err := p.cursor.Seek(start + int(count)*int(declaredSize) + gap); err != nil {
		return fmt.Errorf("%s table: %w", table, err)
	}
	return nil
}

// Parse decodes the whole bank. Any structural error aborts parsing; no partial
// bank is returned.
func (p *Parser) Parse() (*Bank, error) {
	if p.used {
		return nil, fmt.Errorf("parser already used")
	}
	p.used = true

	bank, err := p.parseInternal()
	if err != nil {
		return nil, err
	}

	if len(p.warnings) > 0 {
		p.logger.Println("Warnings produced while parsing instrument bank:")
		for _, warning := range p.warnings {
			p.logger.Printf("%v\n", warning)
		}
	}

	return bank, nil
}

func (p *Parser) parseInternal() (*Bank, error) {
	c := p.cursor
	bank := &Bank{}

	if err := binrec.Read(c, HeaderSize, &bank.Header); err != nil {
		return nil, fmt.Errorf("bank header: %w", err)
	}
	h := &bank.Header
	p.checkDeclaredSize("patch", h.PatchSize, PatchSize)
	p.checkDeclaredSize("subpatch", h.SubpatchSize, SubpatchSize)
	p.checkDeclaredSize("wave table", h.SoundSize, WaveTableSize)

	var err error

	start := c.Pos()
	bank.Patches, err = binrec.ReadArray[Patch](c, int(h.NumPatches), PatchSize)
	if err != nil {
		return nil, fmt.Errorf("patch table: %w", err)
	}
	if err := p.seekPast("patch", start, h.NumPatches, h.PatchSize, tableGap); err != nil {
		return nil, err
	}

	start = c.Pos()
	bank.Subpatches, err = binrec.ReadArray[Subpatch](c, int(h.NumSubpatches), SubpatchSize)
	if err != nil {
		return nil, fmt.Errorf("subpatch table: %w", err)
	}
	if err := p.seekPast("subpatch", start, h.NumSubpatches, h.SubpatchSize, tableGap); err != nil {
		return nil, err
	}

	if err := bank.validate(); err != nil {
		return nil, err
	}
	bank.findSplit()

	start = c.Pos()
	bank.Waves, err = binrec.ReadArray[WaveTable](c, int(h.NumSounds), WaveTableSize)
	if err != nil {
		return nil, fmt.Errorf("wave table: %w", err)
	}
	if err := p.seekPast("wave", start, h.NumSounds, h.SoundSize, 0); err != nil {
		return nil, err
	}

	if err := binrec.Read(c, LoopInfoSize, &bank.LoopInfo); err != nil {
		return nil, fmt.Errorf("loop info: %w", err)
	}
	bank.Loops, err = binrec.ReadArray[LoopTable](c, int(bank.LoopInfo.NumLoops), LoopTableSize)
	if err != nil {
		return nil, fmt.Errorf("loop table: %w", err)
	}

	bank.Predictors, err = binrec.ReadArray[PredictorTable](c, int(h.NumSounds), PredictorTableSize)
	if err != nil {
		return nil, fmt.Errorf("predictor table: %w", err)
	}

	// The ADPCM sample data follows the predictor tables and is not decoded.
	p.logger.Printf("SN64: %d patches, %d subpatches, %d sounds, %d loops, secondary bank at patch %d",
		len(bank.Patches), len(bank.Subpatches), len(bank.Waves), len(bank.Loops), bank.SplitIndex)

	return bank, nil
}
