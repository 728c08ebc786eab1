package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/QEStudios/RomSoundConverter/inspect"
	"github.com/QEStudios/RomSoundConverter/midifile"
	"github.com/QEStudios/RomSoundConverter/pianoroll"
	"github.com/QEStudios/RomSoundConverter/soundfont"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
)

const (
	bankExt = ".sn64"
	seqExt  = ".sseq"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var (
		bankPath    string
		seqPath     string
		songIndex   int
		outDir      string
		dump        bool
		events      bool
		roll        bool
		skipInvalid bool
		workers     int
	)
	pflag.StringVarP(&bankPath, "bank", "b", "", "instrument bank extracted from the ROM (.sn64)")
	pflag.StringVarP(&seqPath, "seq", "q", "", "sequence archive extracted from the ROM (.sseq); defaults to the bank path with a .sseq extension")
	pflag.IntVarP(&songIndex, "song", "s", -1, "only convert this sequence (default: all)")
	pflag.StringVarP(&outDir, "out", "o", "", "output directory (default: the bank's directory)")
	pflag.BoolVar(&dump, "dump", false, "dump the parsed bank and sequence archive")
	pflag.BoolVar(&events, "events", false, "list the events of every converted file")
	pflag.BoolVar(&roll, "roll", false, "write a piano roll .png next to every converted file")
	pflag.BoolVar(&skipInvalid, "skip-invalid", false, "skip sequences that fail to convert instead of aborting")
	pflag.IntVarP(&workers, "workers", "j", runtime.NumCPU(), "number of sequences converted concurrently")
	pflag.Parse()

	// Get the path of the instrument bank.
	if bankPath == "" {
		bankPath, err = choosePath(cwd, pflag.Args())
		if err != nil {
			if errors.Is(err, dialog.ErrCancelled) {
				logger.Printf("User cancelled the file dialog")
				os.Exit(1)
			}
			logger.Fatalf("failed to determine file path: %v", err)
		}
	} else if err := validatePath(bankPath, bankExt); err != nil {
		logger.Fatalf("invalid bank path: %v", err)
	}

	if seqPath == "" {
		seqPath = siblingPath(bankPath, seqExt)
	}
	if err := validatePath(seqPath, seqExt); err != nil {
		logger.Fatalf("invalid sequence path: %v", err)
	}

	if outDir == "" {
		outDir = filepath.Dir(bankPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Fatalf("cannot create output directory: %v", err)
	}

	opts := []soundfont.Option{soundfont.Workers(workers)}
	if skipInvalid {
		opts = append(opts, soundfont.SkipInvalid())
	}
	loader := soundfont.NewLoader(soundfont.FileROM{BankPath: bankPath, SeqPath: seqPath}, logger, opts...)

	count, err := loader.Len()
	if err != nil {
		logger.Fatalf("conversion error: %v", err)
	}

	if dump {
		bank, _ := loader.Bank()
		archive, _ := loader.Archive()
		spew.Dump(bank, archive)
	}

	first, last := 0, count-1
	if songIndex >= 0 {
		first, last = songIndex, songIndex
	}

	written := 0
	for i := first; i <= last; i++ {
		data, err := loader.Song(i)
		if errors.Is(err, midifile.ErrSongUnavailable) {
			logger.Printf("Skipping sequence %d: %v", i, err)
			continue
		}
		if err != nil {
			logger.Fatalf("sequence %d: %v", i, err)
		}

		midPath := filepath.Join(outDir, songFileName(i, ".mid"))
		if err := os.WriteFile(midPath, data, 0o644); err != nil {
			logger.Fatalf("Error writing output file: %v", err)
		}
		written++

		if events {
			fmt.Printf("%s:\n", midPath)
			if err := inspect.WriteEvents(os.Stdout, data); err != nil {
				logger.Fatalf("sequence %d: %v", i, err)
			}
		}

		if roll {
			if err := writeRoll(filepath.Join(outDir, songFileName(i, ".png")), data); err != nil {
				if !errors.Is(err, pianoroll.ErrNoNotes) {
					logger.Fatalf("sequence %d: %v", i, err)
				}
				logger.Printf("Sequence %d has no notes, no piano roll written", i)
			}
		}
	}

	logger.Printf("Wrote %d MIDI files to %s", written, outDir)
}

func writeRoll(path string, data []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := pianoroll.WritePNG(file, data, pianoroll.Options{}); err != nil {
		return err
	}
	return file.Close()
}

// songFileName returns the output file name of sequence i.
func songFileName(i int, ext string) string {
	return fmt.Sprintf("SONG%03d%s", i, ext)
}

// siblingPath swaps the extension of p for ext, keeping the case of the original.
func siblingPath(p, ext string) string {
	old := filepath.Ext(p)
	if old != "" && old == strings.ToUpper(old) {
		ext = strings.ToUpper(ext)
	}
	return strings.TrimSuffix(p, old) + ext
}

// choosePath returns the bank path either from the command-line args
// or from an interactive file dialog.
func choosePath(cwd string, args []string) (string, error) {
	// If an argument was passed to the program, use it.
	if len(args) > 0 {
		path := args[0]
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath, bankExt); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	// Otherwise open the file dialog.
	path, err := dialog.
		File().
		Title("Open instrument bank").
		Filter("SN64 instrument banks (*.sn64)", "sn64").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// Propagate the error. Caller will check for dialog.ErrCancelled.
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}

	// Check for empty path just in case.
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath, bankExt); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// validatePath checks that p has the extension ext and exists.
func validatePath(p, ext string) error {
	if strings.ToLower(filepath.Ext(p)) != ext {
		return fmt.Errorf("file must have %s extension", ext)
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	return nil
}
