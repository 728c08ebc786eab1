// Package pianoroll draws the notes of a MIDI file as a piano roll image.
package pianoroll

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/QEStudios/RomSoundConverter/inspect"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrNoNotes is returned when the file contains nothing to draw.
var ErrNoNotes = errors.New("no notes to draw")

type Color struct {
	R, G, B float64
}

var trackColors = []Color{
	{1, 0.5, 0},
	{0.2, 1, 0.2},
	{0.5, 0.85, 1},
	{0.8, 0.6, 0.05},
	{1, 0.6, 0.7},
	{0.7, 0.5, 1},
}

func trackColor(i int) Color {
	return trackColors[i%len(trackColors)]
}

type Options struct {
	Width    int
	Height   int
	FontSize float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.FontSize <= 0 {
		o.FontSize = 12
	}
	return o
}

const (
	margin    = 40.0 // Left margin holding the octave labels.
	keyMargin = 2    // Keys shown above and below the played range.
)

// Render draws every note of the MIDI file data. Time runs left to right, one row per
// key, with a vertical line every quarter note and a label on every C.
func Render(data []byte, opts Options) (image.Image, error) {
	opts = opts.withDefaults()

	s, err := inspect.Read(data)
	if err != nil {
		return nil, err
	}
	notes := inspect.Notes(s)
	if len(notes) == 0 {
		return nil, ErrNoNotes
	}

	lo, hi := 127, 0
	var end uint32
	for _, n := range notes {
		lo = min(lo, int(n.Key))
		hi = max(hi, int(n.Key))
		end = max(end, n.End)
	}
	lo = max(lo-keyMargin, 0)
	hi = min(hi+keyMargin, 127)
	end = max(end, 1)

	w, h := float64(opts.Width), float64(opts.Height)
	rowH := h / float64(hi-lo+1)
	tickW := (w - margin) / float64(end)
	rowY := func(key int) float64 { return h - float64(key-lo+1)*rowH }

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(0.13, 0.13, 0.13)
	dc.Clear()

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("loading label font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: opts.FontSize}))

	// Rows of black keys are darker.
	for key := lo; key <= hi; key++ {
		switch key % 12 {
		case 1, 3, 6, 8, 10:
			dc.DrawRectangle(margin, rowY(key), w-margin, rowH)
			dc.SetRGB(0.1, 0.1, 0.1)
			dc.Fill()
		case 0:
			dc.SetRGB(1, 1, 1)
			dc.DrawString(fmt.Sprintf("C%d", key/12-1), 4, rowY(key)+rowH)
		}
	}

	if q := inspect.Ticks(s); q > 0 {
		dc.SetRGBA(1, 1, 1, 0.1)
		dc.SetLineWidth(1)
		for t := uint32(0); t <= end; t += uint32(q) {
			x := margin + float64(t)*tickW
			dc.DrawLine(x, 0, x, h)
			dc.Stroke()
		}
	}

	for _, n := range notes {
		c := trackColor(n.Track)
		x := margin + float64(n.Start)*tickW
		width := max(float64(n.End-n.Start)*tickW, 1)
		dc.DrawRectangle(x, rowY(int(n.Key)), width, rowH)
		dc.SetRGB(c.R, c.G, c.B)
		dc.FillPreserve()
		dc.SetRGBA(0, 0, 0, 0.5)
		dc.SetLineWidth(0.5)
		dc.Stroke()
	}

	return dc.Image(), nil
}

// WritePNG renders data and encodes the image as PNG.
func WritePNG(w io.Writer, data []byte, opts Options) error {
	img, err := Render(data, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}
