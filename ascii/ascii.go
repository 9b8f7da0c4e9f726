// Package ascii renders pixel rows as lines of characters.
package ascii

import (
	"bufio"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/dselans/funnyimg/pixel"
)

// DefaultTable is the character table used when none is given, darkest
// first.
const DefaultTable = "ABCDEFG"

// Options control rendering.
type Options struct {
	Table  string
	Invert bool
	Color  bool
}

// Renderer writes one line per row.
type Renderer struct {
	w      *bufio.Writer
	table  []byte
	color  bool
	colors map[color.Attribute]*color.Color

	rows  int
	chars int64
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer, opts Options) *Renderer {
	table := []byte(opts.Table)
	if len(table) == 0 {
		table = []byte(DefaultTable)
	}

	if opts.Invert {
		inverted := make([]byte, len(table))
		for i, c := range table {
			inverted[len(table)-1-i] = c
		}
		table = inverted
	}

	return &Renderer{
		w:      bufio.NewWriter(w),
		table:  table,
		color:  opts.Color,
		colors: make(map[color.Attribute]*color.Color),
	}
}

// Char returns the character for p. Transparent pixels are composited over
// black first.
func (r *Renderer) Char(p pixel.RGBA) byte {
	return pixel.Char(p.Opaque(), r.table)
}

// WriteRow writes row as one line.
func (r *Renderer) WriteRow(row []pixel.RGBA) error {
	for _, p := range row {
		ch := r.Char(p)

		if !r.color {
			if err := r.w.WriteByte(ch); err != nil {
				return errors.Wrap(err, "unable to write character")
			}
			continue
		}

		if _, err := r.colorFor(p.Opaque()).Fprint(r.w, string(ch)); err != nil {
			return errors.Wrap(err, "unable to write character")
		}
	}

	if err := r.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "unable to write newline")
	}

	r.rows++
	r.chars += int64(len(row))

	return nil
}

// WriteImage writes every row of img.
func (r *Renderer) WriteImage(img *image.NRGBA) error {
	b := img.Bounds()
	row := make([]pixel.RGBA, b.Dx())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = pixel.FromColor(img.NRGBAAt(x, y))
		}

		if err := r.WriteRow(row); err != nil {
			return err
		}
	}

	return nil
}

// Flush writes out anything buffered.
func (r *Renderer) Flush() error {
	return r.w.Flush()
}

// Rows returns the number of lines written.
func (r *Renderer) Rows() int {
	return r.rows
}

// Chars returns the number of characters written, newlines excluded.
func (r *Renderer) Chars() int64 {
	return r.chars
}

func (r *Renderer) colorFor(p pixel.RGBA) *color.Color {
	attr := pixel.ANSI(p)

	c, ok := r.colors[attr]
	if !ok {
		c = color.New(attr)
		c.EnableColor()
		r.colors[attr] = c
	}

	return c
}

// Canvas collects rows into an image so it can be scaled before rendering.
type Canvas struct {
	img *image.NRGBA
	y   int
}

// NewCanvas returns an empty width x height canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// AddRow appends the next row. Rows past the canvas height are ignored.
func (c *Canvas) AddRow(row []pixel.RGBA) {
	if c.y >= c.img.Bounds().Dy() {
		return
	}

	for x, p := range row {
		c.img.SetNRGBA(x, c.y, p.NRGBA())
	}
	c.y++
}

// Image returns the collected image.
func (c *Canvas) Image() *image.NRGBA {
	return c.img
}

// Scale resizes img to cols columns. Character cells are about twice as tall
// as they are wide, so the row count is halved on top of the width ratio.
// Images already narrower than cols are returned unchanged.
func Scale(img *image.NRGBA, cols int) *image.NRGBA {
	b := img.Bounds()
	if cols <= 0 || cols >= b.Dx() {
		return img
	}

	rows := max(b.Dy()*cols/b.Dx()/2, 1)

	return imaging.Resize(img, cols, rows, imaging.Box)
}
