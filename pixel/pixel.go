// Package pixel holds the RGBA pixel the image readers produce and the math
// the ASCII renderer needs: luminance, character lookup and ANSI colors.
package pixel

import (
	"image/color"

	fcolor "github.com/fatih/color"
)

// Rec. 709 luma coefficients.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// RGBA is an 8-bit per channel, non-premultiplied pixel.
type RGBA struct {
	R, G, B, A uint8
}

// FromColor converts any color.Color.
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA{R: n.R, G: n.G, B: n.B, A: n.A}
}

// NRGBA returns p as a color.NRGBA.
func (p RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: p.A}
}

// Opaque composites p over black.
func (p RGBA) Opaque() RGBA {
	if p.A == 0xff {
		return p
	}

	a := uint32(p.A)
	return RGBA{
		R: uint8(uint32(p.R) * a / 0xff),
		G: uint8(uint32(p.G) * a / 0xff),
		B: uint8(uint32(p.B) * a / 0xff),
		A: 0xff,
	}
}

// Luminance returns the relative luminance of p's color channels on the
// 0..255 scale. Alpha is ignored.
func (p RGBA) Luminance() float64 {
	return lumR*float64(p.R) + lumG*float64(p.G) + lumB*float64(p.B)
}

// Char picks the character for p from table. The luminance is scaled by the
// table length and wrapped, so the lookup cycles through the table as the
// pixel gets brighter.
func Char(p RGBA, table []byte) byte {
	n := len(table)
	if n == 0 {
		return ' '
	}
	return table[int(p.Luminance()*float64(n))%n]
}

type ansi struct {
	attr    fcolor.Attribute
	r, g, b int
}

// VGA text mode palette.
var palette = []ansi{
	{fcolor.FgBlack, 0, 0, 0},
	{fcolor.FgRed, 170, 0, 0},
	{fcolor.FgGreen, 0, 170, 0},
	{fcolor.FgYellow, 170, 85, 0},
	{fcolor.FgBlue, 0, 0, 170},
	{fcolor.FgMagenta, 170, 0, 170},
	{fcolor.FgCyan, 0, 170, 170},
	{fcolor.FgWhite, 170, 170, 170},
	{fcolor.FgHiBlack, 85, 85, 85},
	{fcolor.FgHiRed, 255, 85, 85},
	{fcolor.FgHiGreen, 85, 255, 85},
	{fcolor.FgHiYellow, 255, 255, 85},
	{fcolor.FgHiBlue, 85, 85, 255},
	{fcolor.FgHiMagenta, 255, 85, 255},
	{fcolor.FgHiCyan, 85, 255, 255},
	{fcolor.FgHiWhite, 255, 255, 255},
}

// ANSI returns the foreground attribute of the 16-color terminal palette
// entry closest to p.
func ANSI(p RGBA) fcolor.Attribute {
	best, bestDist := palette[0].attr, -1
	for _, c := range palette {
		dr, dg, db := int(p.R)-c.r, int(p.G)-c.g, int(p.B)-c.b
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = c.attr, d
		}
	}
	return best
}
