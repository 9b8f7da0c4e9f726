package converter

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dselans/funnyimg/source"
)

func (c *Converter) writeInfo(in *source.Input, format string, img picture) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("%s", in.Path)

	tw.AppendHeader(table.Row{"FIELD", "VALUE"})
	tw.AppendRow(table.Row{"source type", string(in.Type)})
	tw.AppendRow(table.Row{"source size", in.Size})
	tw.AppendRow(table.Row{"format", format})

	for _, r := range img.info() {
		tw.AppendRow(table.Row(r))
	}

	tw.Render()

	return nil
}

func (i *pngImage) info() [][]interface{} {
	h := i.Header()

	var chunks []string
	for _, ch := range i.Chunks() {
		chunks = append(chunks, fmt.Sprintf("%s(%d)", ch.Type, ch.Length))
	}

	return [][]interface{}{
		{"width", h.Width},
		{"height", h.Height},
		{"bit depth", h.BitDepth},
		{"color type", fmt.Sprintf("%s (%d)", h.ColorType, uint8(h.ColorType))},
		{"compression", h.Compression},
		{"filter", h.Filter},
		{"interlace", h.Interlace},
		{"chunks", strings.Join(chunks, " ")},
	}
}

func (i *bmpImage) info() [][]interface{} {
	h := i.Header()

	return [][]interface{}{
		{"width", h.Width()},
		{"height", h.Height()},
		{"bits per pixel", h.Info.BitCount},
		{"compression", h.Info.Compression},
		{"top down", h.TopDown()},
		{"data offset", h.File.Offset},
		{"file size", h.File.Size},
	}
}
