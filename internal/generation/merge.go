package generation

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

const defaultBackground = "#0a0a1a"

// Fragment is the vector content of one scene element prior to merge.
type Fragment struct {
	Element SceneElement
	SVG     string
	// SourceWidth and SourceHeight are set for library artifacts, whose
	// coordinate space differs from the target cell rectangle.
	SourceWidth  float64
	SourceHeight float64
}

// Canvas is the target coordinate space of a merge.
type Canvas struct {
	Width      int
	Height     int
	Grid       Grid
	Background string
}

// CellSize returns the pixel size of one grid cell.
func (c Canvas) CellSize() (float64, float64) {
	return float64(c.Width) / float64(c.Grid.Cols), float64(c.Height) / float64(c.Grid.Rows)
}

// PixelRect converts a grid rectangle to pixel position and size.
func (c Canvas) PixelRect(r Rect) (x, y, w, h float64) {
	cw, ch := c.CellSize()
	return float64(r.X) * cw, float64(r.Y) * ch, float64(r.W) * cw, float64(r.H) * ch
}

// Merge composes fragments into one SVG document over an opaque background.
//
// Fragments are drawn in ascending z-order; equal z-orders keep their input
// order. Each fragment's inner markup is wrapped in a group translated to its
// cell rectangle and, when its source size differs from the rectangle,
// rescaled to fit. Prefixed namespace declarations on a fragment's root are
// carried over to its group. Fragments that cannot be parsed are skipped. The returned
// count is the number of fragments drawn.
func Merge(fragments []Fragment, canvas Canvas, logger *slog.Logger) (string, int) {
	if logger == nil {
		logger = slog.Default()
	}
	bg := canvas.Background
	if bg == "" {
		bg = defaultBackground
	}

	ordered := slices.Clone(fragments)
	slices.SortStableFunc(ordered, func(a, b Fragment) int {
		return a.Element.ZIndex - b.Element.ZIndex
	})

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb,
		`<svg xmlns="%s" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		svgNamespace, canvas.Width, canvas.Height, canvas.Width, canvas.Height)
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n",
		canvas.Width, canvas.Height, escapeAttr(bg))

	drawn := 0
	for _, f := range ordered {
		inner, nsDecls, err := innerSVG(f.SVG)
		if err != nil {
			logger.Warn("skipping unparseable fragment", "element_id", f.Element.ID, "error", err)
			continue
		}

		px, py, w, h := canvas.PixelRect(f.Element.Rect)
		transform := fmt.Sprintf("translate(%s,%s)", formatNumber(px), formatNumber(py))
		if f.SourceWidth > 0 && f.SourceHeight > 0 {
			sx, sy := w/f.SourceWidth, h/f.SourceHeight
			if sx != 1 || sy != 1 {
				transform += fmt.Sprintf(" scale(%s,%s)", formatNumber(sx), formatNumber(sy))
			}
		}

		fmt.Fprintf(&sb, `<g transform="%s"%s>%s</g>`+"\n", transform, nsDecls, inner)
		drawn++
	}

	sb.WriteString("</svg>")
	return sb.String(), drawn
}

func escapeAttr(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
