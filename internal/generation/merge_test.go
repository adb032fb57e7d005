package generation

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragmentSVG(marker string) string {
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 40"><rect id="` + marker + `" width="40" height="40"/></svg>`
}

func TestMerge_ZOrderIndependentOfInputOrder(t *testing.T) {
	canvas := Canvas{Width: 640, Height: 480, Grid: Grid{Cols: 16, Rows: 12}}
	low := Fragment{
		Element: SceneElement{ID: "low", Rect: Rect{X: 0, Y: 0, W: 4, H: 4}, ZIndex: 0},
		SVG:     fragmentSVG("low"),
	}
	high := Fragment{
		Element: SceneElement{ID: "high", Rect: Rect{X: 2, Y: 2, W: 4, H: 4}, ZIndex: 1},
		SVG:     fragmentSVG("high"),
	}

	for name, input := range map[string][]Fragment{
		"high first": {high, low},
		"low first":  {low, high},
	} {
		t.Run(name, func(t *testing.T) {
			out, drawn := Merge(input, canvas, setupTestLogger())

			assert.Equal(t, 2, drawn)
			lowAt := strings.Index(out, `id="low"`)
			highAt := strings.Index(out, `id="high"`)
			require.NotEqual(t, -1, lowAt)
			require.NotEqual(t, -1, highAt)
			assert.Less(t, lowAt, highAt, "later groups paint on top")
		})
	}
}

func TestMerge_Document(t *testing.T) {
	canvas := Canvas{Width: 640, Height: 480, Grid: Grid{Cols: 16, Rows: 12}, Background: "#102030"}
	fragments := []Fragment{
		{
			Element: SceneElement{ID: "generated", Rect: Rect{X: 3, Y: 2, W: 2, H: 1}},
			SVG:     fragmentSVG("generated"),
		},
		{
			Element:      SceneElement{ID: "library", Rect: Rect{X: 1, Y: 1, W: 2, H: 2}, ZIndex: 3},
			SVG:          fragmentSVG("library"),
			SourceWidth:  160,
			SourceHeight: 40,
		},
		{
			Element: SceneElement{ID: "same-size", Rect: Rect{X: 0, Y: 0, W: 1, H: 1}, ZIndex: 4},
			SVG:     fragmentSVG("same"),
			// one cell is 40x40 pixels
			SourceWidth:  40,
			SourceHeight: 40,
		},
		{
			Element: SceneElement{ID: "broken", ZIndex: 5},
			SVG:     `<svg><rect></svg>`,
		},
	}

	out, drawn := Merge(fragments, canvas, setupTestLogger())

	assert.Equal(t, 3, drawn)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `viewBox="0 0 640 480" width="640" height="480"`)
	assert.Contains(t, out, `<rect x="0" y="0" width="640" height="480" fill="#102030"/>`)
	assert.Contains(t, out, `<g transform="translate(120,80)"><rect id="generated"`)
	assert.Contains(t, out, `<g transform="translate(40,40) scale(0.5,2)"><rect id="library"`)
	assert.Contains(t, out, `<g transform="translate(0,0)"><rect id="same"`)
	assert.NotContains(t, out, "broken")
	assert.Equal(t, 3, strings.Count(out, "<g transform="))
	assert.True(t, strings.HasSuffix(out, "</svg>"))

	// the merged document is itself valid
	assert.NoError(t, ContentValidator{MinLength: 200}.Validate(out))
}

func TestMerge_DefaultBackground(t *testing.T) {
	out, drawn := Merge(nil, Canvas{Width: 64, Height: 64, Grid: Grid{Cols: 4, Rows: 4}}, nil)
	assert.Zero(t, drawn)
	assert.Contains(t, out, `fill="#0a0a1a"`)
}

func TestMerge_KeepsFragmentNamespaces(t *testing.T) {
	canvas := Canvas{Width: 640, Height: 480, Grid: Grid{Cols: 16, Rows: 12}}
	fragment := Fragment{
		Element: SceneElement{ID: "tree", Rect: Rect{X: 1, Y: 1, W: 1, H: 1}},
		SVG: `<svg xmlns="http://www.w3.org/2000/svg" xmlns:ink="http://www.inkscape.org/namespaces/inkscape">` +
			`<g ink:label="trunk"><rect width="40" height="40"/></g></svg>`,
	}

	out, drawn := Merge([]Fragment{fragment}, canvas, setupTestLogger())

	require.Equal(t, 1, drawn)
	assert.Contains(t, out,
		`<g transform="translate(40,40)" xmlns:ink="http://www.inkscape.org/namespaces/inkscape"><g ink:label="trunk">`)
	assert.Equal(t, 1, strings.Count(out, "xmlns:xlink="))

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "g" && len(se.Attr) > 0 && se.Attr[0].Name.Local == "label" {
			assert.Equal(t, "http://www.inkscape.org/namespaces/inkscape", se.Attr[0].Name.Space)
		}
	}
}
