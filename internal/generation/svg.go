package generation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// svgRoot captures the root element of a document and its raw inner markup.
type svgRoot struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// prefixDecls renders the root's prefixed namespace declarations (xmlns:ink
// and the like) so they stay in scope once the inner markup is re-parented.
// xlink is skipped since merged documents declare it on their own root.
func (r *svgRoot) prefixDecls() string {
	var sb strings.Builder
	for _, a := range r.Attrs {
		if a.Name.Space != "xmlns" || a.Name.Local == "xlink" {
			continue
		}
		fmt.Fprintf(&sb, ` xmlns:%s="%s"`, a.Name.Local, escapeAttr(a.Value))
	}
	return sb.String()
}

// ExtractSVG locates the SVG payload inside a model reply, from the first
// opening <svg to the last closing </svg>. When the payload has no viewBox or
// no width attribute they are injected on the root element using the target size.
func ExtractSVG(raw string, width, height int) (string, error) {
	start := strings.Index(raw, "<svg")
	end := strings.LastIndex(raw, "</svg>")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no SVG markup found in response", ErrContentInvalid)
	}

	svg := raw[start : end+len("</svg>")]

	if !strings.Contains(svg, "viewBox") {
		svg = strings.Replace(svg, "<svg", fmt.Sprintf(`<svg viewBox="0 0 %d %d"`, width, height), 1)
	}
	if !strings.Contains(svg, "width=") {
		svg = strings.Replace(svg, "<svg", fmt.Sprintf(`<svg width="%d" height="%d"`, width, height), 1)
	}

	return svg, nil
}

// ContentValidator performs the structural check of generated SVG text.
type ContentValidator struct {
	// MinLength is the minimum accepted document length in bytes.
	MinLength int
}

// Validate returns an error wrapping ErrContentInvalid when svg is shorter than
// MinLength, is not well-formed XML, or does not have an <svg> root element.
func (v ContentValidator) Validate(svg string) error {
	if len(svg) < v.MinLength {
		return fmt.Errorf("%w: document too short (%d < %d bytes)", ErrContentInvalid, len(svg), v.MinLength)
	}

	root, err := parseSVG(svg)
	if err != nil {
		return err
	}
	if root.XMLName.Local != "svg" {
		return fmt.Errorf("%w: root element is <%s>, want <svg>", ErrContentInvalid, root.XMLName.Local)
	}
	return nil
}

// Extract combines ExtractSVG and Validate.
func (v ContentValidator) Extract(raw string, width, height int) (string, error) {
	svg, err := ExtractSVG(raw, width, height)
	if err != nil {
		return "", err
	}
	if err := v.Validate(svg); err != nil {
		return "", err
	}
	return svg, nil
}

func parseSVG(doc string) (*svgRoot, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.CharsetReader = charset.NewReaderLabel

	var root svgRoot
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document has no root element", ErrContentInvalid)
		}
		return nil, fmt.Errorf("%w: malformed XML: %w", ErrContentInvalid, err)
	}
	return &root, nil
}

// innerSVG returns the markup between the root element's tags together with
// the prefixed namespace declarations that markup may depend on.
func innerSVG(doc string) (inner, nsDecls string, err error) {
	root, err := parseSVG(doc)
	if err != nil {
		return "", "", err
	}
	if root.XMLName.Local != "svg" {
		return "", "", fmt.Errorf("%w: root element is <%s>, want <svg>", ErrContentInvalid, root.XMLName.Local)
	}
	return root.Inner, root.prefixDecls(), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
