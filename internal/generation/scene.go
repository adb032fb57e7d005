package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ElementType tags a scene element that may be reused from the library.
type ElementType string

const (
	ElementWindow    ElementType = "window"
	ElementDoor      ElementType = "door"
	ElementTree      ElementType = "tree"
	ElementLamp      ElementType = "lamp"
	ElementSign      ElementType = "sign"
	ElementCharacter ElementType = "character"
	ElementProp      ElementType = "prop"
	ElementOther     ElementType = "other"
)

// ElementTypes returns the closed set of element types in a stable order.
func ElementTypes() []ElementType {
	return []ElementType{
		ElementWindow, ElementDoor, ElementTree, ElementLamp,
		ElementSign, ElementCharacter, ElementProp, ElementOther,
	}
}

// ParseElementType reports whether name is a known element type.
func ParseElementType(name string) (ElementType, bool) {
	for _, t := range ElementTypes() {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Grid is the cell layout scenes are decomposed onto.
type Grid struct {
	Cols int
	Rows int
}

// Rect is a rectangle in grid cells.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// SceneElement is one positioned sub-element of a decomposed scene.
type SceneElement struct {
	ID          string
	Description string
	Rect        Rect
	ZIndex      int
	ParentID    string
	// ElementType is empty unless the model named a known type.
	ElementType    ElementType
	UseFromLibrary bool
}

// Decomposer breaks a scene description into positioned elements.
type Decomposer interface {
	Decompose(ctx context.Context, description, accents string, useLibrary bool) ([]SceneElement, error)
}

// SceneDecomposer asks the model for a scene breakdown in a single call.
type SceneDecomposer struct {
	client      Completer
	prompts     *Prompts
	grid        Grid
	maxElements int
	logger      *slog.Logger
}

var _ Decomposer = (*SceneDecomposer)(nil)

// NewSceneDecomposer creates a SceneDecomposer.
func NewSceneDecomposer(
	client Completer,
	prompts *Prompts,
	grid Grid,
	maxElements int,
	logger *slog.Logger,
) (*SceneDecomposer, error) {
	if client == nil || prompts == nil {
		return nil, fmt.Errorf("%w: client and prompts are required", ErrInvalidConfig)
	}
	if grid.Cols < 1 || grid.Rows < 1 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1", ErrInvalidConfig)
	}
	if maxElements < 1 {
		return nil, fmt.Errorf("%w: max elements must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SceneDecomposer{
		client:      client,
		prompts:     prompts,
		grid:        grid,
		maxElements: maxElements,
		logger:      logger.With("component", "scene_decomposer"),
	}, nil
}

// Decompose requests the breakdown and parses it with ParseScene.
// Transport and parse failures are both returned; the caller falls back to
// single-shot generation.
func (d *SceneDecomposer) Decompose(
	ctx context.Context,
	description, accents string,
	useLibrary bool,
) ([]SceneElement, error) {
	messages, err := d.prompts.Decomposition(DecompositionData{
		Description: description,
		Accents:     accents,
		Grid:        d.grid,
		MaxElements: d.maxElements,
		UseLibrary:  useLibrary,
	})
	if err != nil {
		return nil, err
	}

	raw, err := d.client.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompositionFailed, err)
	}

	elements, err := ParseScene(raw, d.grid, d.maxElements)
	if err != nil {
		d.logger.WarnContext(ctx, "could not parse scene decomposition", "error", err)
		return nil, err
	}

	d.logger.InfoContext(ctx, "scene decomposed", "element_count", len(elements))
	return elements, nil
}

// ParseScene extracts the first JSON array from a model reply and normalizes
// its items into scene elements.
//
// At most maxElements items are kept. Missing or invalid coordinates default
// to the origin and to a size of one cell, and every rectangle is clamped into
// the grid. An element type outside the known set is dropped together with the
// reuse flag. A child that extends outside its parent is moved to exactly the
// parent's rectangle.
func ParseScene(raw string, grid Grid, maxElements int) ([]SceneElement, error) {
	items, err := firstJSONArray(raw)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty element list", ErrDecompositionFailed)
	}

	n := min(len(items), maxElements)
	elements := make([]SceneElement, 0, n)
	for i := range n {
		obj, _ := items[i].(map[string]any)
		elements = append(elements, normalizeElement(obj, i, grid))
	}

	clampToParents(elements)
	return elements, nil
}

// firstJSONArray decodes the first '[' that starts a well-formed JSON array.
// Brackets in surrounding prose, such as "[grid 16x12]", are skipped.
func firstJSONArray(raw string) ([]any, error) {
	var firstErr error
	for offset := 0; offset < len(raw); {
		i := strings.IndexByte(raw[offset:], '[')
		if i == -1 {
			break
		}
		start := offset + i

		var items []any
		err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&items)
		if err == nil {
			return items, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		offset = start + 1
	}

	if firstErr == nil {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrDecompositionFailed)
	}
	return nil, fmt.Errorf("%w: invalid JSON: %w", ErrDecompositionFailed, firstErr)
}

func normalizeElement(obj map[string]any, index int, grid Grid) SceneElement {
	el := SceneElement{ID: fmt.Sprintf("element_%d", index)}
	if id, ok := obj["id"].(string); ok {
		el.ID = id
	}
	switch d := obj["description"].(type) {
	case nil:
	case string:
		el.Description = d
	default:
		el.Description = fmt.Sprint(d)
	}

	x := clamp(numberOr(obj["gridX"], 0), 0, grid.Cols-1)
	y := clamp(numberOr(obj["gridY"], 0), 0, grid.Rows-1)
	el.Rect = Rect{
		X: x,
		Y: y,
		W: clamp(numberOr(obj["gridW"], 1), 1, grid.Cols-x),
		H: clamp(numberOr(obj["gridH"], 1), 1, grid.Rows-y),
	}
	el.ZIndex = max(0, numberOr(obj["zIndex"], 0))

	if parent, ok := obj["parentId"].(string); ok {
		el.ParentID = parent
	}
	if name, ok := obj["elementType"].(string); ok {
		if t, known := ParseElementType(name); known {
			el.ElementType = t
		}
	}
	if reuse, ok := obj["useFromLibrary"].(bool); ok && reuse && el.ElementType != "" {
		el.UseFromLibrary = true
	}
	return el
}

// clampToParents resolves parents among the kept elements. A duplicated id
// refers to its last occurrence, and a parent moved earlier in the pass is
// seen at its corrected position.
func clampToParents(elements []SceneElement) {
	index := make(map[string]int, len(elements))
	for i, el := range elements {
		index[el.ID] = i
	}
	for i := range elements {
		el := &elements[i]
		if el.ParentID == "" {
			continue
		}
		p, ok := index[el.ParentID]
		if !ok {
			continue
		}
		if parent := elements[p].Rect; !parent.Contains(el.Rect) {
			el.Rect = parent
		}
	}
}

// numberOr coerces a JSON value to an integer, returning def for values that
// are missing, zero or not numeric.
func numberOr(v any, def int) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def
		}
		f = parsed
	case bool:
		if n {
			f = 1
		}
	default:
		return def
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(math.Floor(f))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
