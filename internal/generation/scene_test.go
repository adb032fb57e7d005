package generation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGrid = Grid{Cols: 16, Rows: 12}

func TestParseScene_Normalization(t *testing.T) {
	raw := "Sure! Here is the scene:\n" + `[
		{"id": "sky", "description": "night sky", "gridX": 0, "gridY": 0, "gridW": 16, "gridH": 6, "zIndex": 0},
		{"description": "road", "gridX": -3, "gridY": 20, "gridW": 40, "zIndex": 1.7},
		{"id": "sign", "description": 42, "gridX": "14", "gridY": 2, "gridW": 5, "gridH": 0, "zIndex": -2,
		 "elementType": "sign", "useFromLibrary": true},
		{"id": "ufo", "description": "ufo", "elementType": "spaceship", "useFromLibrary": true},
		{"id": "lamp", "description": "lamp", "elementType": "lamp", "useFromLibrary": "yes"},
		"not an object"
	]` + "\nEnjoy."

	got, err := ParseScene(raw, testGrid, 20)
	require.NoError(t, err)

	want := []SceneElement{
		{ID: "sky", Description: "night sky", Rect: Rect{X: 0, Y: 0, W: 16, H: 6}},
		{ID: "element_1", Description: "road", Rect: Rect{X: 0, Y: 11, W: 16, H: 1}, ZIndex: 1},
		{
			ID: "sign", Description: "42", Rect: Rect{X: 14, Y: 2, W: 2, H: 1},
			ElementType: ElementSign, UseFromLibrary: true,
		},
		{ID: "ufo", Description: "ufo", Rect: Rect{X: 0, Y: 0, W: 1, H: 1}},
		{ID: "lamp", Description: "lamp", Rect: Rect{X: 0, Y: 0, W: 1, H: 1}, ElementType: ElementLamp},
		{ID: "element_5", Rect: Rect{X: 0, Y: 0, W: 1, H: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseScene() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseScene_SkipsBracketsBeforeArray(t *testing.T) {
	raw := "Here is the scene [grid 16x12]:\n```json\n" +
		`[{"id": "moon", "description": "full moon", "gridX": 12, "gridY": 1, "gridW": 2, "gridH": 2}]` +
		"\n```"

	got, err := ParseScene(raw, testGrid, 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "moon", got[0].ID)
	assert.Equal(t, Rect{X: 12, Y: 1, W: 2, H: 2}, got[0].Rect)
}

func TestParseScene_ClampsChildToParent(t *testing.T) {
	raw := `[
		{"id": "building", "gridX": 2, "gridY": 2, "gridW": 4, "gridH": 6, "zIndex": 1},
		{"id": "window", "gridX": 5, "gridY": 3, "gridW": 3, "gridH": 1, "zIndex": 2, "parentId": "building"},
		{"id": "door", "gridX": 3, "gridY": 6, "gridW": 1, "gridH": 2, "zIndex": 2, "parentId": "building"},
		{"id": "orphan", "gridX": 9, "gridY": 9, "gridW": 2, "gridH": 2, "parentId": "missing"}
	]`

	got, err := ParseScene(raw, testGrid, 20)
	require.NoError(t, err)
	require.Len(t, got, 4)

	parent := got[0].Rect
	assert.Equal(t, parent, got[1].Rect, "out-of-bounds child takes exactly the parent rectangle")
	assert.Equal(t, Rect{X: 3, Y: 6, W: 1, H: 2}, got[2].Rect, "contained child is untouched")
	assert.Equal(t, Rect{X: 9, Y: 9, W: 2, H: 2}, got[3].Rect, "unknown parent is ignored")
}

func TestParseScene_TruncatesToMaxElements(t *testing.T) {
	items := make([]string, 0, 30)
	for i := range 30 {
		items = append(items, fmt.Sprintf(`{"id": "e%d", "description": "item"}`, i))
	}
	raw := "[" + strings.Join(items, ",") + "]"

	got, err := ParseScene(raw, testGrid, 20)

	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.Equal(t, "e19", got[19].ID)
}

func TestParseScene_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no array", raw: "I would rather not."},
		{name: "invalid json", raw: `[{"id": "a",}]`},
		{name: "empty array", raw: "[]"},
		{name: "truncated array", raw: `[1, 2,`},
		{name: "only bracketed prose", raw: "See [figure 1] and [note]."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScene(tt.raw, testGrid, 20)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrDecompositionFailed)
		})
	}
}

func TestSceneDecomposer_Decompose(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	var seen []Message
	client := &stubCompleter{handler: func(kind callKind, messages []Message) (string, error) {
		seen = messages
		return `[{"id": "ground", "description": "asphalt", "gridX": 0, "gridY": 8, "gridW": 16, "gridH": 4}]`, nil
	}}

	d, err := NewSceneDecomposer(client, prompts, testGrid, 20, setupTestLogger())
	require.NoError(t, err)

	elements, err := d.Decompose(context.Background(), "a street", "rain", true)

	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "ground", elements[0].ID)
	assert.Equal(t, kindDecomposition, kindOf(seen))
	assert.Contains(t, seen[0].Content, "16 columns and 12 rows")
	assert.Contains(t, seen[0].Content, "elementType, useFromLibrary")
	assert.Contains(t, seen[1].Content, "Accents: rain")
}

func TestSceneDecomposer_TransportFailure(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)
	client := &stubCompleter{handler: func(callKind, []Message) (string, error) {
		return "", fmt.Errorf("%w: boom", ErrTransportFailure)
	}}
	d, err := NewSceneDecomposer(client, prompts, testGrid, 20, nil)
	require.NoError(t, err)

	_, err = d.Decompose(context.Background(), "a street", "", false)

	assert.ErrorIs(t, err, ErrDecompositionFailed)
	assert.ErrorIs(t, err, ErrTransportFailure)
}
