package library

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLibrary(t *testing.T) *FileLibrary {
	t.Helper()
	lib, err := NewFileLibrary(t.TempDir(), setupTestLogger())
	require.NoError(t, err)
	return lib
}

func entry(id string, t generation.ElementType) generation.LibraryEntry {
	return generation.LibraryEntry{
		ID:          id,
		Type:        t,
		Description: "a " + string(t),
		Width:       128,
		Height:      128,
		Style:       generation.StylePixelArt,
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewFileLibrary_EmptyDir(t *testing.T) {
	_, err := NewFileLibrary("  ", nil)
	assert.ErrorIs(t, err, ErrInvalidElement)
}

func TestFileLibrary_EmptyLibrary(t *testing.T) {
	lib := newTestLibrary(t)

	entries, err := lib.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileLibrary_SaveListGet(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	require.NoError(t, lib.Save(ctx, entry("door_1", generation.ElementDoor), "<svg>door</svg>"))
	require.NoError(t, lib.Save(ctx, entry("tree_2", generation.ElementTree), "<svg>tree</svg>"))

	entries, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "door_1", entries[0].ID)
	assert.Equal(t, "tree_2", entries[1].ID)
	assert.True(t, entries[0].CreatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	svg, err := lib.Get(ctx, "tree_2")
	require.NoError(t, err)
	assert.Equal(t, "<svg>tree</svg>", svg)

	_, err = os.Stat(filepath.Join(lib.Dir(), "elements", "door_1.svg"))
	assert.NoError(t, err)
}

func TestFileLibrary_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	require.NoError(t, lib.Save(ctx, entry("lamp_1", generation.ElementLamp), "<svg>v1</svg>"))
	updated := entry("lamp_1", generation.ElementLamp)
	updated.Description = "a brighter lamp"
	require.NoError(t, lib.Save(ctx, updated, "<svg>v2</svg>"))

	entries, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a brighter lamp", entries[0].Description)

	svg, err := lib.Get(ctx, "lamp_1")
	require.NoError(t, err)
	assert.Equal(t, "<svg>v2</svg>", svg)
}

func TestFileLibrary_ListSkipsMissingContent(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	require.NoError(t, lib.Save(ctx, entry("sign_1", generation.ElementSign), "<svg>sign</svg>"))
	require.NoError(t, lib.Save(ctx, entry("sign_2", generation.ElementSign), "<svg>sign</svg>"))
	require.NoError(t, os.Remove(filepath.Join(lib.Dir(), "elements", "sign_1.svg")))

	entries, err := lib.List(ctx)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sign_2", entries[0].ID)
}

func TestFileLibrary_CorruptIndex(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), "index.json"), []byte("{not json"), 0o600))

	entries, err := lib.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileLibrary_GetErrors(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Get(context.Background(), "window_404")
	assert.ErrorIs(t, err, ErrElementNotFound)

	_, err = lib.Get(context.Background(), "../index")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestFileLibrary_SaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	assert.ErrorIs(t, lib.Save(ctx, entry("", generation.ElementDoor), "<svg/>"), ErrInvalidElement)
	assert.ErrorIs(t, lib.Save(ctx, entry("a/b", generation.ElementDoor), "<svg/>"), ErrInvalidElement)
	assert.ErrorIs(t, lib.Save(ctx, entry("door_1", generation.ElementDoor), "   "), ErrInvalidElement)
}

func TestFileLibrary_WorksWithFindByType(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	detailed := entry("window_1", generation.ElementWindow)
	detailed.Style = "detailed"
	require.NoError(t, lib.Save(ctx, detailed, "<svg/>"))
	require.NoError(t, lib.Save(ctx, entry("window_2", generation.ElementWindow), "<svg/>"))

	entries, err := lib.List(ctx)
	require.NoError(t, err)

	matches := generation.FindByType(entries, generation.ElementWindow, generation.StylePixelArt)
	require.Len(t, matches, 1)
	assert.Equal(t, "window_2", matches[0].ID)
}

func TestNewElementID(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "window_1700000000123", NewElementID(generation.ElementWindow, now))
	assert.Equal(t, "street_lamp_1700000000123", NewElementID("street lamp", now))
	assert.Equal(t, "other_1700000000123", NewElementID("", now))
}
