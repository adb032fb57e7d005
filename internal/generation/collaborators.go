package generation

import (
	"context"
	"time"
)

// StylePixelArt is the style tag of library elements produced by this engine.
const StylePixelArt = "pixelart"

// LibraryEntry describes one reusable element stored in the library.
type LibraryEntry struct {
	ID          string      `json:"id"`
	Type        ElementType `json:"type"`
	Description string      `json:"description"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Style       string      `json:"style"`
	CreatedAt   time.Time   `json:"createdAt"`
	Tags        []string    `json:"tags,omitempty"`
}

// Library is the read side of the reusable element library.
type Library interface {
	// List returns every entry whose content is available.
	List(ctx context.Context) ([]LibraryEntry, error)
	// Get returns the SVG content of an entry.
	Get(ctx context.Context, id string) (string, error)
}

// FindByType returns the entries of the given type and style, in library order.
func FindByType(entries []LibraryEntry, t ElementType, style string) []LibraryEntry {
	var matches []LibraryEntry
	for _, e := range entries {
		if e.Type == t && e.Style == style {
			matches = append(matches, e)
		}
	}
	return matches
}

// RasterOptions controls rasterization of a vector document.
type RasterOptions struct {
	Width           int
	Height          int
	BackgroundColor string
	// PixelScale renders at this multiple of the target size before downscaling.
	PixelScale int
	Format     string
	Quality    int
}

// ArtifactStore persists generated documents. Failures surface as task failures.
type ArtifactStore interface {
	SaveVector(ctx context.Context, svg, path string) error
	Rasterize(ctx context.Context, svg, path string, opts RasterOptions) error
}
