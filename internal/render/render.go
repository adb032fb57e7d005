package render

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// DefaultBackground is used when no background colour is requested.
const DefaultBackground = "#0a0a1a"

const defaultJPEGQuality = 90

// Store writes vector documents and their raster copies to the filesystem.
type Store struct {
	logger *slog.Logger
}

var _ generation.ArtifactStore = (*Store)(nil)

// NewStore creates a Store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger.With("component", "render_store")}
}

// SaveVector writes the SVG document to path, creating parent directories.
func (s *Store) SaveVector(ctx context.Context, svg, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("writing vector document: %w", err)
	}

	s.logger.DebugContext(ctx, "vector document saved", "path", path, "bytes", len(svg))
	return nil
}

// Rasterize renders the SVG document and encodes it to path in opts.Format.
func (s *Store) Rasterize(ctx context.Context, svg, path string, opts generation.RasterOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return err
	}

	img, err := Render(svg, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating raster file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := encode(w, img, format, opts.Quality); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing raster file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing raster file: %w", err)
	}

	s.logger.DebugContext(ctx, "raster document saved",
		"path", path,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return nil
}

// Render draws the SVG document into an opaque image of opts.Width by
// opts.Height pixels. A zero size falls back to the document's viewBox.
func Render(svg string, opts generation.RasterOptions) (*image.RGBA, error) {
	bg, err := ParseColor(opts.BackgroundColor)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parsing svg: %w", err)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = int(math.Round(icon.ViewBox.W))
	}
	if height <= 0 {
		height = int(math.Round(icon.ViewBox.H))
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = float64(width), float64(height)
	}

	scale := max(opts.PixelScale, 1)
	hiW, hiH := width*scale, height*scale

	hi := image.NewRGBA(image.Rect(0, 0, hiW, hiH))
	draw.Draw(hi, hi.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(hiW), float64(hiH))
	scanner := rasterx.NewScannerGV(hiW, hiH, hi, hi.Bounds())
	icon.Draw(rasterx.NewDasher(hiW, hiH, scanner), 1)

	if scale == 1 {
		return hi, nil
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.NearestNeighbor.Scale(out, out.Bounds(), hi, hi.Bounds(), draw.Over, nil)
	return out, nil
}

// ParseColor parses a #rgb or #rrggbb colour. An empty string is DefaultBackground.
func ParseColor(hex string) (colorful.Color, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		hex = DefaultBackground
	}
	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return c, nil
}

func normalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpg", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func encode(w io.Writer, img image.Image, format string, quality int) error {
	var err error
	switch format {
	case "jpg":
		if quality <= 0 || quality > 100 {
			quality = defaultJPEGQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}
