package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/pixelforge/internal/generation"
)

// Element size bounds, in pixels.
const (
	MinElementSize     = 64
	MaxElementSize     = 1024
	DefaultElementSize = 512
)

// Generator is the part of the generation engine used to create elements.
type Generator interface {
	GenerateSingle(ctx context.Context, opts generation.Options) (string, error)
	ClassifyElementType(ctx context.Context, description string) (generation.ElementType, error)
}

// AddRequest describes a new element. Zero sizes use DefaultElementSize.
type AddRequest struct {
	Description string `json:"description"      validate:"required"`
	Width       int    `json:"width,omitempty"  validate:"omitempty,gte=64,lte=1024"`
	Height      int    `json:"height,omitempty" validate:"omitempty,gte=64,lte=1024"`
}

// Service adds generated elements to a FileLibrary.
type Service struct {
	library   *FileLibrary
	generator Generator
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(library *FileLibrary, generator Generator, logger *slog.Logger) (*Service, error) {
	if library == nil {
		return nil, fmt.Errorf("%w: library cannot be nil", generation.ErrInvalidConfig)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator cannot be nil", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		library:   library,
		generator: generator,
		now:       time.Now,
		logger:    logger.With("component", "library_service"),
	}, nil
}

// List returns the available library entries.
func (s *Service) List(ctx context.Context) ([]generation.LibraryEntry, error) {
	return s.library.List(ctx)
}

// Add generates an object_detail image for the description, classifies its
// element type through the model and stores it with the pixelart style.
func (s *Service) Add(ctx context.Context, req AddRequest) (generation.LibraryEntry, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return generation.LibraryEntry{}, fmt.Errorf("%w: description is required", generation.ErrInvalidOptions)
	}
	width := clampSize(req.Width)
	height := clampSize(req.Height)

	s.logger.InfoContext(ctx, "generating library element", "width", width, "height", height)

	svg, err := s.generator.GenerateSingle(ctx, generation.Options{
		Description: description,
		Type:        generation.TypeObjectDetail,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		return generation.LibraryEntry{}, fmt.Errorf("generating element: %w", err)
	}

	elementType, err := s.generator.ClassifyElementType(ctx, description)
	if err != nil {
		return generation.LibraryEntry{}, fmt.Errorf("classifying element: %w", err)
	}

	now := s.now().UTC()
	entry := generation.LibraryEntry{
		ID:          NewElementID(elementType, now),
		Type:        elementType,
		Description: description,
		Width:       width,
		Height:      height,
		Style:       generation.StylePixelArt,
		CreatedAt:   now,
	}
	if err := s.library.Save(ctx, entry, svg); err != nil {
		return generation.LibraryEntry{}, err
	}
	return entry, nil
}

func clampSize(n int) int {
	switch {
	case n == 0:
		return DefaultElementSize
	case n < MinElementSize:
		return MinElementSize
	case n > MaxElementSize:
		return MaxElementSize
	default:
		return n
	}
}
