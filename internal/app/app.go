package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/library"
	"github.com/phrazzld/pixelforge/internal/platform/gemini"
	"github.com/phrazzld/pixelforge/internal/platform/openaicompat"
	"github.com/phrazzld/pixelforge/internal/render"
)

// Components are the long-lived parts of the generation stack.
type Components struct {
	Engine  *generation.Engine
	Library *library.FileLibrary
	// Elements adds generated elements to Library.
	Elements *library.Service
	// Prompts are the templates Engine renders; edits apply to the next request.
	Prompts *generation.Prompts
}

// NewTransport creates the model transport for the configured provider.
func NewTransport(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Transport, error) {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "gemini":
		t, err := gemini.NewTransport(ctx, gemini.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.ModelName,
			RequestTimeout: timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "openai":
		t, err := openaicompat.NewTransport(openaicompat.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.ModelName,
			RequestTimeout: timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// NewModelClient wraps transport in a ModelClient configured from cfg.
func NewModelClient(transport generation.Transport, cfg *config.Config, logger *slog.Logger) (*generation.ModelClient, error) {
	temperature := cfg.LLM.Temperature
	return generation.NewModelClient(transport, generation.ClientConfig{
		Stream:      cfg.LLM.Stream,
		MaxRetries:  cfg.LLM.MaxRetries,
		RetryDelay:  time.Duration(cfg.LLM.RetryDelayMs) * time.Millisecond,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: &temperature,
	}, logger)
}

// EngineConfig maps the generation and image settings onto the engine.
func EngineConfig(cfg *config.Config) generation.EngineConfig {
	g := cfg.Generation
	return generation.EngineConfig{
		Grid:                 generation.Grid{Cols: g.GridCols, Rows: g.GridRows},
		CompositeConcurrency: g.CompositeConcurrency,
		MaxValidationRetries: g.MaxValidationRetries,
		MaxCompositeElements: g.MaxCompositeElements,
		MinContentLength:     g.MinContentLength,
		MaxSVGElements:       g.MaxSVGElements,
		ExtendedDescription:  g.ExtendedDescription,
		Raster: generation.RasterDefaults{
			PixelScale:      cfg.Image.PixelScale,
			BackgroundColor: cfg.Image.BackgroundColor,
			Format:          cfg.Image.OutputFormat,
			Quality:         cfg.Image.Quality,
		},
	}
}

// Catalog builds the generation type catalog from the configured sizes.
func Catalog(cfg *config.Config) *generation.Catalog {
	g := cfg.Generation
	return generation.NewCatalog(generation.Sizes{
		Character:      g.CharacterSize,
		PlotMap:        g.PlotMapSize,
		PlotViewWidth:  g.PlotViewWidth,
		PlotViewHeight: g.PlotViewHeight,
		ObjectDetail:   g.ObjectDetailSize,
	})
}

// Build assembles the engine, the element library and the library service
// around a transport.
func Build(transport generation.Transport, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	client, err := NewModelClient(transport, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	prompts, err := generation.LoadPrompts(generation.WithOverrideDir(cfg.Generation.PromptDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	lib, err := library.NewFileLibrary(cfg.Library.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open element library: %w", err)
	}

	engine, err := generation.NewEngine(
		client,
		render.NewStore(logger),
		Catalog(cfg),
		prompts,
		EngineConfig(cfg),
		logger,
		generation.WithLibrary(lib),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation engine: %w", err)
	}

	elements, err := library.NewService(lib, engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create library service: %w", err)
	}

	return &Components{Engine: engine, Library: lib, Elements: elements, Prompts: prompts}, nil
}
