package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// EngineConfig tunes the generation pipeline.
type EngineConfig struct {
	Grid                 Grid
	CompositeConcurrency int
	MaxValidationRetries int
	MaxCompositeElements int
	MinContentLength     int
	MaxSVGElements       int
	ExtendedDescription  bool
	Raster               RasterDefaults
}

// RasterDefaults apply when a request does not set its own raster options.
type RasterDefaults struct {
	PixelScale      int
	BackgroundColor string
	Format          string
	Quality         int
}

// ImageResult references the artifacts of one complete generation.
type ImageResult struct {
	SVGPath    string
	RasterPath string
	SVG        string
	Width      int
	Height     int
	Composite  bool
}

// Engine runs the per-task generation pipeline.
type Engine struct {
	client     Completer
	decomposer Decomposer
	library    Library
	artifacts  ArtifactStore
	catalog    *Catalog
	prompts    *Prompts
	validator  ContentValidator
	config     EngineConfig
	logger     *slog.Logger
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithLibrary enables substitution of library elements during composite generation.
func WithLibrary(l Library) EngineOption {
	return func(e *Engine) { e.library = l }
}

// WithDecomposer replaces the model-backed SceneDecomposer.
func WithDecomposer(d Decomposer) EngineOption {
	return func(e *Engine) { e.decomposer = d }
}

// NewEngine creates an Engine. The artifact store may be nil for callers that
// only use GenerateSingle, GenerateComposite and ClassifyElementType.
func NewEngine(
	client Completer,
	artifacts ArtifactStore,
	catalog *Catalog,
	prompts *Prompts,
	config EngineConfig,
	logger *slog.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: model client cannot be nil", ErrInvalidConfig)
	}
	if catalog == nil || prompts == nil {
		return nil, fmt.Errorf("%w: catalog and prompts are required", ErrInvalidConfig)
	}
	if config.MaxValidationRetries < 1 {
		return nil, fmt.Errorf("%w: max validation retries must be at least 1", ErrInvalidConfig)
	}
	if config.CompositeConcurrency < 1 {
		return nil, fmt.Errorf("%w: composite concurrency must be at least 1", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		client:    client,
		artifacts: artifacts,
		catalog:   catalog,
		prompts:   prompts,
		validator: ContentValidator{MinLength: config.MinContentLength},
		config:    config,
		logger:    logger.With("component", "generation_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.decomposer == nil {
		d, err := NewSceneDecomposer(client, prompts, config.Grid, config.MaxCompositeElements, logger)
		if err != nil {
			return nil, err
		}
		e.decomposer = d
	}

	return e, nil
}

// Catalog returns the generation type catalog used by the engine.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// GenerateSingle produces one SVG document for the options in a single model
// request, re-issuing the request while the reply is not valid content.
func (e *Engine) GenerateSingle(ctx context.Context, opts Options) (string, error) {
	return e.generateSingle(ctx, e.catalog.Plan(opts), opts)
}

// GenerateComposite decomposes the scene, resolves one fragment per element and
// merges them. It falls back to GenerateSingle when the type is not
// composite-eligible, when decomposition fails or yields nothing, and when no
// fragment could be resolved.
func (e *Engine) GenerateComposite(ctx context.Context, opts Options) (string, error) {
	plan := e.catalog.Plan(opts)
	if !plan.Spec.Composite {
		return e.generateSingle(ctx, plan, opts)
	}
	return e.generateComposite(ctx, plan, opts)
}

// GenerateCompleteImage runs the whole pipeline for one request and persists
// the vector document as {outputDir}/{name}.svg and its raster copy as
// {outputDir}/{name}.{format}.
func (e *Engine) GenerateCompleteImage(ctx context.Context, opts Options, outputDir, name string) (*ImageResult, error) {
	if strings.TrimSpace(opts.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidOptions)
	}
	if e.artifacts == nil {
		return nil, fmt.Errorf("%w: no artifact store configured", ErrInvalidConfig)
	}

	plan := e.catalog.Plan(opts)
	e.logger.InfoContext(ctx, "starting image generation",
		"name", name,
		"type", plan.Spec.Type,
		"width", plan.Width,
		"height", plan.Height,
		"composite", plan.Composite)

	var (
		svg string
		err error
	)
	if plan.Composite {
		svg, err = e.generateComposite(ctx, plan, opts)
	} else {
		svg, err = e.generateSingle(ctx, plan, opts)
	}
	if err != nil {
		return nil, err
	}

	raster := e.rasterOptions(plan, opts)
	result := &ImageResult{
		SVGPath:    filepath.Join(outputDir, name+".svg"),
		RasterPath: filepath.Join(outputDir, name+"."+raster.Format),
		SVG:        svg,
		Width:      plan.Width,
		Height:     plan.Height,
		Composite:  plan.Composite,
	}

	if err := e.artifacts.SaveVector(ctx, svg, result.SVGPath); err != nil {
		return nil, fmt.Errorf("saving vector document: %w", err)
	}
	if err := e.artifacts.Rasterize(ctx, svg, result.RasterPath, raster); err != nil {
		return nil, fmt.Errorf("rasterizing document: %w", err)
	}

	e.logger.InfoContext(ctx, "image generation completed",
		"name", name,
		"svg_path", result.SVGPath,
		"raster_path", result.RasterPath)
	return result, nil
}

// ClassifyElementType asks the model which element type a description belongs to.
// Replies that name no known type classify as ElementOther.
func (e *Engine) ClassifyElementType(ctx context.Context, description string) (ElementType, error) {
	messages, err := e.prompts.Classification(description)
	if err != nil {
		return "", err
	}
	raw, err := e.client.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)
	for _, t := range ElementTypes() {
		if normalized == string(t) || strings.Contains(normalized, string(t)) {
			return t, nil
		}
	}
	return ElementOther, nil
}

func (e *Engine) generateSingle(ctx context.Context, plan Plan, opts Options) (string, error) {
	description := opts.Description
	if e.config.ExtendedDescription {
		description = e.expandDescription(ctx, description, opts.Accents)
	}

	messages, err := e.prompts.Generation(GenerationData{
		Type:           plan.Spec.Type,
		Description:    description,
		Accents:        opts.Accents,
		Width:          plan.Width,
		Height:         plan.Height,
		SceneView:      plan.SceneView,
		MaxSVGElements: e.config.MaxSVGElements,
		MapBiome:       opts.MapBiome,
		MapEdges:       opts.MapEdges,
	})
	if err != nil {
		return "", err
	}

	return e.generateValidated(ctx, messages, plan.Width, plan.Height)
}

// generateValidated re-issues the same request until the reply is valid SVG.
// Transport failures are returned immediately; the client already retried them.
func (e *Engine) generateValidated(ctx context.Context, messages []Message, width, height int) (string, error) {
	maxAttempts := e.config.MaxValidationRetries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		raw, err := e.client.Complete(ctx, messages, WithMinLength(e.config.MinContentLength))
		if err == nil {
			var svg string
			if svg, err = e.validator.Extract(raw, width, height); err == nil {
				e.logger.DebugContext(ctx, "valid SVG generated", "attempt", attempt, "length", len(svg))
				return svg, nil
			}
		}
		if !errors.Is(err, ErrContentInvalid) {
			return "", err
		}

		lastErr = err
		e.logger.WarnContext(ctx, "invalid content from model, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)
	}

	return "", fmt.Errorf("%w (%d attempts): %w", ErrValidationExhausted, maxAttempts, lastErr)
}

func (e *Engine) generateComposite(ctx context.Context, plan Plan, opts Options) (string, error) {
	elements, err := e.decomposer.Decompose(ctx, opts.Description, opts.Accents, opts.UseLibrary)
	if err != nil || len(elements) == 0 {
		e.logger.WarnContext(ctx, "scene decomposition unavailable, falling back to single generation",
			"error", err,
			"element_count", len(elements))
		return e.generateSingle(ctx, plan, opts)
	}

	canvas := Canvas{
		Width:      plan.Width,
		Height:     plan.Height,
		Grid:       e.config.Grid,
		Background: e.backgroundColor(opts),
	}

	fragments := make([]*Fragment, len(elements))
	if opts.UseLibrary && e.library != nil {
		e.resolveFromLibrary(ctx, elements, fragments, canvas)
	}

	var pending []int
	for i, f := range fragments {
		if f == nil {
			pending = append(pending, i)
		}
	}

	sceneContext := buildSceneContext(opts.Description, opts.Accents, plan.SceneView)
	generated, errs := FanOut(ctx, pending, e.config.CompositeConcurrency,
		func(ctx context.Context, _ int, idx int) (*Fragment, error) {
			svg, err := e.generateFragment(ctx, elements[idx], sceneContext, canvas)
			if err != nil {
				return nil, err
			}
			return &Fragment{Element: elements[idx], SVG: svg}, nil
		})
	for j, idx := range pending {
		if errs[j] != nil {
			e.logger.WarnContext(ctx, "fragment generation failed, omitting element",
				"element_id", elements[idx].ID,
				"error", errs[j])
			continue
		}
		fragments[idx] = generated[j]
	}

	resolved := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f != nil {
			resolved = append(resolved, *f)
		}
	}
	if len(resolved) == 0 {
		e.logger.WarnContext(ctx, "no fragments resolved, falling back to single generation",
			"element_count", len(elements))
		return e.generateSingle(ctx, plan, opts)
	}

	merged, drawn := Merge(resolved, canvas, e.logger)
	e.logger.InfoContext(ctx, "composite scene merged",
		"element_count", len(elements),
		"fragment_count", drawn)
	return merged, nil
}

// resolveFromLibrary fills fragments for flagged elements from the first
// matching library entry. Lookup failures leave the slot empty.
func (e *Engine) resolveFromLibrary(ctx context.Context, elements []SceneElement, fragments []*Fragment, canvas Canvas) {
	entries, err := e.library.List(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "could not list library, generating all elements", "error", err)
		return
	}

	for i, el := range elements {
		if !el.UseFromLibrary || el.ElementType == "" {
			continue
		}
		matches := FindByType(entries, el.ElementType, StylePixelArt)
		if len(matches) == 0 {
			continue
		}
		entry := matches[0]
		svg, err := e.library.Get(ctx, entry.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "library element unavailable",
				"element_id", el.ID,
				"library_id", entry.ID,
				"error", err)
			continue
		}
		fragments[i] = &Fragment{
			Element:      el,
			SVG:          svg,
			SourceWidth:  float64(entry.Width),
			SourceHeight: float64(entry.Height),
		}
		e.logger.DebugContext(ctx, "element resolved from library",
			"element_id", el.ID,
			"library_id", entry.ID)
	}
}

// generateFragment makes a single attempt; a failed fragment is omitted by the caller.
func (e *Engine) generateFragment(ctx context.Context, el SceneElement, sceneContext string, canvas Canvas) (string, error) {
	_, _, pw, ph := canvas.PixelRect(el.Rect)
	w, h := int(math.Round(pw)), int(math.Round(ph))

	messages, err := e.prompts.Fragment(FragmentData{
		SceneContext:        sceneContext,
		ElementDescription:  el.Description,
		Width:               w,
		Height:              h,
		MaxSVGElements:      e.config.MaxSVGElements,
		MaxFragmentElements: max(20, e.config.MaxSVGElements/3),
	})
	if err != nil {
		return "", err
	}

	raw, err := e.client.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	svg, err := e.validator.Extract(raw, w, h)
	if err != nil {
		return "", fmt.Errorf("fragment %s: %w", el.ID, err)
	}
	return svg, nil
}

// expandDescription enriches a description through the model. Failures keep
// the original description.
func (e *Engine) expandDescription(ctx context.Context, description, accents string) string {
	messages, err := e.prompts.Expansion(description, accents)
	if err != nil {
		e.logger.WarnContext(ctx, "could not render expansion prompt", "error", err)
		return description
	}
	raw, err := e.client.Complete(ctx, messages, WithMaxTokens(1024), WithTemperature(0.3))
	if err != nil {
		e.logger.WarnContext(ctx, "description expansion failed, using original description", "error", err)
		return description
	}
	expanded := strings.TrimSpace(raw)
	e.logger.DebugContext(ctx, "description expanded", "length", len(expanded))
	return expanded
}

func (e *Engine) backgroundColor(opts Options) string {
	if opts.BackgroundColor != "" {
		return opts.BackgroundColor
	}
	return e.config.Raster.BackgroundColor
}

func (e *Engine) rasterOptions(plan Plan, opts Options) RasterOptions {
	r := RasterOptions{
		Width:           plan.Width,
		Height:          plan.Height,
		BackgroundColor: e.backgroundColor(opts),
		PixelScale:      e.config.Raster.PixelScale,
		Format:          e.config.Raster.Format,
		Quality:         e.config.Raster.Quality,
	}
	if opts.PixelScale > 0 {
		r.PixelScale = opts.PixelScale
	}
	if opts.OutputFormat != "" {
		r.Format = opts.OutputFormat
	}
	if opts.Quality > 0 {
		r.Quality = opts.Quality
	}
	if r.Format == "" {
		r.Format = "png"
	}
	return r
}

func buildSceneContext(description, accents string, view SceneView) string {
	sc := description
	if accents != "" {
		sc += ". " + accents
	}
	if view == SceneViewFirstPerson {
		sc += ". First-person view, as seen through the player's eyes"
	}
	return sc
}
