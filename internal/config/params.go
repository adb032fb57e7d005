package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Params is the flat view of the tunable generation settings exposed over
// HTTP. Secrets and infrastructure settings are never part of it.
type Params struct {
	SceneWidth           int    `json:"sceneWidth"`
	SceneHeight          int    `json:"sceneHeight"`
	ObjectSize           int    `json:"objectSize"`
	CharacterSize        int    `json:"characterSize"`
	MapSize              int    `json:"mapSize"`
	MaxConcurrentJobs    int    `json:"maxConcurrentJobs"`
	GridCols             int    `json:"gridCols"`
	GridRows             int    `json:"gridRows"`
	CompositeConcurrency int    `json:"compositeConcurrency"`
	MaxCompositeElements int    `json:"maxCompositeElements"`
	MaxValidationRetries int    `json:"maxValidationRetries"`
	MaxGenerationTokens  int    `json:"maxGenerationTokens"`
	MaxSVGElements       int    `json:"maxSvgElements"`
	ExtendedDescription  bool   `json:"extendedDescription"`
	PixelScale           int    `json:"pixelScale"`
	OutputFormat         string `json:"outputFormat"`
	Quality              int    `json:"quality"`
	BackgroundColor      string `json:"backgroundColor"`
}

// paramKeys maps each Params JSON name to its configuration key.
var paramKeys = map[string]string{
	"sceneWidth":           "generation.plot_view_width",
	"sceneHeight":          "generation.plot_view_height",
	"objectSize":           "generation.object_detail_size",
	"characterSize":        "generation.character_size",
	"mapSize":              "generation.plot_map_size",
	"maxConcurrentJobs":    "task.max_concurrent_jobs",
	"gridCols":             "generation.grid_cols",
	"gridRows":             "generation.grid_rows",
	"compositeConcurrency": "generation.composite_concurrency",
	"maxCompositeElements": "generation.max_composite_elements",
	"maxValidationRetries": "generation.max_validation_retries",
	"maxGenerationTokens":  "generation.max_tokens",
	"maxSvgElements":       "generation.max_svg_elements",
	"extendedDescription":  "generation.extended_description",
	"pixelScale":           "image.pixel_scale",
	"outputFormat":         "image.output_format",
	"quality":              "image.quality",
	"backgroundColor":      "image.background_color",
}

// IsParam reports whether name is the JSON name of a Params field.
func IsParam(name string) bool {
	_, ok := paramKeys[name]
	return ok
}

// Params returns the tunable settings of c.
func (c *Config) Params() Params {
	g := c.Generation
	return Params{
		SceneWidth:           g.PlotViewWidth,
		SceneHeight:          g.PlotViewHeight,
		ObjectSize:           g.ObjectDetailSize,
		CharacterSize:        g.CharacterSize,
		MapSize:              g.PlotMapSize,
		MaxConcurrentJobs:    c.Task.MaxConcurrentJobs,
		GridCols:             g.GridCols,
		GridRows:             g.GridRows,
		CompositeConcurrency: g.CompositeConcurrency,
		MaxCompositeElements: g.MaxCompositeElements,
		MaxValidationRetries: g.MaxValidationRetries,
		MaxGenerationTokens:  g.MaxTokens,
		MaxSVGElements:       g.MaxSVGElements,
		ExtendedDescription:  g.ExtendedDescription,
		PixelScale:           c.Image.PixelScale,
		OutputFormat:         c.Image.OutputFormat,
		Quality:              c.Image.Quality,
		BackgroundColor:      c.Image.BackgroundColor,
	}
}

// WithParams returns a copy of c with p applied.
func (c Config) WithParams(p Params) Config {
	g := &c.Generation
	g.PlotViewWidth = p.SceneWidth
	g.PlotViewHeight = p.SceneHeight
	g.ObjectDetailSize = p.ObjectSize
	g.CharacterSize = p.CharacterSize
	g.PlotMapSize = p.MapSize
	g.GridCols = p.GridCols
	g.GridRows = p.GridRows
	g.CompositeConcurrency = p.CompositeConcurrency
	g.MaxCompositeElements = p.MaxCompositeElements
	g.MaxValidationRetries = p.MaxValidationRetries
	g.MaxTokens = p.MaxGenerationTokens
	g.MaxSVGElements = p.MaxSVGElements
	g.ExtendedDescription = p.ExtendedDescription
	c.Task.MaxConcurrentJobs = p.MaxConcurrentJobs
	c.Image.PixelScale = p.PixelScale
	c.Image.OutputFormat = p.OutputFormat
	c.Image.Quality = p.Quality
	c.Image.BackgroundColor = p.BackgroundColor
	return c
}

// ParamsStore persists parameter overrides to the params file. Saved values
// take effect the next time the configuration is loaded.
type ParamsStore struct {
	mu   sync.Mutex
	path string
}

// NewParamsStore creates a ParamsStore writing to path.
func NewParamsStore(path string) (*ParamsStore, error) {
	if path == "" {
		return nil, errors.New("params file path cannot be empty")
	}
	return &ParamsStore{path: path}, nil
}

// Path returns the params file location.
func (s *ParamsStore) Path() string {
	return s.path
}

// Save merges the named fields of p into the params file, keeping the values
// saved earlier for other fields.
func (s *ParamsStore) Save(p Params, fields []string) error {
	values, err := paramValues(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(s.path)
	if _, err := os.Stat(s.path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read params file: %w", err)
		}
	}

	for _, name := range fields {
		key, ok := paramKeys[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		v.Set(key, values[name])
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create params directory: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write params file: %w", err)
	}
	return nil
}

// paramValues returns the fields of p keyed by JSON name.
func paramValues(p Params) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return values, nil
}
