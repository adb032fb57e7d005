package generation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GenerationType is the semantic category of a requested image.
type GenerationType string

// Known generation types.
const (
	TypeMob          GenerationType = "mob"
	TypeNPC          GenerationType = "npc"
	TypePlayer       GenerationType = "player"
	TypePlotMap      GenerationType = "plot_map"
	TypePlotView     GenerationType = "plot_view"
	TypeObjectDetail GenerationType = "object_detail"
)

// DefaultGenerationType is used when a request does not name a type.
const DefaultGenerationType = TypePlotView

// GenerationTypes returns every known generation type in a stable order.
func GenerationTypes() []GenerationType {
	return []GenerationType{TypeMob, TypeNPC, TypePlayer, TypePlotMap, TypePlotView, TypeObjectDetail}
}

// ParseGenerationType parses a type name. An empty name yields DefaultGenerationType.
func ParseGenerationType(name string) (GenerationType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultGenerationType, nil
	}
	for _, t := range GenerationTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGenerationType, name)
}

// Mode is the prompt family used for a generation type.
type Mode string

const (
	ModeCharacter Mode = "character"
	ModeMap       Mode = "map"
	ModeScene     Mode = "scene"
	ModeObject    Mode = "object"
)

// SceneView selects the camera used for scenes.
type SceneView string

const (
	SceneViewDefault     SceneView = "default"
	SceneViewFirstPerson SceneView = "first_person"
)

// TypeSpec describes one generation type: its canonical canvas and whether it
// may be composed from decomposed fragments.
type TypeSpec struct {
	Type   GenerationType
	Mode   Mode
	Width  int
	Height int
	// SceneView, when set, overrides the view requested in Options.
	SceneView SceneView
	// Composite marks the type as eligible for composite generation.
	Composite bool
}

// Sizes holds the canonical canvas sizes of the generation types.
type Sizes struct {
	Character      int
	PlotMap        int
	PlotViewWidth  int
	PlotViewHeight int
	ObjectDetail   int
}

// Catalog maps generation types to their specs.
type Catalog struct {
	specs map[GenerationType]TypeSpec
}

// NewCatalog builds the catalog of generation types from configured sizes.
func NewCatalog(sizes Sizes) *Catalog {
	character := TypeSpec{Mode: ModeCharacter, Width: sizes.Character, Height: sizes.Character}

	specs := map[GenerationType]TypeSpec{
		TypeMob:     character,
		TypeNPC:     character,
		TypePlayer:  character,
		TypePlotMap: {Mode: ModeMap, Width: sizes.PlotMap, Height: sizes.PlotMap},
		TypePlotView: {
			Mode:      ModeScene,
			Width:     sizes.PlotViewWidth,
			Height:    sizes.PlotViewHeight,
			SceneView: SceneViewFirstPerson,
			Composite: true,
		},
		TypeObjectDetail: {Mode: ModeObject, Width: sizes.ObjectDetail, Height: sizes.ObjectDetail},
	}
	for t, spec := range specs {
		spec.Type = t
		specs[t] = spec
	}

	return &Catalog{specs: specs}
}

// Spec returns the spec of a known type.
func (c *Catalog) Spec(t GenerationType) (TypeSpec, error) {
	spec, ok := c.specs[t]
	if !ok {
		return TypeSpec{}, fmt.Errorf("%w: %q", ErrUnknownGenerationType, t)
	}
	return spec, nil
}

// Resolve returns the spec of t, falling back to DefaultGenerationType for
// empty or unknown types.
func (c *Catalog) Resolve(t GenerationType) TypeSpec {
	if spec, ok := c.specs[t]; ok {
		return spec
	}
	return c.specs[DefaultGenerationType]
}

// MapEdges describes what adjoins a map tile on each side.
type MapEdges struct {
	N string `json:"n,omitempty"`
	S string `json:"s,omitempty"`
	E string `json:"e,omitempty"`
	W string `json:"w,omitempty"`
}

// Empty reports whether no edge is described.
func (e *MapEdges) Empty() bool {
	return e == nil || (e.N == "" && e.S == "" && e.E == "" && e.W == "")
}

// Options is a generation request.
type Options struct {
	Description string         `json:"description"               validate:"required"`
	Accents     string         `json:"accents,omitempty"`
	Type        GenerationType `json:"type,omitempty"            validate:"omitempty,oneof=mob npc player plot_map plot_view object_detail"`
	// Composite requests composite generation. Nil means the type's default.
	Composite  *bool     `json:"composite,omitempty"`
	UseLibrary bool      `json:"useLibrary,omitempty"`
	SceneView  SceneView `json:"sceneView,omitempty"       validate:"omitempty,oneof=default first_person"`
	MapBiome   string    `json:"mapBiome,omitempty"`
	MapEdges   *MapEdges `json:"mapEdges,omitempty"`

	Width           int    `json:"width,omitempty"           validate:"omitempty,gte=64,lte=2048"`
	Height          int    `json:"height,omitempty"          validate:"omitempty,gte=64,lte=2048"`
	PixelScale      int    `json:"pixelScale,omitempty"      validate:"omitempty,gte=1,lte=16"`
	OutputFormat    string `json:"outputFormat,omitempty"    validate:"omitempty,oneof=png jpg"`
	Quality         int    `json:"quality,omitempty"         validate:"omitempty,gte=1,lte=100"`
	BackgroundColor string `json:"backgroundColor,omitempty" validate:"omitempty,hexcolor"`
}

var validate = validator.New()

// Validate checks the options, returning an error wrapping ErrInvalidOptions.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidOptions)
	}
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// Plan is the resolved form of Options: the type spec, the canvas and the
// generation path, decided once.
type Plan struct {
	Spec      TypeSpec
	Width     int
	Height    int
	SceneView SceneView
	Composite bool
}

// Plan resolves options against the catalog. Unknown types resolve to the
// default type, explicit width and height override the canonical canvas, and
// composite generation is chosen only for eligible types whose request does
// not explicitly disable it.
func (c *Catalog) Plan(opts Options) Plan {
	spec := c.Resolve(opts.Type)

	p := Plan{
		Spec:      spec,
		Width:     spec.Width,
		Height:    spec.Height,
		SceneView: opts.SceneView,
		Composite: spec.Composite && (opts.Composite == nil || *opts.Composite),
	}
	if opts.Width > 0 {
		p.Width = opts.Width
	}
	if opts.Height > 0 {
		p.Height = opts.Height
	}
	if spec.SceneView != "" {
		p.SceneView = spec.SceneView
	}
	if p.SceneView == "" {
		p.SceneView = SceneViewDefault
	}
	return p
}
