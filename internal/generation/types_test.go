package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Specs(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		typ       GenerationType
		mode      Mode
		width     int
		height    int
		composite bool
	}{
		{TypeMob, ModeCharacter, 128, 128, false},
		{TypeNPC, ModeCharacter, 128, 128, false},
		{TypePlayer, ModeCharacter, 128, 128, false},
		{TypePlotMap, ModeMap, 512, 512, false},
		{TypePlotView, ModeScene, 640, 480, true},
		{TypeObjectDetail, ModeObject, 256, 256, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			spec, err := catalog.Spec(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, spec.Type)
			assert.Equal(t, tt.mode, spec.Mode)
			assert.Equal(t, tt.width, spec.Width)
			assert.Equal(t, tt.height, spec.Height)
			assert.Equal(t, tt.composite, spec.Composite)
		})
	}

	_, err := catalog.Spec("dragon")
	assert.ErrorIs(t, err, ErrUnknownGenerationType)
	assert.Equal(t, TypePlotView, catalog.Resolve("dragon").Type)
	assert.Equal(t, TypePlotView, catalog.Resolve("").Type)
}

func TestCatalog_Plan(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		name          string
		opts          Options
		wantType      GenerationType
		wantComposite bool
		wantView      SceneView
		wantW, wantH  int
	}{
		{
			name:     "default type is a composite first-person scene",
			opts:     Options{Description: "x"},
			wantType: TypePlotView, wantComposite: true, wantView: SceneViewFirstPerson, wantW: 640, wantH: 480,
		},
		{
			name:     "composite can be switched off",
			opts:     Options{Description: "x", Type: TypePlotView, Composite: boolPtr(false)},
			wantType: TypePlotView, wantComposite: false, wantView: SceneViewFirstPerson, wantW: 640, wantH: 480,
		},
		{
			name:     "ineligible type ignores composite flag",
			opts:     Options{Description: "x", Type: TypeMob, Composite: boolPtr(true)},
			wantType: TypeMob, wantComposite: false, wantView: SceneViewDefault, wantW: 128, wantH: 128,
		},
		{
			name:     "fixed scene view overrides request",
			opts:     Options{Description: "x", Type: TypePlotView, SceneView: SceneViewDefault},
			wantType: TypePlotView, wantComposite: true, wantView: SceneViewFirstPerson, wantW: 640, wantH: 480,
		},
		{
			name:     "requested view kept for types without one",
			opts:     Options{Description: "x", Type: TypeObjectDetail, SceneView: SceneViewFirstPerson},
			wantType: TypeObjectDetail, wantView: SceneViewFirstPerson, wantW: 256, wantH: 256,
		},
		{
			name:     "explicit size overrides canvas",
			opts:     Options{Description: "x", Type: TypePlotMap, Width: 300, Height: 200},
			wantType: TypePlotMap, wantView: SceneViewDefault, wantW: 300, wantH: 200,
		},
		{
			name:     "unknown type resolves to default",
			opts:     Options{Description: "x", Type: "dragon"},
			wantType: TypePlotView, wantComposite: true, wantView: SceneViewFirstPerson, wantW: 640, wantH: 480,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := catalog.Plan(tt.opts)
			assert.Equal(t, tt.wantType, plan.Spec.Type)
			assert.Equal(t, tt.wantComposite, plan.Composite)
			assert.Equal(t, tt.wantView, plan.SceneView)
			assert.Equal(t, tt.wantW, plan.Width)
			assert.Equal(t, tt.wantH, plan.Height)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	valid := Options{Description: "a ruined gas station", Type: TypePlotView, OutputFormat: "jpg", Quality: 80}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{name: "blank description", mutate: func(o *Options) { o.Description = "   " }},
		{name: "unknown type", mutate: func(o *Options) { o.Type = "dragon" }},
		{name: "width too small", mutate: func(o *Options) { o.Width = 10 }},
		{name: "pixel scale too large", mutate: func(o *Options) { o.PixelScale = 64 }},
		{name: "webp", mutate: func(o *Options) { o.OutputFormat = "webp" }},
		{name: "bad colour", mutate: func(o *Options) { o.BackgroundColor = "navy" }},
		{name: "bad scene view", mutate: func(o *Options) { o.SceneView = "isometric" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
		})
	}
}

func TestParseGenerationType(t *testing.T) {
	got, err := ParseGenerationType("")
	require.NoError(t, err)
	assert.Equal(t, TypePlotView, got)

	got, err = ParseGenerationType(" npc ")
	require.NoError(t, err)
	assert.Equal(t, TypeNPC, got)

	_, err = ParseGenerationType("dragon")
	assert.ErrorIs(t, err, ErrUnknownGenerationType)
}
