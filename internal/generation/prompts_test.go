package generation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompts_GenerationForEveryType(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	for _, typ := range GenerationTypes() {
		t.Run(string(typ), func(t *testing.T) {
			messages, err := prompts.Generation(GenerationData{
				Type:           typ,
				Description:    "a rusty water tower",
				Width:          320,
				Height:         200,
				SceneView:      SceneViewDefault,
				MaxSVGElements: 1000,
			})
			require.NoError(t, err)
			require.Len(t, messages, 2)
			assert.Equal(t, RoleSystem, messages[0].Role)
			assert.Equal(t, RoleUser, messages[1].Role)
			assert.Contains(t, messages[0].Content, "under 1000 elements")
			assert.Contains(t, messages[1].Content, "a rusty water tower")
			assert.Contains(t, messages[1].Content, "320x200")
			assert.NotContains(t, messages[1].Content, "Accents:")
		})
	}
}

func TestPrompts_MapTileEdges(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	messages, err := prompts.Generation(GenerationData{
		Type:        TypePlotMap,
		Description: "swamp",
		Accents:     "fog",
		Width:       512,
		Height:      512,
		MapEdges:    &MapEdges{N: "river enters from the north"},
	})
	require.NoError(t, err)

	user := messages[1].Content
	assert.Contains(t, user, "Accents: fog")
	assert.Contains(t, user, "Biome of this tile: swamp")
	assert.Contains(t, user, "North (N): river enters from the north")
	assert.Contains(t, user, "South (S): open border")
}

func TestPrompts_FirstPersonScene(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	messages, err := prompts.Generation(GenerationData{
		Type: TypePlotView, Description: "market", Width: 640, Height: 480, SceneView: SceneViewFirstPerson,
	})
	require.NoError(t, err)
	assert.Contains(t, messages[1].Content, "first person")
}

func TestPrompts_Fragment(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	messages, err := prompts.Fragment(FragmentData{
		SceneContext:        "night city",
		ElementDescription:  "neon sign",
		Width:               80,
		Height:              40,
		MaxSVGElements:      1000,
		MaxFragmentElements: 333,
	})
	require.NoError(t, err)
	assert.Equal(t, kindFragment, kindOf(messages))
	assert.Contains(t, messages[0].Content, `viewBox="0 0 80 40"`)
	assert.Contains(t, messages[1].Content, "Scene context: night city")
	assert.Contains(t, messages[1].Content, "at most 333 elements")
}

func TestPrompts_Classification(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	messages, err := prompts.Classification("an arched wooden door")
	require.NoError(t, err)
	assert.Contains(t, messages[0].Content, "window, door, tree, lamp, sign, character, prop, other")
	assert.Contains(t, messages[1].Content, "an arched wooden door")
}

func TestPrompts_Names(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	names := prompts.Names()
	assert.Contains(t, names, "system_pixelart.tmpl")
	assert.Contains(t, names, "type_plot_view.tmpl")
	assert.IsNonDecreasing(t, names)

	text, err := prompts.Source("classification_user.tmpl")
	require.NoError(t, err)
	assert.Contains(t, text, "{{.Description}}")
}

func TestPrompts_Update(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	require.NoError(t, prompts.Update("classification_user.tmpl", "Which type is {{.Description}}?"))

	messages, err := prompts.Classification("a brass lamp")
	require.NoError(t, err)
	assert.Equal(t, "Which type is a brass lamp?", messages[1].Content)

	text, err := prompts.Source("classification_user.tmpl")
	require.NoError(t, err)
	assert.Equal(t, "Which type is {{.Description}}?", text)
}

func TestPrompts_UpdateRejected(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		text    string
		wantErr error
	}{
		{name: "unknown template", prompt: "../secrets.tmpl", text: "x", wantErr: ErrPromptNotFound},
		{name: "empty text", prompt: "expand_user.tmpl", text: "  \n", wantErr: ErrInvalidPrompt},
		{name: "unparseable", prompt: "expand_user.tmpl", text: "{{.Description", wantErr: ErrInvalidPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompts, err := LoadPrompts()
			require.NoError(t, err)

			err = prompts.Update(tt.prompt, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)

			// the previous templates stay in effect
			messages, err := prompts.Expansion("a mill", "")
			require.NoError(t, err)
			assert.Contains(t, messages[1].Content, "a mill")
		})
	}
}

func TestPrompts_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "expand_user.tmpl"), []byte("Expand: {{.Description}}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("{{"), 0o600))

	prompts, err := LoadPrompts(WithOverrideDir(dir))
	require.NoError(t, err)

	messages, err := prompts.Expansion("a quiet harbor", "")
	require.NoError(t, err)
	assert.Equal(t, "Expand: a quiet harbor", messages[1].Content)

	require.NoError(t, prompts.Update("classification_user.tmpl", "Classify {{.Description}}"))
	saved, err := os.ReadFile(filepath.Join(dir, "classification_user.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, "Classify {{.Description}}", string(saved))

	reloaded, err := LoadPrompts(WithOverrideDir(dir))
	require.NoError(t, err)
	messages, err = reloaded.Classification("a gate")
	require.NoError(t, err)
	assert.Equal(t, "Classify a gate", messages[1].Content)
}

func TestLoadPrompts_BrokenOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "expand_user.tmpl"), []byte("{{.Description"), 0o600))

	_, err := LoadPrompts(WithOverrideDir(dir))

	assert.ErrorIs(t, err, ErrInvalidConfig)
}
