package generation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Prompts renders the embedded prompt templates into chat messages.
//
// Templates may be overridden at runtime with Update. When an override
// directory is configured, overrides are read from it at load time and
// written back to it on Update, so edits survive a restart.
type Prompts struct {
	mu        sync.RWMutex
	tmpl      *template.Template
	overrides map[string]string
	dir       string
	names     []string
}

// PromptOption configures LoadPrompts.
type PromptOption func(*Prompts)

// WithOverrideDir layers the templates found in dir over the embedded ones.
// Only files named after an embedded template are considered.
func WithOverrideDir(dir string) PromptOption {
	return func(p *Prompts) { p.dir = dir }
}

// LoadPrompts parses the embedded prompt templates and any overrides.
func LoadPrompts(opts ...PromptOption) (*Prompts, error) {
	entries, err := fs.Glob(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: listing prompt templates: %w", ErrInvalidConfig, err)
	}

	p := &Prompts{overrides: make(map[string]string)}
	for _, e := range entries {
		p.names = append(p.names, path.Base(e))
	}
	slices.Sort(p.names)
	for _, opt := range opts {
		opt(p)
	}

	if p.dir != "" {
		for _, name := range p.names {
			data, err := os.ReadFile(filepath.Join(p.dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%w: reading prompt override %s: %w", ErrInvalidConfig, name, err)
			}
			p.overrides[name] = string(data)
		}
	}

	tmpl, err := compilePrompts(p.overrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	p.tmpl = tmpl
	return p, nil
}

// compilePrompts parses the embedded templates and replaces the overridden ones.
func compilePrompts(overrides map[string]string) (*template.Template, error) {
	tmpl, err := template.New("prompts").
		Funcs(template.FuncMap{"sub": func(a, b int) int { return a - b }}).
		Option("missingkey=error").
		ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing prompt templates: %w", err)
	}
	for name, text := range overrides {
		if _, err := tmpl.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parsing prompt override %s: %w", name, err)
		}
	}
	return tmpl, nil
}

// Names returns the template names in sorted order.
func (p *Prompts) Names() []string {
	return slices.Clone(p.names)
}

// Source returns the current text of the named template, override included.
func (p *Prompts) Source(name string) (string, error) {
	if !slices.Contains(p.names, name) {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}

	p.mu.RLock()
	text, ok := p.overrides[name]
	p.mu.RUnlock()
	if ok {
		return text, nil
	}

	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("reading prompt %s: %w", name, err)
	}
	return string(data), nil
}

// Update replaces the named template. The new text must parse; on failure
// the previous templates stay in effect. Subsequent renders use the new text.
func (p *Prompts) Update(name, text string) error {
	if !slices.Contains(p.names, name) {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidPrompt, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	overrides := make(map[string]string, len(p.overrides)+1)
	for k, v := range p.overrides {
		overrides[k] = v
	}
	overrides[name] = text

	tmpl, err := compilePrompts(overrides)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPrompt, err)
	}

	if p.dir != "" {
		if err := os.MkdirAll(p.dir, 0o750); err != nil {
			return fmt.Errorf("creating prompt directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(p.dir, name), []byte(text), 0o600); err != nil {
			return fmt.Errorf("writing prompt %s: %w", name, err)
		}
	}

	p.overrides = overrides
	p.tmpl = tmpl
	return nil
}

// GenerationData fills the system prompt and the per-type user prompt.
type GenerationData struct {
	Type           GenerationType
	Description    string
	Accents        string
	Width          int
	Height         int
	SceneView      SceneView
	MaxSVGElements int
	MapBiome       string
	MapEdges       *MapEdges
}

// DecompositionData fills the scene decomposition prompts.
type DecompositionData struct {
	Description string
	Accents     string
	Grid        Grid
	MaxElements int
	UseLibrary  bool
}

// TypeList is the comma-separated list of element types.
func (DecompositionData) TypeList() string { return elementTypeList() }

// FragmentData fills the prompts for one scene element.
type FragmentData struct {
	SceneContext        string
	ElementDescription  string
	Width               int
	Height              int
	MaxSVGElements      int
	MaxFragmentElements int
}

// Generation returns the messages for a single-shot image of the given type.
func (p *Prompts) Generation(d GenerationData) ([]Message, error) {
	system, err := p.render("system_pixelart.tmpl", d)
	if err != nil {
		return nil, err
	}

	biome := ""
	if d.Type == TypePlotMap {
		biome = strings.TrimSpace(d.MapBiome)
		if biome == "" {
			biome = strings.TrimSpace(d.Description)
		}
	}
	var edges MapEdges
	if d.MapEdges != nil {
		edges = *d.MapEdges
	}

	user, err := p.render("type_"+string(d.Type)+".tmpl", struct {
		GenerationData
		Biome    string
		HasEdges bool
		Edges    MapEdges
	}{
		GenerationData: d,
		Biome:          biome,
		HasEdges:       d.Type == TypePlotMap && !d.MapEdges.Empty(),
		Edges:          edges,
	})
	if err != nil {
		return nil, err
	}

	return []Message{SystemMessage(system), UserMessage(user)}, nil
}

// Decomposition returns the messages for a scene breakdown.
func (p *Prompts) Decomposition(d DecompositionData) ([]Message, error) {
	return p.pair("decomposition_system.tmpl", "decomposition_user.tmpl", d)
}

// Fragment returns the messages for one scene element. The system prompt is
// the pixel-art prompt followed by the fragment constraints.
func (p *Prompts) Fragment(d FragmentData) ([]Message, error) {
	base, err := p.render("system_pixelart.tmpl", d)
	if err != nil {
		return nil, err
	}
	suffix, err := p.render("fragment_system.tmpl", d)
	if err != nil {
		return nil, err
	}
	user, err := p.render("fragment_user.tmpl", d)
	if err != nil {
		return nil, err
	}
	return []Message{SystemMessage(base + "\n\n" + suffix), UserMessage(user)}, nil
}

// Classification returns the messages asking for the element type of a description.
func (p *Prompts) Classification(description string) ([]Message, error) {
	return p.pair("classification_system.tmpl", "classification_user.tmpl", struct {
		Description string
		TypeList    string
	}{description, elementTypeList()})
}

// Expansion returns the messages asking the model to enrich a description.
func (p *Prompts) Expansion(description, accents string) ([]Message, error) {
	return p.pair("expand_system.tmpl", "expand_user.tmpl", struct {
		Description string
		Accents     string
	}{description, accents})
}

func (p *Prompts) pair(systemName, userName string, data any) ([]Message, error) {
	system, err := p.render(systemName, data)
	if err != nil {
		return nil, err
	}
	user, err := p.render(userName, data)
	if err != nil {
		return nil, err
	}
	return []Message{SystemMessage(system), UserMessage(user)}, nil
}

func (p *Prompts) render(name string, data any) (string, error) {
	p.mu.RLock()
	tmpl := p.tmpl
	p.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func elementTypeList() string {
	names := make([]string, 0, len(ElementTypes()))
	for _, t := range ElementTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
