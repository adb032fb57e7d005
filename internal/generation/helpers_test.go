package generation

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// svgDoc returns a valid SVG document of at least 200 bytes that carries marker.
func svgDoc(marker string) string {
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10" width="10" height="10">`+
			`<rect id="%s" x="0" y="0" width="4" height="4" fill="#112233"/>%s</svg>`,
		marker, strings.Repeat("<!-- pad -->", 12))
}

// stubTransport replays scripted responses.
type stubTransport struct {
	mu       sync.Mutex
	calls    int
	requests []Request
	complete func(call int, req Request) (string, error)
	stream   func(call int, req Request) []streamItem
}

type streamItem struct {
	delta string
	err   error
}

func (s *stubTransport) record(req Request) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	return s.calls
}

func (s *stubTransport) Complete(_ context.Context, req Request) (string, error) {
	call := s.record(req)
	return s.complete(call, req)
}

func (s *stubTransport) Stream(_ context.Context, req Request) iter.Seq2[string, error] {
	call := s.record(req)
	items := s.stream(call, req)
	return func(yield func(string, error) bool) {
		for _, it := range items {
			if !yield(it.delta, it.err) {
				return
			}
		}
	}
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// callKind identifies which pipeline step a request belongs to.
type callKind string

const (
	kindSingle         callKind = "single"
	kindDecomposition  callKind = "decomposition"
	kindFragment       callKind = "fragment"
	kindClassification callKind = "classification"
	kindExpansion      callKind = "expansion"
)

func kindOf(messages []Message) callKind {
	system := messages[0].Content
	switch {
	case strings.Contains(system, "break pixel-art scenes down"):
		return kindDecomposition
	case strings.Contains(system, "You are drawing ONE element"):
		return kindFragment
	case strings.Contains(system, "You classify"):
		return kindClassification
	case strings.Contains(system, "You improve descriptions"):
		return kindExpansion
	default:
		return kindSingle
	}
}

// stubCompleter routes calls by kind and records them.
type stubCompleter struct {
	mu      sync.Mutex
	calls   []callKind
	handler func(kind callKind, messages []Message) (string, error)
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message, opts ...CallOption) (string, error) {
	kind := kindOf(messages)
	s.mu.Lock()
	s.calls = append(s.calls, kind)
	s.mu.Unlock()

	o := callOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	text, err := s.handler(kind, messages)
	if err == nil && len(text) < o.minLength {
		return "", fmt.Errorf("%w: response too short", ErrContentInvalid)
	}
	return text, err
}

func (s *stubCompleter) count(kind callKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.calls {
		if k == kind {
			n++
		}
	}
	return n
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		Grid:                 Grid{Cols: 16, Rows: 12},
		CompositeConcurrency: 3,
		MaxValidationRetries: 3,
		MaxCompositeElements: 20,
		MinContentLength:     200,
		MaxSVGElements:       1000,
		Raster: RasterDefaults{
			PixelScale:      4,
			BackgroundColor: "#0a0a1a",
			Format:          "png",
			Quality:         100,
		},
	}
}

func testCatalog() *Catalog {
	return NewCatalog(Sizes{
		Character:      128,
		PlotMap:        512,
		PlotViewWidth:  640,
		PlotViewHeight: 480,
		ObjectDetail:   256,
	})
}

func newTestEngine(t *testing.T, client Completer, artifacts ArtifactStore, opts ...EngineOption) *Engine {
	t.Helper()
	prompts, err := LoadPrompts()
	require.NoError(t, err)
	engine, err := NewEngine(client, artifacts, testCatalog(), prompts, testEngineConfig(), setupTestLogger(), opts...)
	require.NoError(t, err)
	return engine
}

func boolPtr(b bool) *bool { return &b }
