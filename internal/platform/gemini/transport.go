package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/pixelforge/internal/generation"
	"google.golang.org/genai"
)

// chunkErrorPrefix marks genai stream errors caused by a single undecodable
// event. genai (checked against v1.37.0) reports these as unexported
// fmt.Errorf values, so the message prefix is the only handle.
// TestTransport_StreamMalformedChunk fails if an upgrade changes the wording.
const chunkErrorPrefix = "iterateResponseStream:"

// Config holds the settings of a Transport.
type Config struct {
	APIKey string
	// BaseURL overrides the Gemini endpoint, mainly for tests and proxies.
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// Transport sends chat requests to the Gemini API.
type Transport struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ generation.Transport = (*Transport)(nil)

// NewTransport creates a Transport.
//
// Parameters:
//   - ctx: Context used while constructing the underlying client
//   - config: API key, optional base URL, model name and request timeout
//   - logger: A structured logger for operation logging
//
// Returns:
//   - A ready Transport, or an error wrapping generation.ErrInvalidConfig
func NewTransport(ctx context.Context, config Config, logger *slog.Logger) (*Transport, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.BaseURL,
		},
	}
	if config.RequestTimeout > 0 {
		clientConfig.HTTPOptions.Timeout = genai.Ptr(config.RequestTimeout)
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %w", generation.ErrInvalidConfig, err)
	}

	return &Transport{
		client: client,
		model:  config.Model,
		logger: logger.With("component", "gemini_transport", "model", config.Model),
	}, nil
}

// Complete performs one buffered generateContent call.
func (t *Transport) Complete(ctx context.Context, req generation.Request) (string, error) {
	contents, config, err := buildRequest(req)
	if err != nil {
		return "", err
	}

	t.logger.DebugContext(ctx, "calling Gemini API", "message_count", len(req.Messages))
	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, config)
	if err != nil {
		return "", classifyError(err)
	}
	return resp.Text(), nil
}

// Stream performs one streamGenerateContent call and yields the text of each event.
func (t *Transport) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, config, err := buildRequest(req)
		if err != nil {
			yield("", err)
			return
		}

		t.logger.DebugContext(ctx, "streaming from Gemini API", "message_count", len(req.Messages))
		for resp, err := range t.client.Models.GenerateContentStream(ctx, t.model, contents, config) {
			if err != nil {
				if strings.HasPrefix(err.Error(), chunkErrorPrefix) {
					if !yield("", fmt.Errorf("%w: %w", generation.ErrMalformedChunk, err)) {
						return
					}
					continue
				}
				yield("", classifyError(err))
				return
			}
			if resp == nil {
				continue
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func buildRequest(req generation.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case generation.RoleSystem:
			system = append(system, m.Content)
		case generation.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, ErrEmptyConversation
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	return contents, config, nil
}

// classifyError marks server-side failures as transient.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= http.StatusInternalServerError {
			return fmt.Errorf("%w: gemini status %d: %s", generation.ErrTransientFailure, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("gemini status %d: %s", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
