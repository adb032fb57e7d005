package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/phrazzld/pixelforge/internal/generation"
)

const (
	completionsPath = "chat/completions"
	doneSentinel    = "[DONE]"
	// maxEventSize bounds a single server-sent event line.
	maxEventSize = 4 << 20
)

// Config holds the settings of a Transport.
type Config struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible API root, e.g. https://api.openai.com/v1/.
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// Transport sends chat requests to an OpenAI-compatible endpoint.
type Transport struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

var _ generation.Transport = (*Transport)(nil)

// NewTransport creates a Transport. The SDK's own retries are disabled; the
// model client owns the retry policy.
func NewTransport(config Config, logger *slog.Logger) (*Transport, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.RequestTimeout))
	}

	return &Transport{
		client: openai.NewClient(opts...),
		model:  config.Model,
		logger: logger.With("component", "openai_transport", "model", config.Model),
	}, nil
}

// Complete performs one buffered chat completion. A reply without content is
// returned as an empty string.
func (t *Transport) Complete(ctx context.Context, req generation.Request) (string, error) {
	t.logger.DebugContext(ctx, "requesting chat completion", "message_count", len(req.Messages))

	var httpResp *http.Response
	res, err := t.client.Chat.Completions.New(ctx, t.params(req), option.WithResponseInto(&httpResp))
	if err != nil {
		return "", classifyError(err, httpResp)
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	return res.Choices[0].Message.Content, nil
}

// Stream performs one streamed chat completion and yields the content delta
// of every event until the [DONE] sentinel.
func (t *Transport) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		t.logger.DebugContext(ctx, "streaming chat completion", "message_count", len(req.Messages))

		var (
			body     *http.Response
			httpResp *http.Response
		)
		err := t.client.Post(ctx, completionsPath, t.params(req), &body,
			option.WithJSONSet("stream", true),
			option.WithHeader("Accept", "text/event-stream"),
			option.WithResponseInto(&httpResp))
		if err != nil {
			yield("", classifyError(err, httpResp))
			return
		}
		defer body.Body.Close()

		scanner := bufio.NewScanner(body.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for scanner.Scan() {
			data, ok := eventData(scanner.Bytes())
			if !ok {
				continue
			}
			if string(data) == doneSentinel {
				return
			}

			var chunk openai.ChatCompletionChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				if !yield("", fmt.Errorf("%w: %w", generation.ErrMalformedChunk, err)) {
					return
				}
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", classifyError(err, nil))
		}
	}
}

func (t *Transport) params(req generation.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case generation.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case generation.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(t.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

// eventData returns the payload of a "data:" line.
func eventData(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	rest, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	return bytes.TrimSpace(rest), true
}

// classifyError marks server-side failures as transient. The status comes from
// the SDK error when it could decode one, otherwise from the raw response.
func classifyError(err error, resp *http.Response) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	} else if resp != nil {
		status = resp.StatusCode
	}

	switch {
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %w", generation.ErrTransientFailure, status, err)
	case status > 0:
		return fmt.Errorf("status %d: %w", status, err)
	default:
		return fmt.Errorf("chat completion request failed: %w", err)
	}
}
