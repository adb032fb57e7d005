package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Completer returns the raw text reply of the model for a list of messages.
// ModelClient is the production implementation; tests substitute stubs.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error)
}

// ClientConfig configures a ModelClient.
type ClientConfig struct {
	// Stream selects incremental chunk delivery instead of one buffered response.
	Stream bool
	// MaxRetries is the number of retries after the first attempt for transient failures.
	MaxRetries int
	// RetryDelay is the first backoff delay. Each subsequent delay doubles.
	RetryDelay time.Duration
	// MaxTokens is the default output token limit of a request.
	MaxTokens int
	// Temperature is sent with every request unless overridden per call.
	Temperature *float64
}

type callOptions struct {
	minLength   int
	maxTokens   int
	temperature *float64
}

// CallOption adjusts a single Complete call.
type CallOption func(*callOptions)

// WithMinLength rejects responses shorter than n characters with ErrContentInvalid.
func WithMinLength(n int) CallOption {
	return func(o *callOptions) { o.minLength = n }
}

// WithMaxTokens overrides the output token limit for one call.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) { o.maxTokens = n }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = &t }
}

// ModelClient executes chat requests with transport retry and response assembly.
type ModelClient struct {
	transport Transport
	config    ClientConfig
	logger    *slog.Logger
}

var _ Completer = (*ModelClient)(nil)

// NewModelClient creates a ModelClient around a transport.
func NewModelClient(transport Transport, config ClientConfig, logger *slog.Logger) (*ModelClient, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport cannot be nil", ErrInvalidConfig)
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("%w: retry delay must be positive", ErrInvalidConfig)
	}
	if config.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ModelClient{
		transport: transport,
		config:    config,
		logger:    logger.With("component", "model_client"),
	}, nil
}

// Complete sends the messages to the model and returns its reply.
//
// Transient transport failures are retried with exponential backoff. Other
// transport failures are returned immediately. An empty reply, or one shorter
// than the WithMinLength threshold, is a content failure and is never retried here.
func (c *ModelClient) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	o := callOptions{maxTokens: c.config.MaxTokens, temperature: c.config.Temperature}
	for _, opt := range opts {
		opt(&o)
	}

	req := Request{
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}

	maxAttempts := c.config.MaxRetries + 1
	backoff := retry.WithMaxRetries(uint64(c.config.MaxRetries), retry.NewExponential(c.config.RetryDelay))

	attempt := 0
	text, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		attempt++
		text, err := c.fetch(ctx, req)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrTransientFailure) {
			c.logger.WarnContext(ctx, "transient model service error",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
			return "", retry.RetryableError(err)
		}
		return "", err
	})
	if err != nil {
		if errors.Is(err, ErrTransientFailure) {
			return "", fmt.Errorf("%w after %d attempts: %w", ErrTransportFailure, attempt, err)
		}
		if errors.Is(err, ErrTransportFailure) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrContentInvalid)
	}
	if len(text) < o.minLength {
		return "", fmt.Errorf("%w: response too short (%d < %d characters)", ErrContentInvalid, len(text), o.minLength)
	}

	c.logger.DebugContext(ctx, "model response received",
		"attempts", attempt,
		"length", len(text),
		"stream", c.config.Stream)
	return text, nil
}

func (c *ModelClient) fetch(ctx context.Context, req Request) (string, error) {
	if !c.config.Stream {
		return c.transport.Complete(ctx, req)
	}

	var sb strings.Builder
	skipped := 0
	for delta, err := range c.transport.Stream(ctx, req) {
		if err != nil {
			if errors.Is(err, ErrMalformedChunk) {
				skipped++
				continue
			}
			return "", err
		}
		sb.WriteString(delta)
	}
	if skipped > 0 {
		c.logger.DebugContext(ctx, "skipped malformed stream chunks", "count", skipped)
	}
	return sb.String(), nil
}
