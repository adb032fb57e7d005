package generation

import (
	"context"
	"iter"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a chat request.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage returns a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// Request is a single chat request sent to a Transport.
type Request struct {
	Messages  []Message
	MaxTokens int
	// Temperature is left to the service default when nil.
	Temperature *float64
}

// Transport executes chat requests against an external generative model service.
//
// Implementations must wrap server-side (5xx-class) failures with ErrTransientFailure
// so that the ModelClient can retry them. Any other error is treated as permanent.
type Transport interface {
	// Complete performs one buffered request and returns the full response text.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream performs one incremental request. Each yielded string is a content delta.
	// A chunk that cannot be decoded is reported as an error wrapping ErrMalformedChunk
	// and iteration continues; any other error ends the sequence.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}
