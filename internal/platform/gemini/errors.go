package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyConversation is returned when a request carries no user or assistant message.
	ErrEmptyConversation = errors.New("request has no conversation messages")
)
