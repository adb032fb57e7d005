package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidConfig is returned when a component is constructed with an invalid configuration
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrTransientFailure marks a server-side transport error that may succeed on retry.
	// Transports wrap 5xx-class failures with it.
	ErrTransientFailure = errors.New("transient model service error")

	// ErrTransportFailure is returned when the model service could not be reached successfully
	ErrTransportFailure = errors.New("model service request failed")

	// ErrContentInvalid is returned when a response is empty, undersized or not a valid SVG document
	ErrContentInvalid = errors.New("invalid content from model")

	// ErrValidationExhausted is returned when every validation attempt produced invalid content
	ErrValidationExhausted = errors.New("no valid content after all attempts")

	// ErrDecompositionFailed is returned when a scene breakdown cannot be parsed or is empty
	ErrDecompositionFailed = errors.New("scene decomposition failed")

	// ErrMalformedChunk is yielded by streaming transports for a chunk that cannot be parsed.
	// The model client skips such chunks.
	ErrMalformedChunk = errors.New("malformed stream chunk")

	// ErrUnknownGenerationType is returned for a generation type outside the known set
	ErrUnknownGenerationType = errors.New("unknown generation type")

	// ErrInvalidOptions is returned when generation options fail validation
	ErrInvalidOptions = errors.New("invalid generation options")

	// ErrPromptNotFound is returned for a prompt template name outside the embedded set
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrInvalidPrompt is returned when replacement prompt text is empty or does not parse
	ErrInvalidPrompt = errors.New("invalid prompt template")
)
