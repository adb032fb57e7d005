// Package gemini implements generation.Transport on top of Google's Gemini
// API using the google.golang.org/genai client.
//
// System messages become the request's system instruction, assistant messages
// are sent with the model role, and HTTP 5xx responses are reported as
// generation.ErrTransientFailure so the model client can retry them.
package gemini
