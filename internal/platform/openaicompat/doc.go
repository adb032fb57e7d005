// Package openaicompat implements generation.Transport for OpenAI-compatible
// chat completion endpoints using the openai-go SDK. Buffered requests go
// through the typed client; streamed requests read the server-sent events
// directly so that one undecodable chunk does not abort the whole response.
package openaicompat
