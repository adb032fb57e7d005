// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config file and PIXELFORGE_* environment
// variables. It provides type-safe access to the settings of the server,
// the model transport, the generation pipeline and the worker pool.
package config
