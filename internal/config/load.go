package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PIXELFORGE_SERVER_PORT.
const EnvPrefix = "PIXELFORGE"

// Load reads configuration from defaults, an optional pixelforge.{yaml,json,toml}
// file in the working directory or ./config, and PIXELFORGE_* environment variables.
// Environment variables take precedence over values from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the config file at path when path is non-empty.
// A missing default config file is not an error; a missing explicit one is.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pixelforge")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := mergeParamsFile(v, v.GetString("server.params_file")); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field against its validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// mergeParamsFile layers the saved parameter overrides over the config file.
// Environment variables still take precedence.
func mergeParamsFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read params file: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.output_dir", "./output/web")
	v.SetDefault("server.params_file", "./config/generation-params.json")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60*24)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model_name", "gpt-4o-mini")
	v.SetDefault("llm.stream", false)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_ms", 3000)
	v.SetDefault("llm.request_timeout_seconds", 600)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("generation.grid_cols", 16)
	v.SetDefault("generation.grid_rows", 12)
	v.SetDefault("generation.composite_concurrency", 5)
	v.SetDefault("generation.max_validation_retries", 3)
	v.SetDefault("generation.max_tokens", 8000)
	v.SetDefault("generation.max_composite_elements", 20)
	v.SetDefault("generation.min_content_length", 200)
	v.SetDefault("generation.max_svg_elements", 1000)
	v.SetDefault("generation.extended_description", false)
	v.SetDefault("generation.prompt_dir", "./config/prompts")
	v.SetDefault("generation.character_size", 128)
	v.SetDefault("generation.plot_map_size", 512)
	v.SetDefault("generation.plot_view_width", 640)
	v.SetDefault("generation.plot_view_height", 480)
	v.SetDefault("generation.object_detail_size", 256)

	v.SetDefault("image.pixel_scale", 4)
	v.SetDefault("image.background_color", "#0a0a1a")
	v.SetDefault("image.output_format", "png")
	v.SetDefault("image.quality", 100)

	v.SetDefault("task.max_concurrent_jobs", 3)
	v.SetDefault("task.queue_size", 100)

	v.SetDefault("library.dir", "./library")
}
