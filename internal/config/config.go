package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Image      ImageConfig      `mapstructure:"image"      validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Library    LibraryConfig    `mapstructure:"library"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// OutputDir receives the vector and raster artifacts of every task.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	// ParamsFile holds parameter overrides saved over HTTP. It is merged over
	// the config file at load time and may not exist.
	ParamsFile string `mapstructure:"params_file"`
}

// AuthConfig contains authentication settings for the HTTP surface.
// The fields are checked when the server starts, not at load time, so the
// CLI can run without them.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1,lte=43200"`
	Username             string `mapstructure:"username"`
	// PasswordHash is a bcrypt hash, see cmd/hash-generator.
	PasswordHash string `mapstructure:"password_hash"`
}

// LLMConfig contains settings for the external generative model.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"   validate:"required,oneof=openai gemini"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"   validate:"omitempty,url"`
	ModelName string `mapstructure:"model_name" validate:"required"`
	// Stream switches the transport to incremental chunk delivery.
	Stream bool `mapstructure:"stream"`
	// MaxRetries is the number of transport retries after the first attempt.
	MaxRetries            int     `mapstructure:"max_retries"             validate:"gte=0,lte=10"`
	RetryDelayMs          int     `mapstructure:"retry_delay_ms"          validate:"gt=0"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	Temperature           float64 `mapstructure:"temperature"             validate:"gte=0,lte=2"`
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	GridCols             int  `mapstructure:"grid_cols"              validate:"gte=1,lte=32"`
	GridRows             int  `mapstructure:"grid_rows"              validate:"gte=1,lte=32"`
	CompositeConcurrency int  `mapstructure:"composite_concurrency"  validate:"gte=1,lte=20"`
	MaxValidationRetries int  `mapstructure:"max_validation_retries" validate:"gte=1,lte=10"`
	MaxTokens            int  `mapstructure:"max_tokens"             validate:"gte=2000,lte=32000"`
	MaxCompositeElements int  `mapstructure:"max_composite_elements" validate:"gte=1,lte=100"`
	MinContentLength     int  `mapstructure:"min_content_length"     validate:"gte=0"`
	MaxSVGElements       int  `mapstructure:"max_svg_elements"       validate:"gte=20,lte=2000"`
	ExtendedDescription  bool `mapstructure:"extended_description"`
	// PromptDir holds edited prompt templates that replace the built-in ones.
	PromptDir string `mapstructure:"prompt_dir"`

	CharacterSize    int `mapstructure:"character_size"     validate:"gte=32,lte=2048"`
	PlotMapSize      int `mapstructure:"plot_map_size"      validate:"gte=64,lte=2048"`
	PlotViewWidth    int `mapstructure:"plot_view_width"    validate:"gte=64,lte=2048"`
	PlotViewHeight   int `mapstructure:"plot_view_height"   validate:"gte=64,lte=2048"`
	ObjectDetailSize int `mapstructure:"object_detail_size" validate:"gte=32,lte=2048"`
}

// ImageConfig holds raster output defaults. Per-task options override them.
type ImageConfig struct {
	PixelScale      int    `mapstructure:"pixel_scale"      validate:"gte=1,lte=16"`
	BackgroundColor string `mapstructure:"background_color" validate:"required,hexcolor"`
	OutputFormat    string `mapstructure:"output_format"    validate:"required,oneof=png jpg"`
	Quality         int    `mapstructure:"quality"          validate:"gte=1,lte=100"`
}

// TaskConfig sizes the job-level worker pool.
type TaskConfig struct {
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs" validate:"gte=1,lte=20"`
	QueueSize         int `mapstructure:"queue_size"          validate:"gte=1"`
}

// LibraryConfig locates the reusable element library on disk.
type LibraryConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}
