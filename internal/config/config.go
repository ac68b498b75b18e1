package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Acquisition AcquisitionConfig `yaml:"acquisition" mapstructure:"acquisition"`
	Supadata    SupadataConfig    `yaml:"supadata" mapstructure:"supadata"`
	Apify       ApifyConfig       `yaml:"apify" mapstructure:"apify"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	Scorer      ScorerConfig      `yaml:"scorer" mapstructure:"scorer"`
	Visual      VisualConfig      `yaml:"visual" mapstructure:"visual"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// AcquisitionConfig controls provider retries and the legacy fallback.
type AcquisitionConfig struct {
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelayMs    int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	LegacyFallback bool    `yaml:"legacy_fallback" mapstructure:"legacy_fallback"`
	LegacyTimeout  int     `yaml:"legacy_timeout_secs" mapstructure:"legacy_timeout_secs"`
}

// SupadataConfig configures the metadata + transcript provider.
type SupadataConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollIntervalMs  int     `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	MaxPollAttempts int     `yaml:"max_poll_attempts" mapstructure:"max_poll_attempts"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// ApifyConfig configures the scraping-actor provider.
type ApifyConfig struct {
	Token          string            `yaml:"token" mapstructure:"token"`
	BaseURL        string            `yaml:"base_url" mapstructure:"base_url"`
	Actors         map[string]string `yaml:"actors" mapstructure:"actors"`
	TimeoutSecs    int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollIntervalMs int               `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	MaxWaitSecs    int               `yaml:"max_wait_secs" mapstructure:"max_wait_secs"`
}

// AnthropicConfig configures text extraction and visual consolidation.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeminiConfig configures per-frame vision analysis.
type GeminiConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScorerConfig holds the confidence thresholds that decide visual fallback.
type ScorerConfig struct {
	OverallThreshold     float64 `yaml:"overall_threshold" mapstructure:"overall_threshold"`
	IngredientThreshold  float64 `yaml:"ingredient_threshold" mapstructure:"ingredient_threshold"`
	InstructionThreshold float64 `yaml:"instruction_threshold" mapstructure:"instruction_threshold"`
	RequireQuantities    bool    `yaml:"require_quantities" mapstructure:"require_quantities"`
	RequireSteps         bool    `yaml:"require_steps" mapstructure:"require_steps"`
}

// VisualConfig configures the frame-based fallback pipeline.
type VisualConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	IncludeImages      bool   `yaml:"include_images" mapstructure:"include_images"`
	MaxFrames          int    `yaml:"max_frames" mapstructure:"max_frames"`
	MinFrameBytes      int    `yaml:"min_frame_bytes" mapstructure:"min_frame_bytes"`
	BatchSize          int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs       int    `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	MaxRetries         int    `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimitBackoffMs int    `yaml:"rate_limit_backoff_ms" mapstructure:"rate_limit_backoff_ms"`
	RetryDelayMs       int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	YtDlpPath          string `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	FFmpegPath         string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath        string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	WorkDir            string `yaml:"work_dir" mapstructure:"work_dir"`
	DownloadTimeout    int    `yaml:"download_timeout_secs" mapstructure:"download_timeout_secs"`
	FrameTimeout       int    `yaml:"frame_timeout_secs" mapstructure:"frame_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("acquisition.max_retries", 2)
	v.SetDefault("acquisition.base_delay_ms", 1000)
	v.SetDefault("acquisition.max_delay_ms", 10000)
	v.SetDefault("acquisition.jitter_fraction", 0.2)
	v.SetDefault("acquisition.legacy_fallback", true)
	v.SetDefault("acquisition.legacy_timeout_secs", 15)
	v.SetDefault("supadata.key", "")
	v.SetDefault("supadata.base_url", "https://api.supadata.ai/v1")
	v.SetDefault("supadata.timeout_secs", 30)
	v.SetDefault("supadata.poll_interval_ms", 1000)
	v.SetDefault("supadata.max_poll_attempts", 30)
	v.SetDefault("supadata.rate_limit_rps", 5)
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actors", map[string]string{
		"tiktok":    "clockworks~tiktok-scraper",
		"instagram": "apify~instagram-scraper",
		"youtube":   "streamers~youtube-scraper",
		"facebook":  "apify~facebook-posts-scraper",
		"pinterest": "epctex~pinterest-scraper",
	})
	v.SetDefault("apify.timeout_secs", 30)
	v.SetDefault("apify.poll_interval_ms", 2000)
	v.SetDefault("apify.max_wait_secs", 120)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout_secs", 30)
	v.SetDefault("scorer.overall_threshold", 0.7)
	v.SetDefault("scorer.ingredient_threshold", 0.6)
	v.SetDefault("scorer.instruction_threshold", 0.6)
	v.SetDefault("scorer.require_quantities", false)
	v.SetDefault("scorer.require_steps", true)
	v.SetDefault("visual.enabled", true)
	v.SetDefault("visual.include_images", false)
	v.SetDefault("visual.max_frames", 8)
	v.SetDefault("visual.min_frame_bytes", 2048)
	v.SetDefault("visual.batch_size", 3)
	v.SetDefault("visual.batch_delay_ms", 1000)
	v.SetDefault("visual.max_retries", 2)
	v.SetDefault("visual.rate_limit_backoff_ms", 2000)
	v.SetDefault("visual.retry_delay_ms", 1000)
	v.SetDefault("visual.ytdlp_path", "yt-dlp")
	v.SetDefault("visual.ffmpeg_path", "ffmpeg")
	v.SetDefault("visual.ffprobe_path", "ffprobe")
	v.SetDefault("visual.work_dir", "")
	v.SetDefault("visual.download_timeout_secs", 300)
	v.SetDefault("visual.frame_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts. Mode is
// one of "extract", "transcript" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "extract", "serve":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Visual.Enabled && c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required when visual.enabled is set")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "transcript":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Supadata.Key == "" && c.Apify.Token == "" && !c.Acquisition.LegacyFallback {
		errs = append(errs, "at least one of supadata.key, apify.token or acquisition.legacy_fallback is required")
	}
	if c.Acquisition.MaxRetries < 0 {
		errs = append(errs, "acquisition.max_retries must be >= 0")
	}
	if c.Acquisition.JitterFraction < 0 || c.Acquisition.JitterFraction > 1 {
		errs = append(errs, "acquisition.jitter_fraction must be between 0 and 1")
	}

	for name, v := range map[string]float64{
		"overall_threshold":     c.Scorer.OverallThreshold,
		"ingredient_threshold":  c.Scorer.IngredientThreshold,
		"instruction_threshold": c.Scorer.InstructionThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("scorer.%s must be between 0 and 1", name))
		}
	}

	if c.Visual.Enabled {
		if c.Visual.MaxFrames < 1 {
			errs = append(errs, "visual.max_frames must be >= 1")
		}
		if c.Visual.BatchSize < 1 || c.Visual.BatchSize > 10 {
			errs = append(errs, "visual.batch_size must be between 1 and 10")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
