package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root runtime configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	GitHub        GitHubConfig        `mapstructure:"github"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	DataDir       string              `mapstructure:"data_dir"`
}

// ServerConfig controls the HTTP/WebSocket server.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// GitHubConfig holds Device Flow and API settings.
type GitHubConfig struct {
	ClientID      string        `mapstructure:"client_id"`
	Scopes        []string      `mapstructure:"scopes"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	DeviceCodeURL string        `mapstructure:"device_code_url"`
	TokenURL      string        `mapstructure:"token_url"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
}

// ProvidersConfig holds LLM provider settings.
type ProvidersConfig struct {
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
}

// ProviderConfig configures one LLM provider.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OrchestratorConfig controls the task runner.
type OrchestratorConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// LoggingConfig mirrors logging.Config for file-based setup.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig controls tracing and metrics export.
type ObservabilityConfig struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	Exporter       string  `mapstructure:"exporter"` // otlp, zipkin
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ZipkinEndpoint string  `mapstructure:"zipkin_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
}

// DefaultDir returns the ThumbCode config directory, creating nothing.
func DefaultDir() string {
	if dir := strings.TrimSpace(os.Getenv("THUMBCODE_HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".thumbcode"
	}
	return filepath.Join(home, ".thumbcode")
}

// Load reads configuration from the given file (optional), the default
// config dir, and THUMBCODE_* environment variables, in ascending precedence
// of env over file over defaults.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("THUMBCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// Missing config file is fine; defaults plus env apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDir()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8420)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.device_code_url", "https://github.com/login/device/code")
	v.SetDefault("github.token_url", "https://github.com/login/oauth/access_token")
	v.SetDefault("github.scopes", []string{"repo", "read:user"})
	v.SetDefault("github.poll_interval", 5*time.Second)
	v.SetDefault("github.max_attempts", 180)

	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.anthropic.max_tokens", 8192)
	v.SetDefault("providers.anthropic.timeout", 120*time.Second)
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-4o")
	v.SetDefault("providers.openai.max_tokens", 8192)
	v.SetDefault("providers.openai.timeout", 120*time.Second)

	v.SetDefault("orchestrator.max_workers", 2)
	v.SetDefault("orchestrator.task_timeout", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.exporter", "otlp")
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.metrics_enabled", true)
}
