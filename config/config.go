// Package config loads the engine's configuration from a YAML file layered
// under environment variables (viper + godotenv): an LLM backend, a forge
// connection, orchestrator knobs (iteration/depth budgets, shell and forge
// timeouts, base branch, agent identity), and the operational sections
// (observability, resilience, security, health).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	yaverrors "github.com/yaverhq/yaver/errors"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig
	Orchestrator  OrchestratorConfig
	LLM           LLMConfig
	Forge         ForgeConfig
	Observability ObservabilityConfig
	Operations    OperationsConfig
	Security      SecurityConfig
	Health        HealthConfig
}

// AppConfig contains application-level configuration.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// OrchestratorConfig controls the driver's own budgets and the engine's
// identity on the forge. MaxTaskDepth bounds the planner's subtask cap
// (3 x MaxTaskDepth).
type OrchestratorConfig struct {
	RepoPath      string        `mapstructure:"repo_path"`
	BaseBranch    string        `mapstructure:"base_branch"`
	AgentUsername string        `mapstructure:"agent_username"`
	MaxIterations int           `mapstructure:"max_iterations"`
	MaxTaskDepth  int           `mapstructure:"max_task_depth"`
	ShellTimeout  time.Duration `mapstructure:"shell_timeout"`
	ForgeTimeout  time.Duration `mapstructure:"forge_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// LLMConfig contains the single wired LLM backend's configuration. The
// engine only depends on the Generator interface, so
// only the one concrete backend this module carries (OpenAI) is
// configured here; see generator/openai.go.
type LLMConfig struct {
	OpenAI  OpenAIConfig     `mapstructure:"openai"`
	Default DefaultLLMConfig `mapstructure:"default"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	OrgID  string `mapstructure:"org_id"`
}

type DefaultLLMConfig struct {
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ForgeConfig configures the remote-forge boundary. Provider selects
// which normalizing adapter (forge.GiteaClient or
// forge.GitHubClient) the caller constructs.
type ForgeConfig struct {
	Provider string `mapstructure:"provider"` // "gitea" or "github"
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	Owner    string `mapstructure:"owner"`
	Repo     string `mapstructure:"repo"`
}

// ObservabilityConfig contains observability configuration.
type ObservabilityConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Cost    CostConfig    `mapstructure:"cost"`
}

type TracingConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	Exporter      string  `mapstructure:"exporter"`
	JaegerURL     string  `mapstructure:"jaeger_endpoint"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

type MetricsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Port              int    `mapstructure:"port"`
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	Path              string `mapstructure:"path"`
}

type LoggingConfig struct {
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type CostConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	PricingFile          string  `mapstructure:"pricing_file"`
	BudgetAlertThreshold float64 `mapstructure:"budget_alert_threshold"`
	Currency             string  `mapstructure:"currency"`
}

// OperationsConfig contains operational controls configuration.
type OperationsConfig struct {
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Retry          RetryConfig          `mapstructure:"retry"`
}

type CircuitBreakerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold int           `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type RetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// SecurityConfig contains security configuration.
type SecurityConfig struct {
	HITLEnabled            bool `mapstructure:"hitl_enabled"`
	InputValidationEnabled bool `mapstructure:"input_validation_enabled"`
	MaxInputLength         int  `mapstructure:"max_input_length"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	CheckLLM   bool          `mapstructure:"check_llm"`
	CheckForge bool          `mapstructure:"check_forge"`
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found).
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "yaver")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	// Orchestrator
	v.SetDefault("orchestrator.repo_path", ".")
	v.SetDefault("orchestrator.base_branch", "main")
	v.SetDefault("orchestrator.agent_username", "")
	v.SetDefault("orchestrator.max_iterations", 25)
	v.SetDefault("orchestrator.max_task_depth", 3)
	v.SetDefault("orchestrator.shell_timeout", "60s")
	v.SetDefault("orchestrator.forge_timeout", "5s")
	v.SetDefault("orchestrator.poll_interval", "10s")

	// LLM
	v.SetDefault("llm.default.model", "gpt-4-turbo-preview")
	v.SetDefault("llm.default.temperature", 0.7)
	v.SetDefault("llm.default.max_tokens", 2000)

	// Forge
	v.SetDefault("forge.provider", "gitea")
	v.SetDefault("forge.base_url", "")

	// Observability
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.service_name", "yaver")
	v.SetDefault("observability.tracing.exporter", "jaeger")
	v.SetDefault("observability.tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.tracing.sampling_ratio", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9090)
	v.SetDefault("observability.metrics.prometheus_enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.logging.max_size_mb", 100)
	v.SetDefault("observability.logging.max_backups", 3)
	v.SetDefault("observability.logging.max_age_days", 28)

	v.SetDefault("observability.cost.enabled", true)
	v.SetDefault("observability.cost.pricing_file", "config/model_pricing.json")
	v.SetDefault("observability.cost.budget_alert_threshold", 100.0)
	v.SetDefault("observability.cost.currency", "USD")

	// Operations
	v.SetDefault("operations.circuit_breaker.enabled", true)
	v.SetDefault("operations.circuit_breaker.threshold", 5)
	v.SetDefault("operations.circuit_breaker.timeout", "60s")

	v.SetDefault("operations.rate_limit.enabled", true)
	v.SetDefault("operations.rate_limit.requests_per_second", 10.0)
	v.SetDefault("operations.rate_limit.burst", 20)

	v.SetDefault("operations.retry.enabled", true)
	v.SetDefault("operations.retry.max_attempts", 3)
	v.SetDefault("operations.retry.initial_interval", "1s")
	v.SetDefault("operations.retry.max_interval", "30s")
	v.SetDefault("operations.retry.multiplier", 2.0)

	// Security
	v.SetDefault("security.hitl_enabled", true)
	v.SetDefault("security.input_validation_enabled", true)
	v.SetDefault("security.max_input_length", 10000)

	// Health
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.check_llm", true)
	v.SetDefault("health.check_forge", true)
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("app.env", "APP_ENV")
	_ = v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	// Orchestrator
	_ = v.BindEnv("orchestrator.repo_path", "YAVER_REPO_PATH")
	_ = v.BindEnv("orchestrator.base_branch", "YAVER_BASE_BRANCH")
	_ = v.BindEnv("orchestrator.agent_username", "YAVER_AGENT_USERNAME")
	_ = v.BindEnv("orchestrator.max_iterations", "YAVER_MAX_ITERATIONS")
	_ = v.BindEnv("orchestrator.max_task_depth", "YAVER_MAX_TASK_DEPTH")
	_ = v.BindEnv("orchestrator.shell_timeout", "YAVER_SHELL_TIMEOUT")
	_ = v.BindEnv("orchestrator.forge_timeout", "YAVER_FORGE_TIMEOUT")
	_ = v.BindEnv("orchestrator.poll_interval", "YAVER_POLL_INTERVAL")

	// LLM
	_ = v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.openai.org_id", "OPENAI_ORG_ID")
	_ = v.BindEnv("llm.default.model", "DEFAULT_LLM_MODEL")
	_ = v.BindEnv("llm.default.temperature", "DEFAULT_LLM_TEMPERATURE")
	_ = v.BindEnv("llm.default.max_tokens", "DEFAULT_LLM_MAX_TOKENS")

	// Forge
	_ = v.BindEnv("forge.provider", "FORGE_PROVIDER")
	_ = v.BindEnv("forge.base_url", "FORGE_BASE_URL")
	_ = v.BindEnv("forge.token", "FORGE_TOKEN")
	_ = v.BindEnv("forge.owner", "FORGE_OWNER")
	_ = v.BindEnv("forge.repo", "FORGE_REPO")

	// Observability - Tracing
	_ = v.BindEnv("observability.tracing.enabled", "OTEL_ENABLED")
	_ = v.BindEnv("observability.tracing.service_name", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("observability.tracing.exporter", "OTEL_EXPORTER")
	_ = v.BindEnv("observability.tracing.jaeger_endpoint", "JAEGER_ENDPOINT")
	_ = v.BindEnv("observability.tracing.otlp_endpoint", "OTLP_ENDPOINT")
	_ = v.BindEnv("observability.tracing.sampling_ratio", "OTEL_SAMPLING_RATIO")

	// Observability - Metrics
	_ = v.BindEnv("observability.metrics.enabled", "METRICS_ENABLED")
	_ = v.BindEnv("observability.metrics.port", "METRICS_PORT")
	_ = v.BindEnv("observability.metrics.prometheus_enabled", "PROMETHEUS_ENABLED")
	_ = v.BindEnv("observability.metrics.path", "METRICS_PATH")

	// Observability - Logging
	_ = v.BindEnv("observability.logging.format", "LOG_FORMAT")
	_ = v.BindEnv("observability.logging.output", "LOG_OUTPUT")
	_ = v.BindEnv("observability.logging.file_path", "LOG_FILE_PATH")
	_ = v.BindEnv("observability.logging.max_size_mb", "LOG_MAX_SIZE_MB")
	_ = v.BindEnv("observability.logging.max_backups", "LOG_MAX_BACKUPS")
	_ = v.BindEnv("observability.logging.max_age_days", "LOG_MAX_AGE_DAYS")

	// Observability - Cost
	_ = v.BindEnv("observability.cost.enabled", "COST_TRACKING_ENABLED")
	_ = v.BindEnv("observability.cost.pricing_file", "COST_MODEL_PRICING_FILE")
	_ = v.BindEnv("observability.cost.budget_alert_threshold", "COST_BUDGET_ALERT_THRESHOLD")
	_ = v.BindEnv("observability.cost.currency", "COST_CURRENCY")

	// Operations
	_ = v.BindEnv("operations.circuit_breaker.enabled", "CIRCUIT_BREAKER_ENABLED")
	_ = v.BindEnv("operations.circuit_breaker.threshold", "CIRCUIT_BREAKER_THRESHOLD")
	_ = v.BindEnv("operations.circuit_breaker.timeout", "CIRCUIT_BREAKER_TIMEOUT")

	_ = v.BindEnv("operations.rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("operations.rate_limit.requests_per_second", "RATE_LIMIT_REQUESTS_PER_SECOND")
	_ = v.BindEnv("operations.rate_limit.burst", "RATE_LIMIT_BURST")

	_ = v.BindEnv("operations.retry.enabled", "RETRY_ENABLED")
	_ = v.BindEnv("operations.retry.max_attempts", "RETRY_MAX_ATTEMPTS")
	_ = v.BindEnv("operations.retry.initial_interval", "RETRY_INITIAL_INTERVAL")
	_ = v.BindEnv("operations.retry.max_interval", "RETRY_MAX_INTERVAL")
	_ = v.BindEnv("operations.retry.multiplier", "RETRY_MULTIPLIER")

	// Security
	_ = v.BindEnv("security.hitl_enabled", "SECURITY_HITL_ENABLED")
	_ = v.BindEnv("security.input_validation_enabled", "SECURITY_INPUT_VALIDATION_ENABLED")
	_ = v.BindEnv("security.max_input_length", "SECURITY_MAX_INPUT_LENGTH")

	// Health
	_ = v.BindEnv("health.enabled", "HEALTH_CHECK_ENABLED")
	_ = v.BindEnv("health.interval", "HEALTH_CHECK_INTERVAL")
	_ = v.BindEnv("health.check_llm", "READINESS_CHECK_LLM")
	_ = v.BindEnv("health.check_forge", "READINESS_CHECK_FORGE")
}

func validate(cfg *Config) error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[cfg.App.Env] {
		return fmt.Errorf("invalid app.env: must be development, staging, or production")
	}

	if cfg.Orchestrator.MaxIterations < 1 {
		return fmt.Errorf("invalid orchestrator.max_iterations: must be >= 1")
	}
	if cfg.Orchestrator.MaxTaskDepth < 1 {
		return fmt.Errorf("invalid orchestrator.max_task_depth: must be >= 1")
	}
	if cfg.Orchestrator.AgentUsername == "" {
		// A silently defaulted agent identity would let the reactive
		// monitor treat its own acknowledgement comments as reviewer
		// feedback, so an unset username is a hard error, never a guess.
		return yaverrors.NewConfigError("orchestrator", "agent_username", "is required: the reactive monitor needs it to tell its own comments apart from reviewer feedback")
	}

	validForgeProviders := map[string]bool{"gitea": true, "github": true}
	if !validForgeProviders[cfg.Forge.Provider] {
		return fmt.Errorf("invalid forge.provider: must be gitea or github")
	}

	if cfg.Observability.Tracing.SamplingRatio < 0 || cfg.Observability.Tracing.SamplingRatio > 1.0 {
		return fmt.Errorf("invalid observability.tracing.sampling_ratio: must be between 0.0 and 1.0")
	}

	if cfg.Operations.CircuitBreaker.Threshold < 1 {
		return fmt.Errorf("invalid operations.circuit_breaker.threshold: must be >= 1")
	}
	if cfg.Operations.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid operations.rate_limit.requests_per_second: must be > 0")
	}
	if cfg.Operations.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid operations.retry.max_attempts: must be >= 1")
	}

	return nil
}

// IsProduction reports whether the app is configured for production.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether the app is configured for development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsStaging reports whether the app is configured for staging.
func (c *AppConfig) IsStaging() bool {
	return c.Env == "staging"
}
