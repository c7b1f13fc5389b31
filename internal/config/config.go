package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Evolution dispatch modes
const (
	EvolutionModeDetached = "detached"
	EvolutionModeInline   = "inline"
)

// DefaultSeedPrompt is the version 1 system prompt written on an empty ledger
// MaxHistoryLimit bounds chat.history_limit
const MaxHistoryLimit = 500

const DefaultSeedPrompt = "You are a professional customer support AI. Respond clearly, politely, and concisely."

// Config holds all configuration for promptloop
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	EditorLLM LLMConfig       `json:"editor_llm"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Chat      ChatConfig      `json:"chat"`
	Evolution EvolutionConfig `json:"evolution"`
	Log       LogConfig       `json:"log"`
	Tracing   TracingConfig   `json:"tracing"`
}

// LLMConfig holds OpenAI-compatible chat completion API configuration
type LLMConfig struct {
	URL            string  `json:"url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver string `json:"driver"`
	// PostgresURL is used when Driver is postgres
	PostgresURL string `json:"postgres_url"`
	// Path is used for SQLite (CLI mode)
	Path string `json:"path"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
	// AdminToken guards prompt activation, evolution and reset. Empty disables the check.
	AdminToken string `json:"admin_token"`
}

// ChatConfig holds reply generation settings
type ChatConfig struct {
	HistoryLimit int `json:"history_limit"`
	// FallbackReply is returned when the model call fails. Empty means the error is returned.
	FallbackReply string `json:"fallback_reply"`
}

// EvolutionConfig holds prompt evolution settings
type EvolutionConfig struct {
	Cadence         int    `json:"cadence"`
	PayloadBudget   int    `json:"payload_budget"`
	RewriteAttempts int    `json:"rewrite_attempts"`
	CorpusPath      string `json:"corpus_path"`
	ReportPath      string `json:"report_path"`
	Mode            string `json:"mode"` // "detached" or "inline"
	TimeoutSeconds  int    `json:"timeout_seconds"`
	SeedPrompt      string `json:"seed_prompt"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `json:"level"` // debug, info, warn, error
	Development bool   `json:"development"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled bool `json:"enabled"`
	// OTLPEndpoint sends spans to an OTLP HTTP collector. Empty writes them to stderr.
	OTLPEndpoint string `json:"otlp_endpoint"`
	ServiceName  string `json:"service_name"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".promptloop")

	return &Config{
		LLM: LLMConfig{
			URL:            "https://api.groq.com/openai/v1",
			APIKey:         "",
			Model:          "llama-3.1-8b-instant",
			MaxTokens:      1024,
			Temperature:    0.7,
			TimeoutSeconds: 30,
		},
		// Empty fields fall back to LLM
		EditorLLM: LLMConfig{},
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			PostgresURL: "",
			Path:        filepath.Join(dataDir, "promptloop.db"),
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Chat: ChatConfig{
			HistoryLimit: 10,
		},
		Evolution: EvolutionConfig{
			Cadence:         5,
			PayloadBudget:   8000,
			RewriteAttempts: 2,
			CorpusPath:      filepath.Join(dataDir, "conversations.json"),
			ReportPath:      filepath.Join(dataDir, "behavior_report.json"),
			Mode:            EvolutionModeDetached,
			TimeoutSeconds:  120,
			SeedPrompt:      DefaultSeedPrompt,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "promptloop",
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

func loadLLMEnv(prefix string, cfg *LLMConfig) {
	envString(prefix+"_URL", &cfg.URL)
	envString(prefix+"_API_KEY", &cfg.APIKey)
	envString(prefix+"_MODEL", &cfg.Model)
	envInt(prefix+"_MAX_TOKENS", &cfg.MaxTokens)
	envFloat(prefix+"_TEMPERATURE", &cfg.Temperature)
	envInt(prefix+"_TIMEOUT_SECONDS", &cfg.TimeoutSeconds)
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	loadLLMEnv("PROMPTLOOP_LLM", &cfg.LLM)
	loadLLMEnv("PROMPTLOOP_EDITOR_LLM", &cfg.EditorLLM)

	envString("PROMPTLOOP_DB_DRIVER", &cfg.Database.Driver)
	envString("PROMPTLOOP_DB_PATH", &cfg.Database.Path)
	envString("PROMPTLOOP_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("PROMPTLOOP_SERVER_HOST", &cfg.Server.Host)
	envInt("PROMPTLOOP_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("PROMPTLOOP_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	envString("PROMPTLOOP_ADMIN_TOKEN", &cfg.Server.AdminToken)

	envInt("PROMPTLOOP_CHAT_HISTORY_LIMIT", &cfg.Chat.HistoryLimit)
	envString("PROMPTLOOP_CHAT_FALLBACK_REPLY", &cfg.Chat.FallbackReply)

	envInt("PROMPTLOOP_EVOLUTION_CADENCE", &cfg.Evolution.Cadence)
	envInt("PROMPTLOOP_EVOLUTION_PAYLOAD_BUDGET", &cfg.Evolution.PayloadBudget)
	envInt("PROMPTLOOP_EVOLUTION_REWRITE_ATTEMPTS", &cfg.Evolution.RewriteAttempts)
	envString("PROMPTLOOP_EVOLUTION_CORPUS_PATH", &cfg.Evolution.CorpusPath)
	envString("PROMPTLOOP_EVOLUTION_REPORT_PATH", &cfg.Evolution.ReportPath)
	envString("PROMPTLOOP_EVOLUTION_MODE", &cfg.Evolution.Mode)
	envInt("PROMPTLOOP_EVOLUTION_TIMEOUT_SECONDS", &cfg.Evolution.TimeoutSeconds)
	envString("PROMPTLOOP_EVOLUTION_SEED_PROMPT", &cfg.Evolution.SeedPrompt)

	envString("PROMPTLOOP_LOG_LEVEL", &cfg.Log.Level)
	envBool("PROMPTLOOP_LOG_DEVELOPMENT", &cfg.Log.Development)

	envBool("PROMPTLOOP_TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("PROMPTLOOP_OTLP_ENDPOINT", &cfg.Tracing.OTLPEndpoint)
	envString("PROMPTLOOP_SERVICE_NAME", &cfg.Tracing.ServiceName)

	if cfg.Database.Driver == DriverSQLite {
		dataDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Editor returns the LLM settings for the evolution stages, filling
// unset fields from the chat LLM.
func (c *Config) Editor() LLMConfig {
	editor := c.EditorLLM
	if editor.URL == "" {
		editor.URL = c.LLM.URL
	}
	if editor.APIKey == "" {
		editor.APIKey = c.LLM.APIKey
	}
	if editor.Model == "" {
		editor.Model = c.LLM.Model
	}
	if editor.MaxTokens == 0 {
		editor.MaxTokens = c.LLM.MaxTokens
	}
	if editor.Temperature == 0 {
		editor.Temperature = c.LLM.Temperature
	}
	if editor.TimeoutSeconds == 0 {
		editor.TimeoutSeconds = c.LLM.TimeoutSeconds
	}
	return editor
}

// IsPostgres returns true when the PostgreSQL driver is selected
func (c *Config) IsPostgres() bool {
	return c.Database.Driver == DriverPostgres
}

// IsEditorSeparate returns true when evolution uses its own API key or model
func (c *Config) IsEditorSeparate() bool {
	return c.EditorLLM.APIKey != "" || c.EditorLLM.Model != "" || c.EditorLLM.URL != ""
}

// Timeout returns the per-request LLM timeout
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Timeout returns the deadline for one evolution run
func (e EvolutionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func validateLLM(name string, l LLMConfig, errs []string) []string {
	if l.Temperature < 0 || l.Temperature > 2 {
		errs = append(errs, name+" temperature must be between 0 and 2")
	}
	if l.MaxTokens < 1 {
		errs = append(errs, name+" max_tokens must be positive")
	}
	if l.TimeoutSeconds < 1 {
		errs = append(errs, name+" timeout_seconds must be positive")
	}
	if l.URL == "" {
		errs = append(errs, name+" URL is required")
	} else if !isValidURL(l.URL) {
		errs = append(errs, name+" URL must be a valid URL")
	}
	return errs
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	errs = validateLLM("LLM", c.LLM, errs)
	if c.IsEditorSeparate() {
		errs = validateLLM("editor LLM", c.Editor(), errs)
	}

	// Database validation
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			errs = append(errs, "PostgreSQL URL is required for the postgres driver")
		} else if !isValidURL(c.Database.PostgresURL) {
			errs = append(errs, "PostgreSQL URL must be a valid URL")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database path is required for the sqlite driver")
		}
	default:
		errs = append(errs, "database driver must be 'postgres' or 'sqlite'")
	}

	// Chat validation
	if c.Chat.HistoryLimit < 1 || c.Chat.HistoryLimit > MaxHistoryLimit {
		errs = append(errs, fmt.Sprintf("chat history_limit must be between 1 and %d", MaxHistoryLimit))
	}

	// Evolution validation
	if c.Evolution.Cadence < 1 {
		errs = append(errs, "evolution cadence must be positive")
	}
	if c.Evolution.PayloadBudget < 1 {
		errs = append(errs, "evolution payload_budget must be positive")
	}
	if c.Evolution.RewriteAttempts < 1 {
		errs = append(errs, "evolution rewrite_attempts must be at least 1")
	}
	if c.Evolution.CorpusPath == "" {
		errs = append(errs, "evolution corpus_path is required")
	}
	if c.Evolution.Mode != EvolutionModeDetached && c.Evolution.Mode != EvolutionModeInline {
		errs = append(errs, "evolution mode must be 'detached' or 'inline'")
	}
	if c.Evolution.TimeoutSeconds < 1 {
		errs = append(errs, "evolution timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.Evolution.SeedPrompt) == "" {
		errs = append(errs, "evolution seed_prompt is required")
	}

	// Log validation
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log level must be one of debug, info, warn, error")
	}

	// Tracing validation
	if c.Tracing.OTLPEndpoint != "" && !isValidURL(c.Tracing.OTLPEndpoint) {
		errs = append(errs, "tracing otlp_endpoint must be a valid URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("PROMPTLOOP_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/promptloop/config.json first
	configDir := filepath.Join(homeDir, ".config", "promptloop")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.promptloop/config.json
	altPath := filepath.Join(homeDir, ".promptloop", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
