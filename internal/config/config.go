package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendGemini    = "gemini"
	BackendGeminiSDK = "gemini-sdk"
	BackendClaude    = "claude"
	BackendOllama    = "ollama"
)

// defaultMaxUploadBytes matches the photo limit the upload form has always used.
const defaultMaxUploadBytes = 50 * 1024 * 1024

type Config struct {
	ListenAddr     string
	AdviceBackend  string
	GeminiAPIKey   string
	GeminiAPIURL   string
	GeminiModel    string
	ClaudeAPIKey   string
	ClaudeModel    string
	OllamaHost     string
	OllamaModel    string
	DBPath         string
	MaxUploadBytes int64
	Theme          string
	LogLevel       string
	LogFormat      string
	LogFile        string

	// invalid names variables whose value could not be parsed and was
	// replaced by its default.
	invalid []string
}

// Load reads configuration from the environment. Values from the secrets file
// named by SECRETS_FILE (default "secrets.env") are loaded first but never
// override variables that are already set. A missing secrets file is not an
// error.
func Load() *Config {
	_ = godotenv.Load(getEnv("SECRETS_FILE", "secrets.env"))

	maxUpload, ok := getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)

	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		AdviceBackend:  getEnv("ADVICE_BACKEND", BackendGemini),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL:   getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		ClaudeAPIKey:   getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:    getEnv("CLAUDE_MODEL", "claude-3-5-sonnet-latest"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llava"),
		DBPath:         getEnv("DB_PATH", "dietcoach.db"),
		MaxUploadBytes: maxUpload,
		Theme:          getEnv("THEME", "modern"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
	if !ok {
		cfg.invalid = append(cfg.invalid, "MAX_UPLOAD_BYTES")
	}
	return cfg
}

// Validate reports configuration that makes startup impossible, most notably
// a missing API key for the selected backend.
func (c *Config) Validate() error {
	if len(c.invalid) > 0 {
		return fmt.Errorf("invalid integer value for %s", strings.Join(c.invalid, ", "))
	}
	switch c.AdviceBackend {
	case BackendGemini, BackendGeminiSDK:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ADVICE_BACKEND=%s", c.AdviceBackend)
		}
	case BackendClaude:
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when ADVICE_BACKEND=claude")
		}
	case BackendOllama:
	default:
		return fmt.Errorf("unknown ADVICE_BACKEND %q", c.AdviceBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getEnvInt64 returns defaultVal when key is unset. It also returns
// defaultVal, with ok false, when the value is not an integer.
func getEnvInt64(key string, defaultVal int64) (int64, bool) {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, true
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal, false
	}
	return n, true
}
