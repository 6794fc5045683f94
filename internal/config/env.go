package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvVars struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"dev"`
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`

	SpoonacularAPIKey  string        `envconfig:"SPOONACULAR_API_KEY" required:"true"`
	SpoonacularBaseURL string        `envconfig:"SPOONACULAR_BASE_URL" default:"https://api.spoonacular.com"`
	SpoonacularTimeout time.Duration `envconfig:"SPOONACULAR_TIMEOUT" default:"10s"`

	// Inbound protection. An empty APIKey disables auth.
	APIKey         string  `envconfig:"API_KEY"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// none disables suggest_recipes.
	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"none"`
	LLMApiKey   string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel    string        `envconfig:"LLM_MODEL" default:"gpt-4.1"`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel   string `envconfig:"OLLAMA_MODEL" default:"qwen3:0.6b"`

	SessionBackend  string        `envconfig:"SESSION_BACKEND" default:"memory"`
	SessionBoltPath string        `envconfig:"SESSION_BOLT_PATH" default:"sessions.db"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	DefinitionsDir string `envconfig:"DEFINITIONS_DIR" default:"definitions"`
}

// LoadEnv reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadEnv(files ...string) (*EnvVars, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var v EnvVars
	if err := envconfig.Process("", &v); err != nil {
		return nil, err
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *EnvVars) validate() error {
	// envconfig accepts a required variable that is set but empty
	v.SpoonacularAPIKey = strings.TrimSpace(v.SpoonacularAPIKey)
	if v.SpoonacularAPIKey == "" {
		return fmt.Errorf("required key SPOONACULAR_API_KEY missing value")
	}

	v.LLMProvider = strings.ToLower(strings.TrimSpace(v.LLMProvider))
	switch v.LLMProvider {
	case "", "none":
		v.LLMProvider = "none"
	case "openai":
		if v.LLMApiKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", v.LLMProvider)
	}

	v.SessionBackend = strings.ToLower(strings.TrimSpace(v.SessionBackend))
	switch v.SessionBackend {
	case "memory", "bolt", "redis":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", v.SessionBackend)
	}

	if v.RateLimitRPS < 0 || v.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}
