package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	ChatModel     string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Retrieval and confidence routing
	SearchTopK        int           `envconfig:"SEARCH_TOP_K" default:"5"`
	ConfidenceHigh    float64       `envconfig:"CONFIDENCE_HIGH" default:"0.20"`
	ConfidenceLow     float64       `envconfig:"CONFIDENCE_LOW" default:"0.35"`
	AnswerTemperature float64       `envconfig:"ANSWER_TEMPERATURE" default:"0.2"`
	AnswerMaxTokens   int           `envconfig:"ANSWER_MAX_TOKENS" default:"500"`
	AnswerTimeout     time.Duration `envconfig:"ANSWER_TIMEOUT" default:"15s"`

	// Conversation memory
	MaxSessionMessages int `envconfig:"MAX_SESSION_MESSAGES" default:"20"`
	MaxContextChars    int `envconfig:"MAX_CONTEXT_CHARS" default:"3000"`

	// Knowledge management
	ReindexThreshold    int           `envconfig:"REINDEX_THRESHOLD" default:"10"`
	MaintenanceInterval time.Duration `envconfig:"MAINTENANCE_INTERVAL" default:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DESKMIND", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
