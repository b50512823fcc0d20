package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Vector struct {
			DSN string `mapstructure:"dsn"`
		} `mapstructure:"vector"`
		Analytics struct {
			DSN string `mapstructure:"dsn"`
		} `mapstructure:"analytics"`
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	// ObjectStore may point at a different Redis than the task queue.
	ObjectStore struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"object_store"`

	Embedding struct {
		OpenaiApiKey string `mapstructure:"openai_api_key"`
		Model        string `mapstructure:"model"`
		Dimension    int    `mapstructure:"dimension"`
	} `mapstructure:"embedding"`

	OCR struct {
		GoogleApiKey string `mapstructure:"google_api_key"`
		Model        string `mapstructure:"model"`
	} `mapstructure:"ocr"`

	Chunking struct {
		MaxTokens int `mapstructure:"max_tokens"`
		Overlap   int `mapstructure:"overlap"`
	} `mapstructure:"chunking"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	// Allow Viper to read environment variables. API keys are commonly set
	// through the environment only, so bind them explicitly.
	viper.AutomaticEnv()
	viper.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("ocr.google_api_key", "GOOGLE_API_KEY")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.ObjectStore.Address == "" {
		cfg.ObjectStore.Address = cfg.Redis.Address
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 10
	}
	if len(cfg.Worker.Queues) == 0 {
		cfg.Worker.Queues = map[string]int{"ingest": 5, "default": 1}
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = 1536
	}
	if cfg.OCR.Model == "" {
		cfg.OCR.Model = "gemini-1.5-flash"
	}
	if cfg.Chunking.MaxTokens <= 0 {
		cfg.Chunking.MaxTokens = 200
	}
	if cfg.Chunking.Overlap < 0 {
		cfg.Chunking.Overlap = 50
	}
}
