// Package config loads server configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root server configuration.
type Config struct {
	Port       int    `yaml:"port"`
	DataDir    string `yaml:"data_dir"`
	QdrantAddr string `yaml:"qdrant_addr"`
	Collection string `yaml:"collection"`
	CORSOrigin string `yaml:"cors_origin"`

	Ollama  OllamaConfig  `yaml:"ollama"`
	NATS    NATSConfig    `yaml:"nats"`
	Limiter LimiterConfig `yaml:"limiter"`

	SearchTimeoutSecs int `yaml:"search_timeout_secs"`
}

// OllamaConfig configures the embedding backend.
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
	Dims  int    `yaml:"dims"`
}

// NATSConfig configures the optional explicit-reindex trigger. An empty
// URL disables NATS entirely.
type NATSConfig struct {
	URL            string `yaml:"url"`
	ReindexSubject string `yaml:"reindex_subject"`
}

// LimiterConfig configures the request rate limit.
type LimiterConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Load reads path (missing file is fine), applies defaults, then applies
// environment overrides so deployments can tweak single values without a
// config file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// Defaults + env only.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:       3003,
		DataDir:    "/data/docs",
		QdrantAddr: "localhost:6334",
		Collection: "unicity_kb",
		CORSOrigin: "*",
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "nomic-embed-text",
			Dims:  768,
		},
		NATS: NATSConfig{
			ReindexSubject: "kb.reindex",
		},
		Limiter: LimiterConfig{
			RPS:   10,
			Burst: 20,
		},
		SearchTimeoutSecs: 5,
	}
}

func applyEnv(cfg *Config) {
	envInt("PORT", &cfg.Port)
	envStr("DATA_DIR", &cfg.DataDir)
	envStr("QDRANT_ADDR", &cfg.QdrantAddr)
	envStr("COLLECTION", &cfg.Collection)
	envStr("CORS_ORIGIN", &cfg.CORSOrigin)
	envStr("OLLAMA_URL", &cfg.Ollama.URL)
	envStr("OLLAMA_MODEL", &cfg.Ollama.Model)
	envInt("OLLAMA_DIMS", &cfg.Ollama.Dims)
	envStr("NATS_URL", &cfg.NATS.URL)
	envStr("REINDEX_SUBJECT", &cfg.NATS.ReindexSubject)
	envInt("SEARCH_TIMEOUT_SECS", &cfg.SearchTimeoutSecs)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
