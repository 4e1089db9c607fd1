package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Ingest    IngestConfig    `toml:"ingest"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Observer  ObserverConfig  `toml:"observer"`
}

type IngestConfig struct {
	Root          string `toml:"root"`
	ForceUpdate   bool   `toml:"force_update"`
	SlowThreshold int    `toml:"slow_threshold_seconds"`
}

type ChunkingConfig struct {
	TargetSize int `toml:"target_size"`
	Overlap    int `toml:"overlap"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"` // "sqlite" or "postgres"
	SQLitePath  string `toml:"sqlite_path"`
	PostgresURL string `toml:"postgres_url"`
}

type EmbeddingConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Ingest:   IngestConfig{SlowThreshold: 30},
		Chunking: ChunkingConfig{TargetSize: 1500, Overlap: -1},
		Store:    StoreConfig{Backend: "sqlite", SQLitePath: "sheaf.db"},
		Embedding: EmbeddingConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "sheaf.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("SHEAF_ROOT"); v != "" {
		cfg.Ingest.Root = v
	}
	if v := os.Getenv("SHEAF_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("SHEAF_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("SHEAF_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("SHEAF_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SHEAF_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SHEAF_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("SHEAF_CHUNK_TARGET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Chunking.TargetSize = n
		}
	}
	if v := os.Getenv("SHEAF_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("SHEAF_FORCE_UPDATE"); v == "true" || v == "1" {
		cfg.Ingest.ForceUpdate = true
	}
	if v := os.Getenv("SHEAF_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
