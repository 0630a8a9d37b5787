package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	BatchSize    int    `yaml:"batch_size"`
	BatchDelayMS int    `yaml:"batch_delay_ms"`
}

type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap int  `yaml:"chunk_overlap"`
	SplitBlocks  bool `yaml:"split_blocks"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
}

const (
	defaultPort         = 8080
	defaultChunkSize    = 6000
	defaultChunkOverlap = 200
	defaultBatchSize    = 100
	defaultBatchDelayMS = 200
)

// LoadConfig reads a yaml config file. Environment references like
// ${VOYAGE_API_KEY} are expanded before parsing so secrets stay out of
// the file itself.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = defaultChunkSize
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = defaultChunkOverlap
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = defaultBatchSize
	}
	if c.Embedding.BatchDelayMS == 0 {
		c.Embedding.BatchDelayMS = defaultBatchDelayMS
	}
}
