// Package config loads the service configuration from YAML, falling
// back to defaults when the file is absent. Secrets (API keys, license
// keys) stay in the environment, never in the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LLMConfig selects and tunes the chat completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai or gemini
	OpenAIModel string  `yaml:"openai_model"`
	GeminiModel string  `yaml:"gemini_model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ChromaConfig contains connection details for the vector store.
type ChromaConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai or ollama
	OpenAIModel string `yaml:"openai_model"`
	OpenAIBase  string `yaml:"openai_base_url"`
	OllamaModel string `yaml:"ollama_model"`
	OllamaURL   string `yaml:"ollama_url"`
}

// RetrievalConfig tunes chunking and search.
type RetrievalConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	// SimilarityThreshold is carried for operators tuning retrieval but
	// not enforced: ranked results are returned as-is.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	DocumentsDir  string `yaml:"documents_dir"`
	UsagePath     string `yaml:"usage_path"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Chroma    ChromaConfig    `yaml:"chroma"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads the config at path. A missing file returns defaults; a
// present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8006},
		LLM: LLMConfig{
			Provider:    "openai",
			OpenAIModel: "gpt-4o",
			GeminiModel: "gemini-2.5-flash",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Chroma: ChromaConfig{
			URL:        "http://localhost:8000",
			Collection: "queen_rag_collection",
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			OpenAIModel: "text-embedding-3-small",
			OpenAIBase:  "https://api.openai.com/v1",
			OllamaModel: "nomic-embed-text:v1.5",
			OllamaURL:   "http://localhost:11434",
		},
		Retrieval: RetrievalConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			TopK:                5,
			SimilarityThreshold: 0.7,
		},
		Storage: StorageConfig{
			DocumentsDir:  "./storage/documents",
			UsagePath:     "./storage/token_usage.json",
			MaxUploadSize: 50 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyDefaults fills zero-valued fields so a partial config file works.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.LLM.OpenAIModel == "" {
		cfg.LLM.OpenAIModel = def.LLM.OpenAIModel
	}
	if cfg.LLM.GeminiModel == "" {
		cfg.LLM.GeminiModel = def.LLM.GeminiModel
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Chroma.URL == "" {
		cfg.Chroma.URL = def.Chroma.URL
	}
	if cfg.Chroma.Collection == "" {
		cfg.Chroma.Collection = def.Chroma.Collection
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = def.Embedding.OpenAIModel
	}
	if cfg.Embedding.OpenAIBase == "" {
		cfg.Embedding.OpenAIBase = def.Embedding.OpenAIBase
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = def.Embedding.OllamaModel
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = def.Embedding.OllamaURL
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = def.Retrieval.ChunkSize
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = def.Retrieval.ChunkOverlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = def.Retrieval.SimilarityThreshold
	}
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = def.Storage.DocumentsDir
	}
	if cfg.Storage.UsagePath == "" {
		cfg.Storage.UsagePath = def.Storage.UsagePath
	}
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = def.Storage.MaxUploadSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}
