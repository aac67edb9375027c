// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/Adak/services/graphrag"
	"github.com/AleutianAI/Adak/services/graphrag/chunk"
	"github.com/AleutianAI/Adak/services/graphrag/token"
	"github.com/AleutianAI/Adak/services/llm"
)

// Config is the CLI configuration. Defaults are overridden by
// config.yaml, which is overridden by ADAK_* environment variables,
// which are overridden by flags.
type Config struct {
	// Provider selects the completion/embedding backend: openai or
	// ollama. The adapters read their own OPENAI_*/OLLAMA_* settings.
	Provider string `yaml:"provider"`

	// DataDir is the durable storage directory. Empty runs in memory.
	DataDir string `yaml:"data_dir"`

	// TokenizerModel picks the tiktoken encoding; unknown models fall
	// back to cl100k_base.
	TokenizerModel string `yaml:"tokenizer_model"`

	Log struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		JSON  bool   `yaml:"json"`
		Quiet bool   `yaml:"quiet"`
	} `yaml:"log"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Chunk struct {
		MaxTokens     int `yaml:"max_tokens"`
		OverlapTokens int `yaml:"overlap_tokens"`
	} `yaml:"chunk"`

	Ingest struct {
		MaxConcurrentExtractions int    `yaml:"max_concurrent_extractions"`
		InputsDir                string `yaml:"inputs_dir"`
	} `yaml:"ingest"`

	Query struct {
		TopK int `yaml:"top_k"`
	} `yaml:"query"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func DefaultConfig() Config {
	var cfg Config
	cfg.Provider = "ollama"
	cfg.DataDir = "~/.adak/data"
	cfg.TokenizerModel = "gpt-4o-mini"
	cfg.Log.Level = "info"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8642
	cfg.Query.TopK = 10
	return cfg
}

// LoadConfig layers config.yaml (when present) and ADAK_* environment
// variables over the defaults. A missing file is not an error; a
// malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides fields from ADAK_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Provider, "ADAK_PROVIDER")
	setString(&c.DataDir, "ADAK_DATA_DIR")
	setString(&c.TokenizerModel, "ADAK_TOKENIZER_MODEL")
	setString(&c.Log.Level, "ADAK_LOG_LEVEL")
	setString(&c.Log.Dir, "ADAK_LOG_DIR")
	setString(&c.Server.Host, "ADAK_HOST")
	setInt(&c.Server.Port, "ADAK_PORT")
	setInt(&c.Chunk.MaxTokens, "ADAK_CHUNK_MAX_TOKENS")
	setInt(&c.Chunk.OverlapTokens, "ADAK_CHUNK_OVERLAP_TOKENS")
	setInt(&c.Ingest.MaxConcurrentExtractions, "ADAK_MAX_CONCURRENT_EXTRACTIONS")
	setString(&c.Ingest.InputsDir, "ADAK_INPUTS_DIR")
	setInt(&c.Query.TopK, "ADAK_TOP_K")
	setFloat(&c.RateLimit.RequestsPerSecond, "ADAK_RATE_LIMIT_RPS")
	setInt(&c.RateLimit.Burst, "ADAK_RATE_LIMIT_BURST")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

// buildService wires the configured provider, tokenizer, and stores into
// a ready engine. The caller owns Close.
func buildService(cfg Config) (*graphrag.Service, error) {
	var client llm.LLMClient
	var embedder llm.Embedder

	switch cfg.Provider {
	case "openai":
		c, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, err
		}
		client, embedder = c, c
	case "ollama":
		c, err := llm.NewOllamaClient()
		if err != nil {
			return nil, err
		}
		client, embedder = c, c
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or ollama)", cfg.Provider)
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = 1
		}
		limited, err := llm.NewRateLimited(client, cfg.RateLimit.RequestsPerSecond, burst)
		if err != nil {
			return nil, err
		}
		client = limited
		limitedEmb, err := llm.NewRateLimitedEmbedder(embedder, cfg.RateLimit.RequestsPerSecond, burst)
		if err != nil {
			return nil, err
		}
		embedder = limitedEmb
	}

	tokenizer, err := token.NewTiktoken(cfg.TokenizerModel)
	if err != nil {
		return nil, err
	}

	chunkOpts := chunk.DefaultOptions()
	if cfg.Chunk.MaxTokens > 0 {
		chunkOpts.MaxTokens = cfg.Chunk.MaxTokens
	}
	if cfg.Chunk.OverlapTokens > 0 {
		chunkOpts.OverlapTokens = cfg.Chunk.OverlapTokens
	}

	return graphrag.New(graphrag.Config{
		DataDir:                  expandHome(cfg.DataDir),
		LLM:                      client,
		Embedder:                 embedder,
		Tokenizer:                tokenizer,
		Chunk:                    chunkOpts,
		MaxConcurrentExtractions: cfg.Ingest.MaxConcurrentExtractions,
	})
}

// expandHome expands a leading ~ so data_dir defaults work out of the
// box.
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
