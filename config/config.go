package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canopya/canopya/embedder"
	"github.com/canopya/canopya/ingest"
	"github.com/canopya/canopya/llm"
	"github.com/canopya/canopya/observability"
	"github.com/canopya/canopya/rag"
	"github.com/canopya/canopya/tracestore"
	"github.com/canopya/canopya/vector"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host to bind to. Default: 0.0.0.0
	Host string `yaml:"host,omitempty"`

	// Port to listen on. Default: 8000
	Port int `yaml:"port,omitempty"`

	// ReadTimeout for incoming requests. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`

	// WriteTimeout covers generation, which can be slow on CPU-only
	// local models. Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// LoggerConfig configures logging behavior.
//
// Example:
//
//	logger:
//	  level: info
//	  file: canopya.log
//	  format: simple
type LoggerConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level,omitempty"`

	// File is the log file path; empty logs to stderr.
	File string `yaml:"file,omitempty"`

	// Format is "simple" (level + message) or "verbose" (adds timestamp).
	// Default: simple
	Format string `yaml:"format,omitempty"`
}

// SetDefaults applies default values.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
}

// Config is the root configuration for the assistant.
type Config struct {
	Server      ServerConfig          `yaml:"server,omitempty"`
	Logger      LoggerConfig          `yaml:"logger,omitempty"`
	Embedder    embedder.OllamaConfig `yaml:"embedder,omitempty"`
	VectorStore vector.FailoverConfig `yaml:"vector_store,omitempty"`
	LLM         llm.FailoverConfig    `yaml:"llm,omitempty"`
	RAG         rag.Config            `yaml:"rag,omitempty"`
	Traces      tracestore.Config     `yaml:"traces,omitempty"`
	Ingest      ingest.Config         `yaml:"ingest,omitempty"`
	Tracing     observability.Config  `yaml:"tracing,omitempty"`

	// SynonymsFile optionally extends the built-in query expansion
	// dictionary with a YAML file of term: [synonyms] entries.
	SynonymsFile string `yaml:"synonyms_file,omitempty"`
}

// SetDefaults cascades defaults through every section. A configuration
// with no backends at all gets a local-only setup that works out of the
// box: embedded chromem storage and a local Ollama generator.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	if c.VectorStore.Local == nil && c.VectorStore.Cloud == nil {
		c.VectorStore.Local = &vector.ProviderConfig{Type: vector.ProviderChromem}
	}
	if c.LLM.Local == nil && c.LLM.Cloud == nil {
		c.LLM.Local = &llm.OllamaConfig{}
	}
	c.VectorStore.SetDefaults()
	c.LLM.SetDefaults()
	c.RAG.SetDefaults()
	c.Traces.SetDefaults()
	c.Ingest.SetDefaults()
	c.Tracing.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// normalizeDurations rewrites "30s"-style strings under duration-bearing
// keys into nanosecond integers. yaml.v3 decodes integers into
// time.Duration fields but not duration strings.
func normalizeDurations(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if s, ok := value.(string); ok && durationKey(key) {
				if d, err := time.ParseDuration(s); err == nil {
					v[key] = int64(d)
					continue
				}
			}
			v[key] = normalizeDurations(value)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeDurations(item)
		}
		return v
	default:
		return v
	}
}

func durationKey(key string) bool {
	return strings.Contains(key, "timeout") || key == "retention"
}

// Default returns a ready-to-use configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads a YAML config file, expands ${VAR} environment references,
// applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Round-trip through a generic map so env expansion can preserve
	// non-string types (ports, timeouts, booleans).
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	expanded, err := yaml.Marshal(normalizeDurations(expandTree(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
