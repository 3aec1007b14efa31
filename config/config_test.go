package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/canopya/canopya/llm"
	"github.com/canopya/canopya/vector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v, want nil", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.VectorStore.Local == nil || cfg.VectorStore.Local.Type != vector.ProviderChromem {
		t.Errorf("VectorStore.Local = %+v, want embedded chromem default", cfg.VectorStore.Local)
	}
	if cfg.LLM.Local == nil {
		t.Error("LLM.Local = nil, want local Ollama default")
	}
	if cfg.VectorStore.Collection != cfg.Ingest.Collection {
		t.Errorf("collections diverge: store %q, ingest %q",
			cfg.VectorStore.Collection, cfg.Ingest.Collection)
	}
	if cfg.RAG.LowConfidence != 0.5 {
		t.Errorf("RAG.LowConfidence = %v, want 0.5", cfg.RAG.LowConfidence)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
logger:
  level: debug
llm:
  mode: hybrid
  local:
    model: gemma2:2b
  cloud:
    base_url: https://ollama.com
    model: gpt-oss:120b
    api_key: test-key
rag:
  top_k: 8
  language: en
traces:
  retention: 72h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
	if cfg.LLM.Mode != llm.ModeHybrid || cfg.LLM.Cloud == nil || cfg.LLM.Cloud.APIKey != "test-key" {
		t.Errorf("LLM = %+v, want hybrid with cloud key", cfg.LLM)
	}
	if cfg.RAG.TopK != 8 || cfg.RAG.Language != "en" {
		t.Errorf("RAG = %+v, want top_k 8, language en", cfg.RAG)
	}
	if cfg.Traces.Retention != 72*time.Hour {
		t.Errorf("Traces.Retention = %v, want 72h", cfg.Traces.Retention)
	}
	// Unset sections still get defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "secret-from-env")
	t.Setenv("CANOPYA_PORT", "9200")

	path := writeConfig(t, `
server:
  port: ${CANOPYA_PORT:-8000}
llm:
  mode: cloud
  cloud:
    api_key: ${OLLAMA_API_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want env-expanded 9200", cfg.Server.Port)
	}
	if cfg.LLM.Cloud.APIKey != "secret-from-env" {
		t.Errorf("APIKey = %q, want env-expanded secret", cfg.LLM.Cloud.APIKey)
	}
}

func TestLoad_EnvDefaultUsedWhenUnset(t *testing.T) {
	os.Unsetenv("CANOPYA_MISSING_PORT")
	path := writeConfig(t, `
server:
  port: ${CANOPYA_MISSING_PORT:-8123}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want fallback 8123", cfg.Server.Port)
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, "logger:\n  level: shouting\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil for invalid log level, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() error = nil for missing file, want error")
	}
}

func TestServerConfigValidate(t *testing.T) {
	cfg := ServerConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil for out-of-range port, want error")
	}
}
