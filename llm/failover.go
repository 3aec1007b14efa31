package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canopya/canopya/internal/metrics"
)

// Mode selects which generation backends the failover wrapper manages.
type Mode string

const (
	// ModeLocal uses only the local backend.
	ModeLocal Mode = "local"

	// ModeCloud uses only the cloud backend.
	ModeCloud Mode = "cloud"

	// ModeHybrid prefers local and falls back to cloud.
	ModeHybrid Mode = "hybrid"
)

// ErrNoBackend is returned when neither generation backend is reachable.
// At construction time this is a fatal startup error.
var ErrNoBackend = errors.New("no generation backend available")

// FailoverConfig configures the resilient dual-backend generator.
type FailoverConfig struct {
	// Mode selects local, cloud, or hybrid operation (default: hybrid).
	Mode Mode `yaml:"mode"`

	// Local backend configuration. Typically a small on-device model.
	Local *OllamaConfig `yaml:"local,omitempty"`

	// Cloud backend configuration. Typically a larger hosted model.
	Cloud *OllamaConfig `yaml:"cloud,omitempty"`

	// ProbeTimeout bounds the startup and reconnect health checks
	// (default: 5s).
	ProbeTimeout time.Duration `yaml:"probe_timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *FailoverConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHybrid
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.Local != nil {
		c.Local.SetDefaults()
	}
	if c.Cloud != nil {
		c.Cloud.SetDefaults()
	}
}

// Validate checks the configuration.
func (c *FailoverConfig) Validate() error {
	switch c.Mode {
	case ModeLocal:
		if c.Local == nil {
			return fmt.Errorf("local backend configuration is required in local mode")
		}
	case ModeCloud:
		if c.Cloud == nil {
			return fmt.Errorf("cloud backend configuration is required in cloud mode")
		}
	case ModeHybrid:
		if c.Local == nil && c.Cloud == nil {
			return fmt.Errorf("at least one backend configuration is required in hybrid mode")
		}
	default:
		return fmt.Errorf("unknown failover mode: %q", c.Mode)
	}
	if c.Local != nil {
		if err := c.Local.Validate(); err != nil {
			return fmt.Errorf("local backend: %w", err)
		}
	}
	if c.Cloud != nil {
		if err := c.Cloud.Validate(); err != nil {
			return fmt.Errorf("cloud backend: %w", err)
		}
	}
	return nil
}

// BackendStatus is a point-in-time snapshot of one generation backend.
type BackendStatus struct {
	Configured bool   `json:"configured"`
	Available  bool   `json:"available"`
	Active     bool   `json:"active"`
	Model      string `json:"model,omitempty"`
}

// Status is a point-in-time snapshot of the generation failover wrapper.
type Status struct {
	Mode        string        `json:"mode"`
	ActiveModel string        `json:"active_model"`
	Local       BackendStatus `json:"local"`
	Cloud       BackendStatus `json:"cloud"`
}

// Failover routes generation calls to a preferred backend and transparently
// retries on the other one, promoting it on success.
//
// Same contract as the vector store wrapper: local-first, one retry on the
// other backend per failed call, sticky promotion. Generation has nothing to
// mirror, so there is no background pool here.
type Failover struct {
	cfg   FailoverConfig
	local Generator
	cloud Generator

	mu          sync.Mutex
	localUp     bool
	cloudUp     bool
	activeLocal bool
}

// NewFailoverFromConfig builds both backends from configuration and wraps them.
func NewFailoverFromConfig(ctx context.Context, cfg FailoverConfig) (*Failover, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var local, cloud Generator
	var err error
	if cfg.Local != nil && cfg.Mode != ModeCloud {
		local, err = NewOllamaGenerator(*cfg.Local)
		if err != nil {
			slog.Warn("Local generation backend unavailable", "error", err)
		}
	}
	if cfg.Cloud != nil && cfg.Mode != ModeLocal {
		cloud, err = NewOllamaGenerator(*cfg.Cloud)
		if err != nil {
			slog.Warn("Cloud generation backend unavailable", "error", err)
		}
	}

	return NewFailover(ctx, cfg, local, cloud)
}

// NewFailover wraps pre-constructed backends. Either backend may be nil.
// Both configured backends are probed; construction fails with ErrNoBackend
// when neither responds.
func NewFailover(ctx context.Context, cfg FailoverConfig, local, cloud Generator) (*Failover, error) {
	cfg.SetDefaults()

	f := &Failover{
		cfg:   cfg,
		local: local,
		cloud: cloud,
	}

	if local != nil {
		f.localUp = f.probe(ctx, local)
		if f.localUp {
			slog.Info("Local generation backend connected", "model", local.Model())
		} else {
			slog.Warn("Local generation backend unreachable")
		}
	}
	if cloud != nil {
		f.cloudUp = f.probe(ctx, cloud)
		if f.cloudUp {
			slog.Info("Cloud generation backend connected", "model", cloud.Model())
		} else {
			slog.Warn("Cloud generation backend unreachable")
		}
	}

	switch {
	case f.localUp:
		f.activeLocal = true
		slog.Info("Active generation backend: local", "model", local.Model())
	case f.cloudUp:
		f.activeLocal = false
		slog.Info("Active generation backend: cloud (fallback)", "model", cloud.Model())
	default:
		return nil, fmt.Errorf("generation: %w", ErrNoBackend)
	}

	return f, nil
}

// probe checks a backend by listing its models.
func (f *Failover) probe(ctx context.Context, g Generator) bool {
	probeCtx, cancel := context.WithTimeout(ctx, f.cfg.ProbeTimeout)
	defer cancel()
	_, err := g.ListModels(probeCtx)
	return err == nil
}

// active returns the active backend and whether it is the local one.
func (f *Failover) active() (Generator, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeLocal {
		return f.local, true
	}
	return f.cloud, false
}

// backup returns the non-active backend, or nil if none is configured.
func (f *Failover) backup(activeLocal bool) (Generator, bool) {
	if activeLocal {
		return f.cloud, false
	}
	return f.local, true
}

// promote makes the given side the sticky-active backend.
func (f *Failover) promote(local bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeLocal == local {
		return
	}
	f.activeLocal = local
	if local {
		f.localUp = true
		slog.Info("Promoted local generation backend to active")
	} else {
		f.cloudUp = true
		slog.Info("Promoted cloud generation backend to active")
	}
	metrics.BackendPromotions.WithLabelValues("llm").Inc()
}

// Generate runs a completion on the active backend, retrying once on the
// backup and promoting it on success. The original error is propagated when
// both backends fail.
func (f *Failover) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	primary, activeLocal := f.active()
	if primary == nil {
		return nil, fmt.Errorf("generate: %w", ErrNoBackend)
	}

	result, err := primary.Generate(ctx, prompt, opts)
	if err == nil {
		return result, nil
	}

	slog.Error("Generation failed on active backend", "model", primary.Model(), "error", err)

	if f.cfg.Mode != ModeHybrid {
		return nil, err
	}

	backupGen, backupLocal := f.backup(activeLocal)
	if backupGen == nil {
		return nil, err
	}

	result, backupErr := backupGen.Generate(ctx, prompt, opts)
	if backupErr != nil {
		slog.Error("Generation fallback also failed", "model", backupGen.Model(), "error", backupErr)
		// Propagate the original failure
		return nil, err
	}

	slog.Info("Generation fallback successful", "model", backupGen.Model())
	f.promote(backupLocal)
	return result, nil
}

// ListModels returns the models served by the active backend.
func (f *Failover) ListModels(ctx context.Context) ([]string, error) {
	primary, activeLocal := f.active()
	if primary == nil {
		return nil, fmt.Errorf("list models: %w", ErrNoBackend)
	}

	models, err := primary.ListModels(ctx)
	if err == nil {
		return models, nil
	}

	if f.cfg.Mode != ModeHybrid {
		return nil, err
	}
	backupGen, backupLocal := f.backup(activeLocal)
	if backupGen == nil {
		return nil, err
	}
	models, backupErr := backupGen.ListModels(ctx)
	if backupErr != nil {
		return nil, err
	}
	f.promote(backupLocal)
	return models, nil
}

// Model returns the model name of the active backend.
func (f *Failover) Model() string {
	primary, _ := f.active()
	if primary == nil {
		return ""
	}
	return primary.Model()
}

// ReconnectLocal re-probes the local backend and promotes it back to active.
// Unlike the vector store, generators hold no state, so no sync is needed.
func (f *Failover) ReconnectLocal(ctx context.Context) error {
	if f.local == nil {
		return fmt.Errorf("no local backend configured")
	}

	slog.Info("Reconnecting to local generation backend")
	if !f.probe(ctx, f.local) {
		f.mu.Lock()
		f.localUp = false
		f.mu.Unlock()
		return fmt.Errorf("local generation backend still unavailable")
	}

	f.promote(true)
	return nil
}

// Status reports availability and activity for both backends.
func (f *Failover) Status() Status {
	f.mu.Lock()
	localUp, cloudUp, activeLocal := f.localUp, f.cloudUp, f.activeLocal
	f.mu.Unlock()

	status := Status{Mode: string(f.cfg.Mode)}
	if f.local != nil {
		status.Local = BackendStatus{
			Configured: true,
			Available:  localUp,
			Active:     activeLocal,
			Model:      f.local.Model(),
		}
	}
	if f.cloud != nil {
		status.Cloud = BackendStatus{
			Configured: true,
			Available:  cloudUp,
			Active:     !activeLocal,
			Model:      f.cloud.Model(),
		}
	}
	status.ActiveModel = f.Model()
	return status
}

// Close closes both backends.
func (f *Failover) Close() error {
	var errs []error
	if f.local != nil {
		if err := f.local.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.cloud != nil {
		if err := f.cloud.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing backends: %v", errs)
	}
	return nil
}

// Ensure Failover implements Generator.
var _ Generator = (*Failover)(nil)
