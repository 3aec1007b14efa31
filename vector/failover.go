package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canopya/canopya/internal/metrics"
)

// FailoverMode selects which backends the failover wrapper manages.
type FailoverMode string

const (
	// ModeLocal uses only the local backend.
	ModeLocal FailoverMode = "local"

	// ModeCloud uses only the cloud backend.
	ModeCloud FailoverMode = "cloud"

	// ModeHybrid prefers local and falls back to cloud, with best-effort
	// write mirroring between the two.
	ModeHybrid FailoverMode = "hybrid"
)

// ErrNoBackend is returned when neither backend is reachable.
// At construction time this is a fatal startup error.
var ErrNoBackend = errors.New("no vector backend available")

// FailoverConfig configures the resilient dual-backend wrapper.
type FailoverConfig struct {
	// Mode selects local, cloud, or hybrid operation (default: hybrid).
	Mode FailoverMode `yaml:"mode"`

	// Collection is the knowledge base collection name.
	Collection string `yaml:"collection"`

	// Dimension of stored vectors.
	Dimension int `yaml:"dimension"`

	// Local backend configuration.
	Local *ProviderConfig `yaml:"local,omitempty"`

	// Cloud backend configuration.
	Cloud *ProviderConfig `yaml:"cloud,omitempty"`

	// LocalTimeout bounds calls to the local backend (default: 5s).
	LocalTimeout time.Duration `yaml:"local_timeout,omitempty"`

	// CloudTimeout bounds calls to the cloud backend (default: 60s).
	CloudTimeout time.Duration `yaml:"cloud_timeout,omitempty"`

	// MirrorWorkers is the size of the background mirror pool (default: 2).
	MirrorWorkers int `yaml:"mirror_workers,omitempty"`

	// MirrorQueue is the mirror job queue depth (default: 64).
	MirrorQueue int `yaml:"mirror_queue,omitempty"`

	// ScrollLimit caps bulk copies between backends (default: 10000).
	ScrollLimit int `yaml:"scroll_limit,omitempty"`
}

// SetDefaults applies default values.
func (c *FailoverConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHybrid
	}
	if c.Collection == "" {
		c.Collection = "aquaponics_knowledge"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.LocalTimeout == 0 {
		c.LocalTimeout = 5 * time.Second
	}
	if c.CloudTimeout == 0 {
		c.CloudTimeout = 60 * time.Second
	}
	if c.MirrorWorkers == 0 {
		c.MirrorWorkers = 2
	}
	if c.MirrorQueue == 0 {
		c.MirrorQueue = 64
	}
	if c.ScrollLimit == 0 {
		c.ScrollLimit = 10000
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

// BackendStatus is a point-in-time snapshot of one backend.
type BackendStatus struct {
	Configured bool   `json:"configured"`
	Available  bool   `json:"available"`
	Active     bool   `json:"active"`
	Count      uint64 `json:"count"`
}

// Status is a point-in-time snapshot of the failover wrapper.
type Status struct {
	Mode  string        `json:"mode"`
	Local BackendStatus `json:"local"`
	Cloud BackendStatus `json:"cloud"`
}

// mirrorJob is a best-effort operation replayed against the backup backend.
type mirrorJob struct {
	op string
	fn func(ctx context.Context, p Provider) error
}

// Failover routes vector store calls to a preferred backend and transparently
// retries on the other one, promoting it on success.
//
// Local is preferred when reachable. A call failure triggers exactly one
// attempt on the other backend; success there makes it sticky-active until it
// fails in turn. In hybrid mode writes are mirrored to the non-active backend
// through a bounded background pool whose failures are logged, never raised.
type Failover struct {
	cfg   FailoverConfig
	local Provider
	cloud Provider

	mu          sync.Mutex
	localUp     bool
	cloudUp     bool
	activeLocal bool

	mirrorCh chan mirrorJob
	wg       sync.WaitGroup
	closed   bool
}

// NewFailoverFromConfig builds both backends from configuration and wraps them.
func NewFailoverFromConfig(ctx context.Context, cfg FailoverConfig) (*Failover, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var local, cloud Provider
	var err error
	if cfg.Local != nil && cfg.Mode != ModeCloud {
		local, err = NewProvider(cfg.Local)
		if err != nil {
			slog.Warn("Local vector backend unavailable", "error", err)
		}
	}
	if cfg.Cloud != nil && cfg.Mode != ModeLocal {
		cloud, err = NewProvider(cfg.Cloud)
		if err != nil {
			slog.Warn("Cloud vector backend unavailable", "error", err)
		}
	}

	return NewFailover(ctx, cfg, local, cloud)
}

// NewFailover wraps pre-constructed backends. Either backend may be nil.
// Both configured backends are probed; construction fails with ErrNoBackend
// when neither responds.
func NewFailover(ctx context.Context, cfg FailoverConfig, local, cloud Provider) (*Failover, error) {
	cfg.SetDefaults()

	f := &Failover{
		cfg:      cfg,
		local:    local,
		cloud:    cloud,
		mirrorCh: make(chan mirrorJob, cfg.MirrorQueue),
	}

	if local != nil {
		f.localUp = f.probe(ctx, local, cfg.LocalTimeout)
		if f.localUp {
			slog.Info("Local vector backend connected", "provider", local.Name())
		} else {
			slog.Warn("Local vector backend unreachable")
		}
	}
	if cloud != nil {
		f.cloudUp = f.probe(ctx, cloud, cfg.CloudTimeout)
		if f.cloudUp {
			slog.Info("Cloud vector backend connected", "provider", cloud.Name())
		} else {
			slog.Warn("Cloud vector backend unreachable")
		}
	}

	switch {
	case f.localUp:
		f.activeLocal = true
		slog.Info("Active vector backend: local")
	case f.cloudUp:
		f.activeLocal = false
		slog.Info("Active vector backend: cloud (fallback)")
	default:
		return nil, fmt.Errorf("vector store: %w", ErrNoBackend)
	}

	for i := 0; i < cfg.MirrorWorkers; i++ {
		f.wg.Add(1)
		go f.mirrorWorker()
	}

	return f, nil
}

// probe checks a backend by counting the collection.
// A missing collection still proves the backend answers.
func (f *Failover) probe(ctx context.Context, p Provider, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := p.Count(probeCtx, f.cfg.Collection); err != nil {
		// Distinguish "backend down" from "collection not created yet"
		if createErr := p.CreateCollection(probeCtx, f.cfg.Collection, f.cfg.Dimension); createErr != nil {
			return false
		}
	}
	return true
}

// Name returns the provider name.
func (f *Failover) Name() string {
	return "failover"
}

// Collection returns the configured collection name.
func (f *Failover) Collection() string {
	return f.cfg.Collection
}

// active returns the active backend and whether it is the local one.
func (f *Failover) active() (Provider, bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeLocal {
		return f.local, true, f.cfg.LocalTimeout
	}
	return f.cloud, false, f.cfg.CloudTimeout
}

// backup returns the non-active backend, or nil if none is configured.
func (f *Failover) backup(activeLocal bool) (Provider, bool, time.Duration) {
	if activeLocal {
		return f.cloud, false, f.cfg.CloudTimeout
	}
	return f.local, true, f.cfg.LocalTimeout
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
		slog.Info("Promoted local vector backend to active")
	} else {
		f.cloudUp = true
		slog.Info("Promoted cloud vector backend to active")
	}
	metrics.BackendPromotions.WithLabelValues("vector").Inc()
}

// execute runs fn against the active backend, retrying once on the backup.
// When mirror is set and the call succeeds in hybrid mode, fn is also queued
// for best-effort replay against the backup backend.
func (f *Failover) execute(ctx context.Context, op string, mirror bool, fn func(ctx context.Context, p Provider) error) error {
	primary, activeLocal, timeout := f.active()
	if primary == nil {
		return fmt.Errorf("%s: %w", op, ErrNoBackend)
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	err := fn(opCtx, primary)
	cancel()

	if err == nil {
		if mirror && f.cfg.Mode == ModeHybrid {
			f.enqueueMirror(op, fn)
		}
		return nil
	}

	slog.Error("Vector operation failed on active backend", "op", op, "error", err)

	if f.cfg.Mode != ModeHybrid {
		return err
	}

	backupProvider, backupLocal, backupTimeout := f.backup(activeLocal)
	if backupProvider == nil {
		return err
	}

	backupCtx, cancel := context.WithTimeout(ctx, backupTimeout)
	backupErr := fn(backupCtx, backupProvider)
	cancel()

	if backupErr != nil {
		slog.Error("Vector fallback also failed", "op", op, "error", backupErr)
		// Propagate the original failure
		return err
	}

	slog.Info("Vector fallback successful", "op", op, "backend", backendName(backupLocal))
	f.promote(backupLocal)
	return nil
}

// enqueueMirror submits a best-effort mirror job. A full queue drops the job;
// the mirror is advisory, it must never block or fail the caller.
func (f *Failover) enqueueMirror(op string, fn func(ctx context.Context, p Provider) error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}

	select {
	case f.mirrorCh <- mirrorJob{op: op, fn: fn}:
	default:
		slog.Debug("Mirror queue full, dropping job", "op", op)
		metrics.MirrorFailures.WithLabelValues("vector", "queue_full").Inc()
	}
}

func (f *Failover) mirrorWorker() {
	defer f.wg.Done()
	for job := range f.mirrorCh {
		_, activeLocal, _ := f.active()
		backupProvider, _, timeout := f.backup(activeLocal)
		if backupProvider == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := job.fn(ctx, backupProvider); err != nil {
			slog.Debug("Mirror write failed", "op", job.op, "error", err)
			metrics.MirrorFailures.WithLabelValues("vector", "write").Inc()
		}
		cancel()
	}
}

// CreateCollection creates the collection on every configured backend.
func (f *Failover) CreateCollection(ctx context.Context, collection string, dimension int) error {
	var firstErr error
	created := false
	for _, side := range []struct {
		p       Provider
		timeout time.Duration
	}{{f.local, f.cfg.LocalTimeout}, {f.cloud, f.cfg.CloudTimeout}} {
		if side.p == nil {
			continue
		}
		opCtx, cancel := context.WithTimeout(ctx, side.timeout)
		err := side.p.CreateCollection(opCtx, collection, dimension)
		cancel()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Warn("Collection creation failed", "backend", side.p.Name(), "error", err)
			continue
		}
		created = true
	}
	if created {
		return nil
	}
	return firstErr
}

// Upsert adds or updates points, mirroring to the backup backend.
func (f *Failover) Upsert(ctx context.Context, collection string, points []Point) error {
	return f.execute(ctx, "upsert", true, func(ctx context.Context, p Provider) error {
		return p.Upsert(ctx, collection, points)
	})
}

// Search finds the topK most similar vectors.
func (f *Failover) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchHit, error) {
	var hits []SearchHit
	err := f.execute(ctx, "search", false, func(ctx context.Context, p Provider) error {
		var err error
		hits, err = p.Search(ctx, collection, vector, topK)
		return err
	})
	return hits, err
}

// Count returns the number of points in a collection.
func (f *Failover) Count(ctx context.Context, collection string) (uint64, error) {
	var count uint64
	err := f.execute(ctx, "count", false, func(ctx context.Context, p Provider) error {
		var err error
		count, err = p.Count(ctx, collection)
		return err
	})
	return count, err
}

// Scroll returns up to limit points from the active backend.
func (f *Failover) Scroll(ctx context.Context, collection string, limit int) ([]Point, error) {
	var points []Point
	err := f.execute(ctx, "scroll", false, func(ctx context.Context, p Provider) error {
		var err error
		points, err = p.Scroll(ctx, collection, limit)
		return err
	})
	return points, err
}

// Delete removes a point by ID, mirroring to the backup backend.
func (f *Failover) Delete(ctx context.Context, collection string, id string) error {
	return f.execute(ctx, "delete", true, func(ctx context.Context, p Provider) error {
		return p.Delete(ctx, collection, id)
	})
}

// safeCount returns a backend's point count, or 0 when unreachable.
func (f *Failover) safeCount(ctx context.Context, p Provider, timeout time.Duration) uint64 {
	if p == nil {
		return 0
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	count, err := p.Count(opCtx, f.cfg.Collection)
	if err != nil {
		return 0
	}
	return count
}

// SyncCloudToLocal bulk-copies the collection from cloud to local.
func (f *Failover) SyncCloudToLocal(ctx context.Context) error {
	return f.syncBetween(ctx, f.cloud, f.local, "cloud", "local")
}

// SyncLocalToCloud bulk-copies the collection from local to cloud.
func (f *Failover) SyncLocalToCloud(ctx context.Context) error {
	return f.syncBetween(ctx, f.local, f.cloud, "local", "cloud")
}

func (f *Failover) syncBetween(ctx context.Context, src, dst Provider, srcName, dstName string) error {
	if src == nil || dst == nil {
		return fmt.Errorf("sync requires both backends to be configured")
	}

	scrollCtx, cancel := context.WithTimeout(ctx, f.cfg.CloudTimeout)
	points, err := src.Scroll(scrollCtx, f.cfg.Collection, f.cfg.ScrollLimit)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to scroll %s backend: %w", srcName, err)
	}
	if len(points) == 0 {
		slog.Info("No points to sync", "from", srcName, "to", dstName)
		return nil
	}

	upsertCtx, cancel := context.WithTimeout(ctx, f.cfg.CloudTimeout)
	defer cancel()
	if err := dst.CreateCollection(upsertCtx, f.cfg.Collection, f.cfg.Dimension); err != nil {
		return fmt.Errorf("failed to prepare %s collection: %w", dstName, err)
	}
	if err := dst.Upsert(upsertCtx, f.cfg.Collection, points); err != nil {
		return fmt.Errorf("failed to upsert into %s backend: %w", dstName, err)
	}

	slog.Info("Synced points between backends", "from", srcName, "to", dstName, "points", len(points))
	return nil
}

// ReconnectLocal re-probes the local backend and promotes it back to active.
// When the cloud backend holds strictly more points than local, the
// collection is first copied cloud→local so a recovered local never serves
// stale data.
func (f *Failover) ReconnectLocal(ctx context.Context) error {
	if f.local == nil {
		return fmt.Errorf("no local backend configured")
	}

	slog.Info("Reconnecting to local vector backend")
	if !f.probe(ctx, f.local, f.cfg.LocalTimeout) {
		f.mu.Lock()
		f.localUp = false
		f.mu.Unlock()
		return fmt.Errorf("local vector backend still unavailable")
	}

	f.mu.Lock()
	f.localUp = true
	cloudUp := f.cloudUp
	f.mu.Unlock()

	if f.cfg.Mode == ModeHybrid && cloudUp {
		localCount := f.safeCount(ctx, f.local, f.cfg.LocalTimeout)
		cloudCount := f.safeCount(ctx, f.cloud, f.cfg.CloudTimeout)
		if cloudCount > localCount {
			slog.Info("Local behind cloud, syncing before promotion",
				"local_count", localCount,
				"cloud_count", cloudCount)
			if err := f.SyncCloudToLocal(ctx); err != nil {
				slog.Warn("Cloud to local sync failed", "error", err)
			}
		}
	}

	f.promote(true)
	return nil
}

// Status reports availability, activity, and counts for both backends.
func (f *Failover) Status(ctx context.Context) Status {
	f.mu.Lock()
	localUp, cloudUp, activeLocal := f.localUp, f.cloudUp, f.activeLocal
	f.mu.Unlock()

	status := Status{Mode: string(f.cfg.Mode)}
	status.Local = BackendStatus{
		Configured: f.local != nil,
		Available:  localUp,
		Active:     f.local != nil && activeLocal,
	}
	status.Cloud = BackendStatus{
		Configured: f.cloud != nil,
		Available:  cloudUp,
		Active:     f.cloud != nil && !activeLocal,
	}
	if localUp {
		status.Local.Count = f.safeCount(ctx, f.local, f.cfg.LocalTimeout)
	}
	if cloudUp {
		status.Cloud.Count = f.safeCount(ctx, f.cloud, f.cfg.CloudTimeout)
	}
	return status
}

// Close drains the mirror pool and closes both backends.
func (f *Failover) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	close(f.mirrorCh)
	f.wg.Wait()

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

func backendName(local bool) string {
	if local {
		return "local"
	}
	return "cloud"
}

// Ensure Failover implements Provider.
var _ Provider = (*Failover)(nil)
