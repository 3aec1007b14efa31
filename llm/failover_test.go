package llm

import (
	"context"
	"errors"
	"testing"
)

// fakeGenerator is a scriptable Generator for failover tests.
type fakeGenerator struct {
	model    string
	healthy  bool
	genErr   error
	genText  string
	genCalls int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &Result{Text: f.genText}, nil
}

func (f *fakeGenerator) ListModels(ctx context.Context) ([]string, error) {
	if !f.healthy {
		return nil, errors.New("connection refused")
	}
	return []string{f.model}, nil
}

func (f *fakeGenerator) Model() string { return f.model }
func (f *fakeGenerator) Close() error  { return nil }

func TestFailover_NoBackendIsFatal(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: false}
	cloud := &fakeGenerator{model: "cloud", healthy: false}

	_, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("NewFailover() error = %v, want ErrNoBackend", err)
	}
}

func TestFailover_PrefersLocal(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: true, genText: "from local"}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genText: "from cloud"}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}

	result, err := f.Generate(context.Background(), "test", Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if result.Text != "from local" {
		t.Errorf("Generate() text = %q, want %q", result.Text, "from local")
	}
	if cloud.genCalls != 0 {
		t.Errorf("cloud backend called %d times, want 0", cloud.genCalls)
	}
}

func TestFailover_CloudWhenLocalDown(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: false}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genText: "from cloud"}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}

	result, err := f.Generate(context.Background(), "test", Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if result.Text != "from cloud" {
		t.Errorf("Generate() text = %q, want %q", result.Text, "from cloud")
	}
	if f.Model() != "cloud" {
		t.Errorf("Model() = %q, want cloud", f.Model())
	}
}

func TestFailover_StickyPromotion(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: true, genErr: errors.New("runner crashed")}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genText: "from cloud"}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}

	// First call fails on local, succeeds on cloud, promotes cloud
	result, err := f.Generate(context.Background(), "test", Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if result.Text != "from cloud" {
		t.Errorf("Generate() text = %q, want %q", result.Text, "from cloud")
	}

	// Second call goes straight to cloud: promotion is sticky
	localCalls := local.genCalls
	if _, err := f.Generate(context.Background(), "test", Options{}); err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if local.genCalls != localCalls {
		t.Errorf("local called again after promotion, calls = %d, want %d", local.genCalls, localCalls)
	}

	status := f.Status()
	if status.Local.Active {
		t.Error("Status().Local.Active = true, want false after promotion")
	}
	if !status.Cloud.Active {
		t.Error("Status().Cloud.Active = false, want true after promotion")
	}
}

func TestFailover_BothFailPropagatesOriginalError(t *testing.T) {
	localErr := errors.New("local failure")
	local := &fakeGenerator{model: "local", healthy: true, genErr: localErr}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genErr: errors.New("cloud failure")}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}

	_, err = f.Generate(context.Background(), "test", Options{})
	if !errors.Is(err, localErr) {
		t.Fatalf("Generate() error = %v, want the original local failure", err)
	}
}

func TestFailover_LocalModeNeverFallsBack(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: true, genErr: errors.New("boom")}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genText: "from cloud"}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeLocal}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}

	if _, err := f.Generate(context.Background(), "test", Options{}); err == nil {
		t.Fatal("Generate() error = nil, want error in local mode")
	}
	if cloud.genCalls != 0 {
		t.Errorf("cloud backend called %d times in local mode, want 0", cloud.genCalls)
	}
}

func TestFailover_ReconnectLocal(t *testing.T) {
	local := &fakeGenerator{model: "local", healthy: false, genText: "from local"}
	cloud := &fakeGenerator{model: "cloud", healthy: true, genText: "from cloud"}

	f, err := NewFailover(context.Background(), FailoverConfig{Mode: ModeHybrid}, local, cloud)
	if err != nil {
		t.Fatalf("NewFailover() error = %v, want nil", err)
	}
	if f.Model() != "cloud" {
		t.Fatalf("Model() = %q, want cloud before reconnect", f.Model())
	}

	// Still down: reconnect fails, cloud stays active
	if err := f.ReconnectLocal(context.Background()); err == nil {
		t.Fatal("ReconnectLocal() error = nil, want error while local is down")
	}

	// Recovered: reconnect promotes local
	local.healthy = true
	if err := f.ReconnectLocal(context.Background()); err != nil {
		t.Fatalf("ReconnectLocal() error = %v, want nil", err)
	}
	if f.Model() != "local" {
		t.Errorf("Model() = %q, want local after reconnect", f.Model())
	}
}
