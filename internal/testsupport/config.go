package testsupport

import (
	"path/filepath"
	"testing"

	"mediajob/internal/config"
)

// TestSecret is the signing secret placed in generated test configs.
const TestSecret = "test-secret"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Job.Secret = TestSecret
	cfgVal.Content.TempDir = filepath.Join(base, "tmp")
	cfgVal.Datastore.FileRoot = filepath.Join(base, "store")
	cfgVal.Datastore.SQLitePath = filepath.Join(base, "store.db")
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.Logging.Dir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend selects the datastore backend on the test config.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Datastore.Backend = backend
	}
}

// WithSecret overrides the signing secret on the test config.
func WithSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Job.Secret = secret
	}
}

// WithCache toggles the job output cache and sets its size limit.
func WithCache(enabled bool, maxMiB int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = enabled
		b.cfg.Cache.MaxMiB = maxMiB
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Datastore.FileRoot)
}
