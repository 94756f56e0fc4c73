package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Job contains settings shared by every job the CLI builds.
type Job struct {
	Secret                   string `toml:"secret"`
	InferMimeTypeFromFileExt bool   `toml:"infer_mime_type_from_file_ext"`
	FallbackMimeType         string `toml:"fallback_mime_type"`
}

// Content contains settings for content objects.
type Content struct {
	BlockSize int    `toml:"block_size"`
	TempDir   string `toml:"temp_dir"`
}

// S3 contains settings for the S3-compatible datastore backend.
type S3 struct {
	Endpoint        string `toml:"endpoint"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Prefix          string `toml:"prefix"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UseSSL          bool   `toml:"use_ssl"`
}

// Datastore selects and configures the store used by fetch steps.
type Datastore struct {
	Backend    string `toml:"backend"`
	FileRoot   string `toml:"file_root"`
	SQLitePath string `toml:"sqlite_path"`
	S3         S3     `toml:"s3"`
}

// FetchURL contains settings for fetch_url steps.
type FetchURL struct {
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	UserAgent           string `toml:"user_agent"`
	MaxBodyMiB          int    `toml:"max_body_mib"`
	BreakerMaxFailures  int    `toml:"breaker_max_failures"`
	BreakerOpenSeconds  int    `toml:"breaker_open_seconds"`
	BreakerIntervalSecs int    `toml:"breaker_interval_seconds"`
}

// Cache contains configuration for the applied job output cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	MaxMiB  int    `toml:"max_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for mediajob.
//
// Configuration sections by subsystem:
//   - Job: signing secret and mime type resolution
//   - Content: chunk size and temp file location
//   - Datastore: file, sqlite or s3 backend for fetch steps
//   - FetchURL: HTTP timeouts, body limits and circuit breaking
//   - Cache: on-disk cache of applied job output
//   - Logging: log format, level and optional log directory
type Config struct {
	Job       Job       `toml:"job"`
	Content   Content   `toml:"content"`
	Datastore Datastore `toml:"datastore"`
	FetchURL  FetchURL  `toml:"fetch_url"`
	Cache     Cache     `toml:"cache"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediajob.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the configured backends write to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Content.TempDir, c.Logging.Dir}
	switch c.Datastore.Backend {
	case BackendFile:
		dirs = append(dirs, c.Datastore.FileRoot)
	case BackendSQLite:
		dirs = append(dirs, filepath.Dir(c.Datastore.SQLitePath))
	}
	if c.Cache.Enabled {
		dirs = append(dirs, c.Cache.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SecretBytes returns the job signing secret.
func (c *Config) SecretBytes() []byte {
	return []byte(c.Job.Secret)
}

// RequireSecret reports an error when no job signing secret is configured.
func (c *Config) RequireSecret() error {
	if strings.TrimSpace(c.Job.Secret) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("job.secret is required. Set MEDIAJOB_SECRET env var or edit %s (create with 'mediajob config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mediajob", "jobs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/mediajob/jobs"
	}
	return filepath.Join(home, ".cache", "mediajob", "jobs")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
