package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJob(); err != nil {
		return err
	}
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateDatastore(); err != nil {
		return err
	}
	if err := c.validateFetchURL(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateJob() error {
	if !strings.Contains(c.Job.FallbackMimeType, "/") {
		return fmt.Errorf("job.fallback_mime_type %q is not a mime type", c.Job.FallbackMimeType)
	}
	return nil
}

func (c *Config) validateContent() error {
	if c.Content.BlockSize <= 0 {
		return errors.New("content.block_size must be positive")
	}
	return nil
}

func (c *Config) validateDatastore() error {
	switch c.Datastore.Backend {
	case BackendFile, BackendSQLite:
		return nil
	case BackendS3:
		if c.Datastore.S3.Endpoint == "" {
			return errors.New("datastore.s3.endpoint must be set when datastore.backend is s3")
		}
		if c.Datastore.S3.Bucket == "" {
			return errors.New("datastore.s3.bucket must be set when datastore.backend is s3")
		}
		if strings.Contains(c.Datastore.S3.Endpoint, "://") {
			return errors.New("datastore.s3.endpoint must be host[:port] without a scheme; use datastore.s3.use_ssl")
		}
		return nil
	default:
		return fmt.Errorf("datastore.backend: unsupported value %q (want file, sqlite or s3)", c.Datastore.Backend)
	}
}

func (c *Config) validateFetchURL() error {
	if c.FetchURL.TimeoutSeconds < 0 {
		return errors.New("fetch_url.timeout_seconds must be non-negative")
	}
	if c.FetchURL.MaxBodyMiB < 0 {
		return errors.New("fetch_url.max_body_mib must be non-negative")
	}
	if c.FetchURL.BreakerMaxFailures < 0 || c.FetchURL.BreakerOpenSeconds < 0 || c.FetchURL.BreakerIntervalSecs < 0 {
		return errors.New("fetch_url breaker settings must be non-negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxMiB < 0 {
		return errors.New("cache.max_mib must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
