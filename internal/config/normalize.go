package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeJob()
	if err := c.normalizeContent(); err != nil {
		return err
	}
	if err := c.normalizeDatastore(); err != nil {
		return err
	}
	c.normalizeFetchURL()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeJob() {
	c.Job.Secret = strings.TrimSpace(c.Job.Secret)
	if c.Job.Secret == "" {
		if value, ok := os.LookupEnv("MEDIAJOB_SECRET"); ok {
			c.Job.Secret = strings.TrimSpace(value)
		}
	}
	c.Job.FallbackMimeType = strings.TrimSpace(c.Job.FallbackMimeType)
	if c.Job.FallbackMimeType == "" {
		c.Job.FallbackMimeType = defaultFallbackMimeType
	}
}

func (c *Config) normalizeContent() error {
	var err error
	if c.Content.TempDir, err = expandPath(strings.TrimSpace(c.Content.TempDir)); err != nil {
		return fmt.Errorf("content.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatastore() error {
	c.Datastore.Backend = strings.ToLower(strings.TrimSpace(c.Datastore.Backend))
	if c.Datastore.Backend == "" {
		c.Datastore.Backend = defaultBackend
	}

	var err error
	if strings.TrimSpace(c.Datastore.FileRoot) == "" {
		c.Datastore.FileRoot = defaultFileRoot
	}
	if c.Datastore.FileRoot, err = expandPath(c.Datastore.FileRoot); err != nil {
		return fmt.Errorf("datastore.file_root: %w", err)
	}
	if strings.TrimSpace(c.Datastore.SQLitePath) == "" {
		c.Datastore.SQLitePath = defaultSQLitePath
	}
	if c.Datastore.SQLitePath, err = expandPath(c.Datastore.SQLitePath); err != nil {
		return fmt.Errorf("datastore.sqlite_path: %w", err)
	}

	s3 := &c.Datastore.S3
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Region = strings.TrimSpace(s3.Region)
	if s3.Region == "" {
		s3.Region = defaultS3Region
	}
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	s3.AccessKeyID = strings.TrimSpace(s3.AccessKeyID)
	if s3.AccessKeyID == "" {
		if value, ok := os.LookupEnv("MEDIAJOB_S3_ACCESS_KEY"); ok {
			s3.AccessKeyID = strings.TrimSpace(value)
		}
	}
	s3.SecretAccessKey = strings.TrimSpace(s3.SecretAccessKey)
	if s3.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("MEDIAJOB_S3_SECRET_KEY"); ok {
			s3.SecretAccessKey = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeFetchURL() {
	c.FetchURL.UserAgent = strings.TrimSpace(c.FetchURL.UserAgent)
	if c.FetchURL.UserAgent == "" {
		c.FetchURL.UserAgent = defaultFetchUserAgent
	}
	if c.FetchURL.TimeoutSeconds == 0 {
		c.FetchURL.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.FetchURL.MaxBodyMiB == 0 {
		c.FetchURL.MaxBodyMiB = defaultFetchMaxBodyMiB
	}
	if c.FetchURL.BreakerMaxFailures == 0 {
		c.FetchURL.BreakerMaxFailures = defaultBreakerMaxFailures
	}
	if c.FetchURL.BreakerOpenSeconds == 0 {
		c.FetchURL.BreakerOpenSeconds = defaultBreakerOpenSeconds
	}
	if c.FetchURL.BreakerIntervalSecs == 0 {
		c.FetchURL.BreakerIntervalSecs = defaultBreakerIntervalSecs
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.MaxMiB == 0 {
		c.Cache.MaxMiB = defaultCacheMaxMiB
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
