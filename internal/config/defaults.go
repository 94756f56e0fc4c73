package config

import "mediajob/internal/content"

const (
	defaultConfigPath          = "~/.config/mediajob/config.toml"
	defaultFallbackMimeType    = "application/octet-stream"
	defaultBackend             = BackendFile
	defaultFileRoot            = "~/.local/share/mediajob/store"
	defaultSQLitePath          = "~/.local/share/mediajob/store.db"
	defaultS3Region            = "us-east-1"
	defaultFetchTimeoutSeconds = 30
	defaultFetchUserAgent      = "mediajob/dev"
	defaultFetchMaxBodyMiB     = 256
	defaultBreakerMaxFailures  = 5
	defaultBreakerOpenSeconds  = 30
	defaultBreakerIntervalSecs = 60
	defaultCacheMaxMiB         = 1024
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Datastore backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Job: Job{
			InferMimeTypeFromFileExt: true,
			FallbackMimeType:         defaultFallbackMimeType,
		},
		Content: Content{
			BlockSize: content.DefaultBlockSize,
		},
		Datastore: Datastore{
			Backend:    defaultBackend,
			FileRoot:   defaultFileRoot,
			SQLitePath: defaultSQLitePath,
			S3: S3{
				Region: defaultS3Region,
				UseSSL: true,
			},
		},
		FetchURL: FetchURL{
			TimeoutSeconds:      defaultFetchTimeoutSeconds,
			UserAgent:           defaultFetchUserAgent,
			MaxBodyMiB:          defaultFetchMaxBodyMiB,
			BreakerMaxFailures:  defaultBreakerMaxFailures,
			BreakerOpenSeconds:  defaultBreakerOpenSeconds,
			BreakerIntervalSecs: defaultBreakerIntervalSecs,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
			MaxMiB:  defaultCacheMaxMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
