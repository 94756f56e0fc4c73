package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/logging"
	"mediajob/internal/mimetype"
)

const (
	s3MetaName = "Mediajob-Name"
	s3MetaJSON = "Mediajob-Meta"
)

// S3Options configures an S3Store.
type S3Options struct {
	Endpoint        string
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	TempDir         string
}

// S3Store keeps payloads as objects in an S3-compatible bucket. Name and
// meta travel as user metadata on the object.
type S3Store struct {
	client  *minio.Client
	bucket  string
	prefix  string
	tempDir string
	logger  *slog.Logger
	now     func() time.Time
}

// NewS3Store builds a client for opts. It does not contact the endpoint.
func NewS3Store(opts S3Options, logger *slog.Logger) (*S3Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("datastore: s3 endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("datastore: create s3 client: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.Prefix, "/"),
		tempDir: opts.TempDir,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *S3Store) key(uid string) (string, error) {
	cleaned, err := cleanUID(uid)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return path.Join(s.prefix, cleaned), nil
}

// Put uploads obj and returns its new uid.
func (s *S3Store) Put(ctx context.Context, obj *content.Object, meta job.Meta) (string, error) {
	if obj == nil {
		return "", job.ErrNoContent
	}
	uid := newUID(obj.Name(), s.now())
	key, err := s.key(uid)
	if err != nil {
		return "", err
	}
	size, err := obj.Size()
	if err != nil {
		return "", fmt.Errorf("datastore: size content: %w", err)
	}
	reader, err := obj.Reader()
	if err != nil {
		return "", fmt.Errorf("datastore: open content: %w", err)
	}
	defer reader.Close()

	metaJSON, err := json.Marshal(meta.Clone())
	if err != nil {
		return "", fmt.Errorf("datastore: encode metadata: %w", err)
	}
	contentType := mimetype.Default
	if mt, ok := mimetype.ForExt(path.Ext(uid)); ok {
		contentType = mt
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			s3MetaName: url.QueryEscape(obj.Name()),
			s3MetaJSON: url.QueryEscape(string(metaJSON)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("datastore: put object %s: %w", key, err)
	}
	s.logger.Debug("stored content", logging.String(logging.FieldUID, uid), logging.Int64("bytes", size))
	return uid, nil
}

// Retrieve downloads the object for uid into a temp file owned by the job.
func (s *S3Store) Retrieve(ctx context.Context, uid string) (job.Result, error) {
	key, err := s.key(uid)
	if err != nil {
		return job.Result{}, err
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return job.Result{}, s.translate(key, err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return job.Result{}, s.translate(key, err)
	}

	tmp, err := os.CreateTemp(s.tempDir, "mediajob-s3-*"+path.Ext(key))
	if err != nil {
		return job.Result{}, fmt.Errorf("datastore: create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, object); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return job.Result{}, fmt.Errorf("datastore: download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return job.Result{}, fmt.Errorf("datastore: close temp file: %w", err)
	}

	rec := recordFromUserMetadata(info.UserMetadata)
	if rec.Name == "" {
		rec.Name = path.Base(key)
	}
	return rec.result(content.TempFile(tmp.Name())), nil
}

// Destroy removes the object for uid.
func (s *S3Store) Destroy(ctx context.Context, uid string) error {
	key, err := s.key(uid)
	if err != nil {
		return err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return s.translate(key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("datastore: remove object %s: %w", key, err)
	}
	s.logger.Debug("destroyed content", logging.String(logging.FieldUID, uid))
	return nil
}

// Close is a no-op.
func (s *S3Store) Close() error { return nil }

func (s *S3Store) translate(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("datastore: object %s: %w", key, err)
}

// recordFromUserMetadata reads the name and meta written by Put. S3 servers
// differ in how they case user metadata keys, so lookup folds case.
func recordFromUserMetadata(md map[string]string) record {
	var rec record
	for k, v := range md {
		switch {
		case strings.EqualFold(k, s3MetaName):
			if name, err := url.QueryUnescape(v); err == nil {
				rec.Name = name
			}
		case strings.EqualFold(k, s3MetaJSON):
			raw, err := url.QueryUnescape(v)
			if err != nil {
				continue
			}
			var meta job.Meta
			if err := json.Unmarshal([]byte(raw), &meta); err == nil {
				rec.Meta = meta
			}
		}
	}
	return rec
}
