package urlfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"mediajob/internal/config"
	"mediajob/internal/content"
	"mediajob/internal/job"
	"mediajob/internal/logging"
)

var (
	// ErrBodyTooLarge reports a response larger than the configured limit.
	ErrBodyTooLarge = errors.New("urlfetch: response body too large")
	// ErrCircuitOpen reports a host whose breaker is refusing requests.
	ErrCircuitOpen = errors.New("urlfetch: circuit open")
	// ErrUnsupportedScheme reports a URL that is not http or https.
	ErrUnsupportedScheme = errors.New("urlfetch: unsupported scheme")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("urlfetch: %s returned %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether the status suggests the server may recover.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Options configures a Fetcher. Zero values fall back to package defaults.
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	MaxBodyBytes       int64
	BreakerMaxFailures uint32
	BreakerOpen        time.Duration
	BreakerInterval    time.Duration
	TempDir            string
	Client             *http.Client
}

const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "mediajob"
	defaultMaxBodyBytes = 256 << 20
	defaultMaxFailures  = 5
	defaultOpenDuration = 30 * time.Second
)

// Fetcher implements job.URLFetcher over net/http.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New returns a Fetcher using opts.
func New(opts Options, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = defaultMaxFailures
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = defaultOpenDuration
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:   client,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "urlfetch"),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// NewFromConfig builds a Fetcher from the fetch_url config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	fc := cfg.FetchURL
	return New(Options{
		Timeout:            time.Duration(fc.TimeoutSeconds) * time.Second,
		UserAgent:          fc.UserAgent,
		MaxBodyBytes:       int64(fc.MaxBodyMiB) << 20,
		BreakerMaxFailures: uint32(fc.BreakerMaxFailures),
		BreakerOpen:        time.Duration(fc.BreakerOpenSeconds) * time.Second,
		BreakerInterval:    time.Duration(fc.BreakerIntervalSecs) * time.Second,
		TempDir:            cfg.Content.TempDir,
	}, logger)
}

func (f *Fetcher) breaker(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	maxFailures := f.opts.BreakerMaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    f.opts.BreakerInterval,
		Timeout:     f.opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var status *StatusError
			if errors.As(err, &status) {
				return !status.Temporary()
			}
			return errors.Is(err, ErrBodyTooLarge)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("circuit breaker state changed",
				logging.String("host", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	})
	f.breakers[host] = cb
	return cb
}

// FetchURL downloads rawURL into a temp file. The result's name comes from
// Content-Disposition when the server sends one; its meta carries the
// response content type.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) (job.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return job.Result{}, fmt.Errorf("urlfetch: parse %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return job.Result{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	out, err := f.breaker(u.Host).Execute(func() (any, error) {
		return f.download(ctx, u)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		f.logger.Warn("fetch refused by circuit breaker",
			logging.String("host", u.Host),
			logging.String(logging.FieldImpact, "fetch_url steps against this host fail until the breaker closes"),
		)
		return job.Result{}, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, u.Host, err)
	}
	if err != nil {
		return job.Result{}, err
	}
	return out.(job.Result), nil
}

func (f *Fetcher) download(ctx context.Context, u *url.URL) (job.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return job.Result{}, fmt.Errorf("urlfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return job.Result{}, fmt.Errorf("urlfetch: get %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return job.Result{}, &StatusError{URL: u.Redacted(), Code: resp.StatusCode}
	}
	if resp.ContentLength > f.opts.MaxBodyBytes {
		return job.Result{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrBodyTooLarge, resp.ContentLength, f.opts.MaxBodyBytes)
	}

	tmp, err := os.CreateTemp(f.opts.TempDir, "mediajob-url-*"+path.Ext(u.Path))
	if err != nil {
		return job.Result{}, fmt.Errorf("urlfetch: create temp file: %w", err)
	}
	written, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	closeErr := tmp.Close()
	if copyErr == nil && written > f.opts.MaxBodyBytes {
		copyErr = fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.opts.MaxBodyBytes)
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if errors.Is(copyErr, ErrBodyTooLarge) {
			return job.Result{}, copyErr
		}
		return job.Result{}, fmt.Errorf("urlfetch: read body: %w", errors.Join(copyErr, closeErr))
	}

	f.logger.Debug("fetched url",
		logging.String("url", u.Redacted()),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
	)

	res := job.Result{
		Content: content.TempFile(tmp.Name()),
		Name:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		res.Meta = job.Meta{"content_type": ct}
	}
	return res, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
