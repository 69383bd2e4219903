package client

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/batchdl/client/download"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client      *http.Client
	rt          http.RoundTripper
	timeout     *time.Duration
	userAgent   string
	logger      *slog.Logger
	atomic      bool
	progressLog bool
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the per-request timeout on the underlying [http.Client].
// The timeout covers reading the whole body.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithAtomicWrites streams each body to a temp file next to the
// destination and renames it into place only on success.
func WithAtomicWrites() Option {
	return func(c *options) error {
		c.atomic = true
		return nil
	}
}

// WithProgressLog logs transfer progress at most once per second.
func WithProgressLog() Option {
	return func(c *options) error {
		c.progressLog = true
		return nil
	}
}

// downloadOptions translates client settings into per-transfer options.
func (o options) downloadOptions() []download.Option {
	var opts []download.Option
	if o.atomic {
		opts = append(opts, download.WithAtomic())
	}
	if o.progressLog {
		opts = append(opts, download.WithProgressLog())
	}
	return opts
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
