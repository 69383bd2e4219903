package download

import (
	"errors"

	"github.com/adamwoolhether/batchdl/progress"
)

// Option defines optional settings for downloading files.
//
// WithProgressFunc registers a callback invoked on every read of the body.
//
// WithProgressLog enables periodic download progress logging via the
// logger supplied to Handle.
//
// WithAtomic writes to a temp file and renames it over destPath on success.
type Option func(*options) error

type options struct {
	progressFn  progress.Func
	progressLog bool
	atomic      bool
}

func WithProgressFunc(fn progress.Func) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}

		opts.progressFn = fn
		return nil
	}
}

func WithProgressLog() Option {
	return func(opts *options) error {
		opts.progressLog = true
		return nil
	}
}

func WithAtomic() Option {
	return func(opts *options) error {
		opts.atomic = true
		return nil
	}
}
