package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adamwoolhether/batchdl/progress"
)

// Handle streams body to destPath. The file is created or truncated,
// and parent directories are never created. contentLength is the
// declared body length, negative when unknown.
//
// Without WithAtomic a failed copy may leave partial content at destPath.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	body = &contextReader{ctx: ctx, r: body}

	var observers []progress.Func
	if opts.progressFn != nil {
		observers = append(observers, opts.progressFn)
	}
	if opts.progressLog {
		observers = append(observers, newProgressLogger(logger, destPath).observe)
	}
	if len(observers) > 0 {
		body = progress.NewReader(body, contentLength, func(read, total int64, done bool) {
			for _, fn := range observers {
				fn(read, total, done)
			}
		})
	}

	file, err := create(destPath, opts.atomic)
	if err != nil {
		return err
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing file", "path", file.Name(), "error", err)
		}
		if opts.atomic && !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "path", file.Name(), "error", err)
			}
		}
	}()

	n, err := io.Copy(file, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		return fmt.Errorf("copying file body: %w", err)
	}

	if contentLength >= 0 && n != contentLength {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if opts.atomic {
		if err := os.Rename(file.Name(), destPath); err != nil {
			return fmt.Errorf("renaming temp file: %w", err)
		}
	}

	successful = true

	return nil
}

// create opens the file the body is copied into.
func create(destPath string, atomic bool) (*os.File, error) {
	if !atomic {
		file, err := os.Create(destPath)
		if err != nil {
			return nil, fmt.Errorf("creating file: %w", err)
		}
		return file, nil
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".batchdl-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return file, nil
}
