package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/batchdl/client"
)

var (
	// ErrNoWork is reported when a batch is submitted without requests.
	ErrNoWork = errors.New("no work submitted")
	// ErrBatchInFlight is returned when an Orchestrator is already running a batch.
	ErrBatchInFlight = errors.New("batch already in flight")
	// ErrBatchCancelled is reported when the batch context ends before every item was attempted.
	ErrBatchCancelled = errors.New("batch cancelled")
	// ErrFatal is the sentinel wrapped by [FatalError].
	ErrFatal = errors.New("fatal batch fault")
	// ErrInvalidRequest is wrapped by [FieldErrors].
	ErrInvalidRequest = errors.New("invalid request")
)

// Request is one item of a batch. It is read-only once submitted.
type Request struct {
	SourceURL       string `json:"url"  yaml:"url"  validate:"required,http_url"`
	DestinationPath string `json:"dest" yaml:"dest" validate:"required,abspath"`
}

// Progress is a single progress tick, relative to the batch.
type Progress struct {
	ItemIndex  int // 1-based
	ItemCount  int
	SourceURL  string
	Percent    int
	BytesRead  int64
	TotalBytes int64 // negative when the server sent no Content-Length
}

// Outcome is the result of one item's transfer.
type Outcome struct {
	Succeeded bool
	Err       error
}

// FatalError carries a fault recovered outside per-item handling.
type FatalError struct {
	Value any
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v: %v", ErrFatal, e.Value)
}

func (e *FatalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return errors.Join(ErrFatal, err)
	}
	return ErrFatal
}

// describe renders a human-readable message for an item failure.
func describe(err error) string {
	var statusErr *client.UnexpectedStatusError
	var fieldErrs FieldErrors

	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("error code: %d %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
	case errors.As(err, &fieldErrs):
		return "invalid request: " + fieldErrs.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "transfer timed out"
	case errors.Is(err, context.Canceled):
		return "transfer cancelled"
	default:
		return err.Error()
	}
}
