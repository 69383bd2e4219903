package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/batchdl/client"
	"github.com/adamwoolhether/batchdl/progress"
)

const tracerName = "github.com/adamwoolhether/batchdl/batch"

// Transferer fetches one source URL into one destination path,
// reporting body reads to onProgress.
type Transferer interface {
	Transfer(ctx context.Context, sourceURL, destPath string, onProgress progress.Func) error
}

var _ Transferer = (*client.Client)(nil)

// Orchestrator runs batches sequentially through a single Transferer.
type Orchestrator struct {
	transferer  Transferer
	logger      *slog.Logger
	tracer      trace.Tracer
	itemTimeout time.Duration
	inFlight    atomic.Bool
}

// New builds an Orchestrator around t. The Transferer is reused for
// every item of every batch.
func New(t Transferer, optFns ...Option) (*Orchestrator, error) {
	if t == nil {
		return nil, errors.New("transferer must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying batch option: %w", err)
		}
	}

	o := &Orchestrator{
		transferer:  t,
		logger:      slog.Default(),
		tracer:      noop.NewTracerProvider().Tracer(tracerName),
		itemTimeout: opts.itemTimeout,
	}

	if opts.logger != nil {
		o.logger = opts.logger
	}

	if opts.tp != nil {
		o.tracer = opts.tp.Tracer(tracerName)
	}

	return o, nil
}

// Handle tracks a batch started with [Orchestrator.Submit].
type Handle struct {
	ID     string
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the batch reaches any
// terminal state, including batch-level faults.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err blocks until the batch ends. It returns nil when OnBatchDone was
// delivered, and the batch-level error otherwise.
func (h *Handle) Err() error {
	<-h.done
	return h.err
}

// Cancel stops the batch. The item in flight fails, and no further
// items are attempted.
func (h *Handle) Cancel() {
	h.cancel()
}

// Submit starts the batch on a new goroutine and returns immediately.
// Notifications reach obs from that goroutine.
func (o *Orchestrator) Submit(ctx context.Context, reqs []Request, obs Observer) (*Handle, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBatchInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:     uuid.NewString(),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer func() {
			cancel()
			o.inFlight.Store(false)
			close(h.done)
		}()

		h.err = o.run(ctx, h.ID, reqs, obs)
	}()

	return h, nil
}

// Run executes the batch on the calling goroutine and returns once it
// ends, with the same result [Handle.Err] would report.
func (o *Orchestrator) Run(ctx context.Context, reqs []Request, obs Observer) error {
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrBatchInFlight
	}
	defer o.inFlight.Store(false)

	return o.run(ctx, uuid.NewString(), reqs, obs)
}

// streamBuffer holds the events a cancelled batch still emits: the last
// progress tick, the item failure and the batch-level error.
const streamBuffer = 4

// Stream starts the batch and delivers its notifications as Events.
// The channel is closed after the terminal event. Consumers must drain
// it or cancel ctx. Once ctx is cancelled, an event is dropped only if
// the buffer is full and the consumer is not receiving.
func (o *Orchestrator) Stream(ctx context.Context, reqs []Request) (<-chan Event, error) {
	events := make(chan Event, streamBuffer)

	h, err := o.Submit(ctx, reqs, chanObserver{events: events, done: ctx.Done()})
	if err != nil {
		return nil, err
	}

	go func() {
		<-h.Done()
		close(events)
	}()

	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, id string, reqs []Request, obs Observer) (err error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}

	logger := o.logger.With("batch", id)

	ctx, span := o.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.String("batch.id", id),
		attribute.Int("batch.items", len(reqs)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = &FatalError{Value: r}
			logger.Error("batch fault", "error", err, "stack", string(debug.Stack()))
			o.reportFault(logger, obs, err)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if len(reqs) == 0 {
		logger.Error("batch rejected", "error", ErrNoWork)
		obs.OnItemError("", ErrNoWork, "no work submitted")
		return ErrNoWork
	}

	logger.Info("batch started", "items", len(reqs))

	var failed int
	for i, req := range reqs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(logger, obs, i, len(reqs), ctxErr)
		}

		out := o.execute(ctx, logger, i, reqs, obs)
		if !out.Succeeded {
			failed++
			obs.OnItemError(req.SourceURL, out.Err, describe(out.Err))
		}
	}

	// A cancel that lands during the last item still ends the batch as cancelled.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(logger, obs, len(reqs), len(reqs), ctxErr)
	}

	logger.Info("batch done", "items", len(reqs), "failed", failed)
	obs.OnBatchDone()

	return nil
}

// cancelled reports the batch-level cancellation after attempted items.
func cancelled(logger *slog.Logger, obs Observer, attempted, total int, cause error) error {
	err := fmt.Errorf("%w after %d of %d items: %w", ErrBatchCancelled, attempted, total, cause)
	logger.Warn("batch cancelled", "attempted", attempted, "error", cause)
	obs.OnItemError("", err, "batch cancelled")
	return err
}

// execute transfers reqs[i], rewiring low-level progress into
// batch-relative Progress ticks.
func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, i int, reqs []Request, obs Observer) Outcome {
	req := reqs[i]
	count := len(reqs)

	ctx, span := o.tracer.Start(ctx, "batch.item", trace.WithAttributes(
		attribute.Int("item.index", i+1),
		attribute.String("item.url", req.SourceURL),
	))
	defer span.End()

	fail := func(err error) Outcome {
		logger.Error("item failed", "item", i+1, "url", req.SourceURL, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{Err: err}
	}

	if err := Validate(req); err != nil {
		return fail(err)
	}

	if o.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.itemTimeout)
		defer cancel()
	}

	onProgress := func(read, total int64, done bool) {
		obs.OnProgress(Progress{
			ItemIndex:  i + 1,
			ItemCount:  count,
			SourceURL:  req.SourceURL,
			Percent:    progress.Percent(read, total, done),
			BytesRead:  read,
			TotalBytes: total,
		})
	}

	start := time.Now()
	if err := o.transferer.Transfer(ctx, req.SourceURL, req.DestinationPath, onProgress); err != nil {
		return fail(err)
	}

	logger.Info("item transferred",
		"item", i+1,
		"url", req.SourceURL,
		"path", req.DestinationPath,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return Outcome{Succeeded: true}
}

// reportFault delivers a batch-level fault. A panicking observer is
// logged rather than allowed to crash the batch goroutine.
func (o *Orchestrator) reportFault(logger *slog.Logger, obs Observer, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("observer panicked while reporting fault", "panic", r)
		}
	}()

	obs.OnItemError("", err, "error retrieving data")
}
