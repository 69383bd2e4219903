// Package batch runs an ordered list of downloads one at a time and
// reports their progress to an observer.
//
// # Running a Batch
//
// Build an [Orchestrator] around any [Transferer], usually a
// [github.com/adamwoolhether/batchdl/client.Client], and submit requests:
//
//	o, err := batch.New(c, batch.WithLogger(logger))
//	h, err := o.Submit(ctx, []batch.Request{
//		{SourceURL: "https://example.com/a.bin", DestinationPath: "/tmp/a.bin"},
//		{SourceURL: "https://example.com/b.bin", DestinationPath: "/tmp/b.bin"},
//	}, observer)
//	<-h.Done()
//
// Items run sequentially on a single background goroutine. A failed item
// is reported through [Observer.OnItemError] and the batch moves on to
// the next one. [Observer.OnBatchDone] fires exactly once after every
// item has been attempted.
//
// # Delivery
//
// All notifications are delivered on the batch goroutine, never on the
// caller's goroutine. Observers that drive a UI must marshal onto their
// own event loop. [Orchestrator.Stream] offers the same contract as a
// channel of [Event] values.
//
// # Batch-level Faults
//
// An empty request list, a cancelled context or a recovered panic is
// reported once through OnItemError with an empty source URL, and
// OnBatchDone is not called. [Handle.Done] closes in every case, and
// [Handle.Err] reports which terminal path the batch took.
//
// An Orchestrator runs one batch at a time. Submitting while a batch is
// in flight returns [ErrBatchInFlight].
package batch
