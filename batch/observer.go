package batch

// Observer receives the notifications of a batch. Every method is called
// from the batch goroutine.
//
// OnProgress fires zero or more times per item.
//
// OnItemError fires once per failed item. An empty sourceURL marks a
// batch-level fault, after which OnBatchDone is not called.
//
// OnBatchDone fires exactly once after all items were attempted.
type Observer interface {
	OnProgress(Progress)
	OnItemError(sourceURL string, err error, message string)
	OnBatchDone()
}

// ObserverFuncs adapts plain funcs into an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress  func(Progress)
	ItemError func(sourceURL string, err error, message string)
	BatchDone func()
}

func (f ObserverFuncs) OnProgress(p Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ObserverFuncs) OnItemError(sourceURL string, err error, message string) {
	if f.ItemError != nil {
		f.ItemError(sourceURL, err, message)
	}
}

func (f ObserverFuncs) OnBatchDone() {
	if f.BatchDone != nil {
		f.BatchDone()
	}
}

// EventKind identifies which notification an Event carries.
type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventItemError
	EventBatchDone
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventItemError:
		return "item_error"
	case EventBatchDone:
		return "batch_done"
	default:
		return "unknown"
	}
}

// Event is one notification delivered through [Orchestrator.Stream].
// Progress is set for EventProgress; SourceURL, Err and Message for
// EventItemError.
type Event struct {
	Kind      EventKind
	Progress  Progress
	SourceURL string
	Err       error
	Message   string
}

// chanObserver forwards notifications into a channel, blocking the
// batch until the event is buffered or received, or done closes.
type chanObserver struct {
	events chan<- Event
	done   <-chan struct{}
}

func (c chanObserver) send(e Event) {
	// Buffer space wins over a closed done.
	select {
	case c.events <- e:
		return
	default:
	}

	select {
	case c.events <- e:
	case <-c.done:
	}
}

func (c chanObserver) OnProgress(p Progress) {
	c.send(Event{Kind: EventProgress, Progress: p, SourceURL: p.SourceURL})
}

func (c chanObserver) OnItemError(sourceURL string, err error, message string) {
	c.send(Event{Kind: EventItemError, SourceURL: sourceURL, Err: err, Message: message})
}

func (c chanObserver) OnBatchDone() {
	c.send(Event{Kind: EventBatchDone})
}
