package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/adamwoolhether/batchdl/batch"
)

// renderer prints batch notifications as plain terminal lines. A line is
// written only when an item's whole percentage changes.
type renderer struct {
	w     io.Writer
	items int

	lastItem int
	lastPct  int
	failed   int
}

var _ batch.Observer = (*renderer)(nil)

func newRenderer(w io.Writer, items int) *renderer {
	return &renderer{w: w, items: items, lastPct: -1}
}

func (r *renderer) OnProgress(p batch.Progress) {
	if p.ItemIndex == r.lastItem && p.Percent == r.lastPct {
		return
	}
	r.lastItem, r.lastPct = p.ItemIndex, p.Percent

	fmt.Fprintf(r.w, "[%d/%d] %3d%% %s %s\n", p.ItemIndex, p.ItemCount, p.Percent, sizeOf(p.BytesRead, p.TotalBytes), p.SourceURL)
}

func (r *renderer) OnItemError(sourceURL string, err error, message string) {
	if sourceURL == "" {
		fmt.Fprintf(r.w, "batch failed: %s\n", message)
		return
	}

	r.failed++
	fmt.Fprintf(r.w, "failed %s: %s\n", sourceURL, message)
}

func (r *renderer) OnBatchDone() {
	fmt.Fprintf(r.w, "done: %d of %d items downloaded\n", r.items-r.failed, r.items)
}

func sizeOf(read, total int64) string {
	if total < 0 {
		return humanize.Bytes(uint64(max(read, 0)))
	}
	return humanize.Bytes(uint64(max(read, 0))) + " / " + humanize.Bytes(uint64(total))
}
