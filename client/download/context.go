package download

import (
	"context"
	"io"
)

// contextReader fails reads once ctx is done, so a stalled or
// cancelled transfer stops between chunks.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
