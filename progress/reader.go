package progress

import (
	"errors"
	"io"
)

// Func receives the bytes consumed so far, the declared total length
// (negative when unknown) and whether the underlying stream hit EOF.
type Func func(bytesRead, totalBytes int64, done bool)

// Reader is an io.Reader, invoking a Func after every read of
// the wrapped stream.
type Reader struct {
	r     io.Reader
	total int64
	read  int64
	fn    Func
}

// NewReader wraps r. total is the declared length of the stream, or
// a negative value if unknown. A nil fn makes the Reader a pure byte
// counter.
func NewReader(r io.Reader, total int64, fn Func) *Reader {
	return &Reader{
		r:     r,
		total: total,
		fn:    fn,
	}
}

// Read forwards to the wrapped reader and reports progress, including
// calls that return zero bytes.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.read += int64(n)
	}

	if r.fn != nil {
		r.fn(r.read, r.total, errors.Is(err, io.EOF))
	}

	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.read
}

// Total returns the declared stream length.
func (r *Reader) Total() int64 {
	return r.total
}

// Percent derives a whole percentage from a progress tick.
func Percent(bytesRead, totalBytes int64, done bool) int {
	if totalBytes <= 0 {
		if done {
			return 100
		}
		return 0
	}

	if bytesRead <= 0 {
		return 0
	}

	if bytesRead >= totalBytes {
		return 100
	}

	return int(bytesRead * 100 / totalBytes)
}
