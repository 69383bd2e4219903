// Package progress provides an observing [io.Reader] decorator that
// reports the running byte count of a stream to a callback.
//
// # Usage
//
// Wrap any reader with [NewReader]. Bytes pass through unchanged:
//
//	r := progress.NewReader(resp.Body, resp.ContentLength,
//		func(read, total int64, done bool) {
//			fmt.Println(progress.Percent(read, total, done))
//		},
//	)
//	_, err := io.Copy(file, r)
//
// # Percent
//
// [Percent] is floor(100*read/total) clamped to [0,100] when the total is
// known. When the total is unknown (negative or zero, e.g. chunked
// transfer encoding) it reports 0 until the stream reaches EOF and 100 on
// the EOF tick.
package progress
