// Package download streams HTTP response bodies to disk with progress
// reporting.
//
// # Single Download
//
// [Handle] creates (or truncates) the destination file and copies the
// body into it, reporting every read through an optional callback:
//
//	err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithProgressFunc(fn),
//	)
//
// With [WithAtomic] the body is written to a temporary file alongside the
// destination and renamed on success, so a failed transfer never leaves
// partial content at destPath.
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/batchdl/client] package, which invokes
// Handle internally.
package download
