// Package client provides the transport used to fetch remote resources,
// built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(30 * time.Second),
//		client.WithLogger(logger),
//	)
//
// # Transferring Files
//
// [Client.Transfer] issues a GET and streams a successful (2xx) response
// body to a local path, reporting every read of the body:
//
//	err = c.Transfer(ctx, "https://example.com/a.bin", "/tmp/a.bin",
//		func(read, total int64, done bool) { ... },
//	)
//
// Any other status yields an [*UnexpectedStatusError] and nothing is
// written to disk. By default the destination is created or truncated
// in place; [WithAtomicWrites] switches to temp-file-and-rename.
//
// Tests substitute a fake transport through [WithTransport] or
// [WithClient].
//
// For lower-level control see the
// [github.com/adamwoolhether/batchdl/client/download] package.
package client
