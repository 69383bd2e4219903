// Package e2e runs whole batches against a local HTTP server.
// The tests carry the integration build tag:
//
//	go test -tags integration ./e2e/...
package e2e
