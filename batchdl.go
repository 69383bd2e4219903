// Package batchdl exposes the batch downloader builder.
package batchdl

import (
	"fmt"

	"github.com/adamwoolhether/batchdl/batch"
	"github.com/adamwoolhether/batchdl/client"
)

// NewOrchestrator builds an HTTP client from clientOpts and wraps it in a
// batch Orchestrator configured by opts.
// If not specified, the default http.Client and http.Transport are used.
func NewOrchestrator(clientOpts []client.Option, opts ...batch.Option) (*batch.Orchestrator, error) {
	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}

	o, err := batch.New(c, opts...)
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}

	return o, nil
}
