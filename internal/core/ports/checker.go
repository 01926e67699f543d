package ports

import (
	"context"

	"github.com/echosys/storagecheck/internal/core/domain/probe"
)

// Checker runs connectivity probes against the backing stores.
type Checker interface {
	ProbeRelationalStore(ctx context.Context) probe.Result
	ProbeCacheStore(ctx context.Context) probe.Result
	ProbeIntegration(ctx context.Context) probe.Result
	// Run executes all probes in fixed order and returns the full report.
	Run(ctx context.Context) probe.Report
}
