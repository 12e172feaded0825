package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RunResult summarizes one completed pipeline run.
type RunResult struct {
	RunID        snowflake.ID
	StartedAt    time.Time
	CompletedAt  time.Time
	SnapshotDate *time.Time

	Customers   int
	Facts       int
	Segments    int
	RowsDropped int

	DegenerateMetrics []string
}

// Service runs the full batch: extract, clean, assemble facts, accrue
// loyalty, score RFM, classify segments, and load the warehouse. A run
// either completes and emits every output table or fails and emits none.
type Service interface {
	Run(ctx context.Context) (RunResult, error)
}
