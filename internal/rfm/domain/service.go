package domain

import (
	"time"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
)

// Metrics is one customer's recency/frequency/monetary measurement and the
// tertile ranks derived from it. Score is always in [3,9].
type Metrics struct {
	CustomerID string
	Recency    int
	Frequency  int
	Monetary   float64
	R          int
	F          int
	M          int
	Score      int
}

// Report flags population conditions that forced a deterministic fallback.
type Report struct {
	// DegenerateMetrics lists metrics ("recency", "frequency", "monetary")
	// whose population had fewer than three distinct binning inputs; every
	// customer received the configured fallback rank for those.
	DegenerateMetrics []string
	// UndatedCustomers counts customers excluded from scoring because none
	// of their transactions carried a parseable date.
	UndatedCustomers int
}

// Service computes RFM metrics and tertile scores for every customer with
// at least one transaction in the snapshot.
//
// Scoring is two-phase: tertile cut points are computed once over the whole
// population, then each customer is classified against those fixed cut
// points. The snapshot date is an explicit parameter, never ambient state.
type Service interface {
	// SnapshotDate derives the reference date: one day after the latest
	// transaction date in the snapshot. ok is false when no transaction
	// carries a date.
	SnapshotDate(headers []catalogdomain.SalesHeader) (date time.Time, ok bool)

	// Score computes per-customer metrics and tertile ranks against the
	// given snapshot date. Results are ordered by customer ID.
	Score(headers []catalogdomain.SalesHeader, snapshot time.Time) ([]Metrics, Report)
}
