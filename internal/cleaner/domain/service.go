package domain

import (
	"context"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/dataset"
)

// Service normalizes raw tables into the typed snapshot: canonical column
// names, parsed dates, sanitized values, referentially-valid line items.
// Bad values are nulled, clamped, or filtered, never surfaced as errors;
// only a missing required column fails the run.
type Service interface {
	Clean(ctx context.Context, raw map[string]*dataset.RawTable) (catalogdomain.Snapshot, Report, error)
}

// Report carries the sanitization counts for one run. Everything in here is
// informational; filtering is reported, not raised.
type Report struct {
	UnitPricesNulled int
	StocksClamped    int
	DatesNulled      int

	HeadersDroppedNegativeAmount int
	LineItemsDroppedQuantity     int
	LineItemsDroppedNoProduct    int
	LineItemsDroppedOrphan       int
}
