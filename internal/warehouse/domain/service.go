package domain

import (
	"context"
	"errors"
)

// Output bundles every table the pipeline materializes for one run.
type Output struct {
	Customers    []*DimCustomer
	Products     []*DimProduct
	Stores       []*DimStore
	Promotions   []*DimPromotion
	LoyaltyRules []*DimLoyaltyRule
	RFMRules     []*DimRFMRule
	Facts        []*FactSales
	Segments     []*CustomerLoyaltySegment
	Run          *ETLRun
}

// Service loads a run's output into the warehouse. The load is
// replace-not-append inside a single transaction: either every table is
// fully replaced or nothing is written.
type Service interface {
	Load(ctx context.Context, out Output) error
}

var (
	ErrMissingRunRecord = errors.New("missing_run_record")
)
