package domain

import "time"

// FactSalesRow is one denormalized sales fact: a line item joined with its
// transaction header, product, and (when present) promotion. Rows are
// immutable once assembled. Promotion fields are nil when the line item
// carries no matching promotion.
type FactSalesRow struct {
	LineItemID     string
	TransactionID  string
	CustomerID     string
	ProductID      string
	PromotionID    string
	StoreID        string
	Quantity       int64
	TotalAmount    float64
	LineItemAmount *float64

	TransactionDate *time.Time
	CustomerPhone   string

	ProductName     string
	ProductCategory string
	UnitPrice       *float64
	CurrentStock    int64

	PromotionRuleName  *string
	DiscountPercent    *float64
	ApplicableCategory *string
	PromotionStartDate *time.Time
	PromotionEndDate   *time.Time
}
