// Package domain contains the cleaned entity snapshot the compute stages
// operate on. Values that the cleaner may null out are pointers.
package domain

import "time"

type Customer struct {
	ID               string
	FullName         string
	Email            string
	Phone            string
	LoyaltyStatus    string
	TotalPoints      int64
	LastPurchaseDate *time.Time
	CustomerSince    *time.Time
	SegmentID        string
}

type Product struct {
	ID           string
	Name         string
	Category     string
	UnitPrice    *float64
	CurrentStock int64
}

type Store struct {
	ID          string
	Name        string
	City        string
	Region      string
	OpeningDate *time.Time
}

type Promotion struct {
	ID                 string
	RuleName           string
	DiscountPercent    *float64
	ApplicableCategory string
	StartDate          *time.Time
	EndDate            *time.Time
}

type SalesHeader struct {
	TransactionID   string
	CustomerID      string
	StoreID         string
	TransactionDate *time.Time
	TotalAmount     float64
	CustomerPhone   string
}

type SalesLineItem struct {
	LineItemID     string
	TransactionID  string
	ProductID      string
	PromotionID    string
	Quantity       int64
	LineItemAmount *float64
}

// LoyaltyRule is one row of the loyalty rule table. Rules are independent
// and additive; a transaction may earn from several at once.
type LoyaltyRule struct {
	RuleID            string
	RuleName          string
	PointsPerUnit     int64
	MinSpendThreshold float64
	BonusPoints       int64
	IsActive          bool
}

// SegmentRule is one row of the RFM segment boundary table. Ranges are
// inclusive on both ends and may overlap; table order breaks ties.
type SegmentRule struct {
	SegmentName string
	ScoreMin    int
	ScoreMax    int
}

// Snapshot bundles all cleaned tables for one pipeline run.
type Snapshot struct {
	Customers    []Customer
	Products     []Product
	Stores       []Store
	Promotions   []Promotion
	Headers      []SalesHeader
	LineItems    []SalesLineItem
	LoyaltyRules []LoyaltyRule
	SegmentRules []SegmentRule
}
