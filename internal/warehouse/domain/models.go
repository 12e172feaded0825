// Package domain contains the persistence models for the retail warehouse.
// Column layouts are fixed: downstream reporting depends on them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type DimCustomer struct {
	CustomerID         string     `gorm:"primaryKey;type:varchar(10)"`
	FullName           string     `gorm:"type:varchar(255)"`
	Email              string     `gorm:"type:varchar(255)"`
	LoyaltyStatus      string     `gorm:"type:varchar(50)"`
	TotalLoyaltyPoints int64      `gorm:"not null"`
	LastPurchaseDate   *time.Time `gorm:"type:date"`
	Phone              string     `gorm:"type:varchar(50)"`
	CustomerSince      *time.Time `gorm:"type:date"`
	SegmentID          string     `gorm:"type:varchar(10)"`
	EarnedPoints       int64      `gorm:"not null"`
}

func (DimCustomer) TableName() string { return "dim_customer" }

type DimProduct struct {
	ProductID       string   `gorm:"primaryKey;type:varchar(10)"`
	ProductName     string   `gorm:"type:varchar(255)"`
	ProductCategory string   `gorm:"type:varchar(100)"`
	UnitPrice       *float64 `gorm:"type:decimal(10,2)"`
	CurrentStock    int64    `gorm:"not null"`
}

func (DimProduct) TableName() string { return "dim_product" }

type DimStore struct {
	StoreID     string     `gorm:"primaryKey;type:varchar(10)"`
	StoreName   string     `gorm:"type:varchar(255)"`
	City        string     `gorm:"type:varchar(100)"`
	StoreRegion string     `gorm:"type:varchar(50)"`
	OpeningDate *time.Time `gorm:"type:date"`
}

func (DimStore) TableName() string { return "dim_store" }

type DimPromotion struct {
	PromotionID        string     `gorm:"primaryKey;type:varchar(10)"`
	RuleName           string     `gorm:"type:varchar(255)"`
	DiscountPercent    *float64   `gorm:"type:decimal(5,2)"`
	ApplicableCategory string     `gorm:"type:varchar(100)"`
	StartDate          *time.Time `gorm:"type:date"`
	EndDate            *time.Time `gorm:"type:date"`
}

func (DimPromotion) TableName() string { return "dim_promotion" }

type DimLoyaltyRule struct {
	RuleID            string  `gorm:"primaryKey;type:varchar(10)"`
	RuleName          string  `gorm:"type:varchar(255)"`
	PointsPerUnit     int64   `gorm:"column:points_per_unit_spend;not null"`
	MinSpendThreshold float64 `gorm:"not null"`
	BonusPoints       int64   `gorm:"not null"`
	IsActive          bool    `gorm:"not null"`
}

func (DimLoyaltyRule) TableName() string { return "dim_loyalty_rules" }

type DimRFMRule struct {
	SegmentName string `gorm:"primaryKey;type:varchar(100)"`
	ScoreMin    int    `gorm:"column:rfm_score_min;not null"`
	ScoreMax    int    `gorm:"column:rfm_score_max;not null"`
	// Position preserves rule-table order; classification is first match.
	Position int `gorm:"not null"`
}

func (DimRFMRule) TableName() string { return "dim_rfm_rules" }

type FactSales struct {
	LineItemID     string   `gorm:"primaryKey;type:varchar(20)"`
	TransactionID  string   `gorm:"type:varchar(20);index:idx_transaction"`
	CustomerID     string   `gorm:"type:varchar(10);index:idx_customer"`
	ProductID      string   `gorm:"type:varchar(10);index:idx_product"`
	PromotionID    string   `gorm:"type:varchar(10)"`
	StoreID        string   `gorm:"type:varchar(10);index:idx_store"`
	Quantity       int64    `gorm:"not null"`
	TotalAmount    float64  `gorm:"type:decimal(10,2);not null"`
	LineItemAmount *float64 `gorm:"type:decimal(10,2)"`

	TransactionDate *time.Time `gorm:"type:date;index:idx_date"`

	ProductName     string   `gorm:"type:varchar(255)"`
	ProductCategory string   `gorm:"type:varchar(100)"`
	UnitPrice       *float64 `gorm:"type:decimal(10,2)"`
	CurrentStock    int64    `gorm:"not null"`

	RuleName           *string    `gorm:"type:varchar(255)"`
	DiscountPercent    *float64   `gorm:"type:decimal(5,2)"`
	ApplicableCategory *string    `gorm:"type:varchar(100)"`
	StartDate          *time.Time `gorm:"type:date"`
	EndDate            *time.Time `gorm:"type:date"`

	CustomerPhone string `gorm:"type:varchar(50)"`
}

func (FactSales) TableName() string { return "fact_sales" }

// CustomerLoyaltySegment is the merged customer output: the dim_customer
// fields plus RFM metrics and segment label. RFM fields are null for
// customers without transactions in the snapshot.
type CustomerLoyaltySegment struct {
	CustomerID         string     `gorm:"primaryKey;type:varchar(10)"`
	FullName           string     `gorm:"type:varchar(255)"`
	Email              string     `gorm:"type:varchar(255)"`
	LoyaltyStatus      string     `gorm:"type:varchar(50)"`
	TotalLoyaltyPoints int64      `gorm:"not null"`
	LastPurchaseDate   *time.Time `gorm:"type:date"`
	Phone              string     `gorm:"type:varchar(50)"`
	CustomerSince      *time.Time `gorm:"type:date"`
	SegmentID          string     `gorm:"type:varchar(10)"`
	EarnedPoints       int64      `gorm:"not null"`

	Recency   *int     `gorm:""`
	Frequency *int     `gorm:""`
	Monetary  *float64 `gorm:"type:decimal(12,2)"`
	R         *int     `gorm:"column:r"`
	F         *int     `gorm:"column:f"`
	M         *int     `gorm:"column:m"`
	RFMScore  *int     `gorm:"column:rfm_score"`
	Segment   *string  `gorm:"type:varchar(100)"`
}

func (CustomerLoyaltySegment) TableName() string { return "customer_loyalty_segments" }

// ETLRun records one pipeline execution for auditability.
type ETLRun struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	StartedAt    time.Time    `gorm:"not null"`
	CompletedAt  time.Time    `gorm:"not null"`
	SnapshotDate *time.Time   `gorm:"type:date"`

	CustomerRows  int `gorm:"not null"`
	ProductRows   int `gorm:"not null"`
	StoreRows     int `gorm:"not null"`
	PromotionRows int `gorm:"not null"`
	FactRows      int `gorm:"not null"`
	SegmentRows   int `gorm:"not null"`
	DroppedRows   int `gorm:"not null"`
}

func (ETLRun) TableName() string { return "etl_runs" }
