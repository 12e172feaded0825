package domain

import (
	"errors"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
)

// Accrual is the points earned by one transaction across all active rules.
type Accrual struct {
	TransactionID string
	CustomerID    string
	EarnedPoints  int64
}

// Service applies the loyalty rule table to the transaction snapshot.
//
// Rules are plain data records evaluated in an ordered loop; they are
// independent and additive, with no priority or mutual exclusivity.
type Service interface {
	// ValidateRules rejects rule sets that cannot be evaluated. An active
	// rule with a non-positive min spend threshold is a configuration
	// error: the accrual formula divides by the threshold.
	ValidateRules(rules []catalogdomain.LoyaltyRule) error

	// Accrue computes per-transaction earned points over all active rules.
	Accrue(headers []catalogdomain.SalesHeader, rules []catalogdomain.LoyaltyRule) []Accrual

	// TotalsByCustomer sums accruals into a full per-customer recompute.
	// Every customer in the base table gets an entry; zero transactions
	// means zero points, not a missing key.
	TotalsByCustomer(customers []catalogdomain.Customer, accruals []Accrual) map[string]int64
}

var (
	// ErrInvalidRuleThreshold is surfaced before any computation when an
	// active rule carries min_spend_threshold <= 0.
	ErrInvalidRuleThreshold = errors.New("invalid_rule_threshold")
)
