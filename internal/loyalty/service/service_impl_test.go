package service

import (
	"testing"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/loyalty/domain"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return &Service{
		log:     zap.NewNop(),
		metrics: telemetry.NewTestMetrics(),
	}
}

func TestValidateRules_RejectsNonPositiveThresholdOnActiveRule(t *testing.T) {
	svc := newTestService()

	err := svc.ValidateRules([]catalogdomain.LoyaltyRule{
		{RuleID: "R1", RuleName: "Broken", MinSpendThreshold: 0, IsActive: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRuleThreshold)
}

func TestValidateRules_IgnoresInactiveRuleThreshold(t *testing.T) {
	svc := newTestService()

	err := svc.ValidateRules([]catalogdomain.LoyaltyRule{
		{RuleID: "R1", MinSpendThreshold: -5, IsActive: false},
		{RuleID: "R2", MinSpendThreshold: 50, IsActive: true},
	})
	assert.NoError(t, err)
}

func TestAccrue_RulesAreAdditive(t *testing.T) {
	svc := newTestService()
	rules := []catalogdomain.LoyaltyRule{
		{RuleID: "A", PointsPerUnit: 5, MinSpendThreshold: 100, BonusPoints: 10, IsActive: true},
		{RuleID: "B", PointsPerUnit: 1, MinSpendThreshold: 50, BonusPoints: 0, IsActive: true},
	}
	headers := []catalogdomain.SalesHeader{
		{TransactionID: "T1", CustomerID: "C1", TotalAmount: 250},
	}

	accruals := svc.Accrue(headers, rules)
	require.Len(t, accruals, 1)
	// Rule A: floor(250/100)*5+10 = 20; rule B: floor(250/50)*1 = 5.
	assert.Equal(t, int64(25), accruals[0].EarnedPoints)
}

func TestAccrue_ThresholdNotMetEarnsNothing(t *testing.T) {
	svc := newTestService()
	rules := []catalogdomain.LoyaltyRule{
		{RuleID: "A", PointsPerUnit: 5, MinSpendThreshold: 100, BonusPoints: 10, IsActive: true},
	}
	headers := []catalogdomain.SalesHeader{
		{TransactionID: "T1", CustomerID: "C1", TotalAmount: 99.99},
	}

	accruals := svc.Accrue(headers, rules)
	require.Len(t, accruals, 1)
	assert.Equal(t, int64(0), accruals[0].EarnedPoints)
}

func TestAccrue_InactiveRuleNeverContributes(t *testing.T) {
	svc := newTestService()
	rules := []catalogdomain.LoyaltyRule{
		{RuleID: "A", PointsPerUnit: 100, MinSpendThreshold: 1, BonusPoints: 1000, IsActive: false},
	}
	headers := []catalogdomain.SalesHeader{
		{TransactionID: "T1", CustomerID: "C1", TotalAmount: 10000},
	}

	accruals := svc.Accrue(headers, rules)
	require.Len(t, accruals, 1)
	assert.Equal(t, int64(0), accruals[0].EarnedPoints)
}

func TestTotalsByCustomer_FullRecompute(t *testing.T) {
	svc := newTestService()
	customers := []catalogdomain.Customer{
		{ID: "C1", TotalPoints: 999}, // stale stored total, replaced by recompute
		{ID: "C2"},
	}
	accruals := []domain.Accrual{
		{TransactionID: "T1", CustomerID: "C1", EarnedPoints: 20},
		{TransactionID: "T2", CustomerID: "C1", EarnedPoints: 5},
	}

	totals := svc.TotalsByCustomer(customers, accruals)
	assert.Equal(t, int64(25), totals["C1"])
	// Zero transactions means zero points, not a missing entry.
	points, ok := totals["C2"]
	require.True(t, ok)
	assert.Equal(t, int64(0), points)
}
