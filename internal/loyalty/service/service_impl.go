package service

import (
	"fmt"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/loyalty/domain"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *telemetry.Metrics
}

type Service struct {
	log     *zap.Logger
	metrics *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("loyalty.service"),
		metrics: p.Metrics,
	}
}

func (s *Service) ValidateRules(rules []catalogdomain.LoyaltyRule) error {
	for _, rule := range rules {
		if rule.IsActive && rule.MinSpendThreshold <= 0 {
			return fmt.Errorf("rule %q (%s) has min_spend_threshold %v: %w",
				rule.RuleName, rule.RuleID, rule.MinSpendThreshold, domain.ErrInvalidRuleThreshold)
		}
	}
	return nil
}

// Accrue evaluates every active rule against every transaction. A
// transaction meeting a rule's threshold earns
// floor(total/threshold)*points_per_unit + bonus from that rule; rules
// stack. The quotient is non-negative by the cleaning invariant, so plain
// int64 truncation is the floor.
func (s *Service) Accrue(headers []catalogdomain.SalesHeader, rules []catalogdomain.LoyaltyRule) []domain.Accrual {
	active := make([]catalogdomain.LoyaltyRule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}

	accruals := make([]domain.Accrual, 0, len(headers))
	var totalAwarded int64
	for _, header := range headers {
		var earned int64
		for _, rule := range active {
			if header.TotalAmount < rule.MinSpendThreshold {
				continue
			}
			earned += int64(header.TotalAmount/rule.MinSpendThreshold)*rule.PointsPerUnit + rule.BonusPoints
		}
		totalAwarded += earned
		accruals = append(accruals, domain.Accrual{
			TransactionID: header.TransactionID,
			CustomerID:    header.CustomerID,
			EarnedPoints:  earned,
		})
	}

	s.metrics.ObservePointsAwarded(totalAwarded)
	s.log.Info("loyalty accrual completed",
		zap.Int("transactions", len(headers)),
		zap.Int("active_rules", len(active)),
		zap.Int64("points_awarded", totalAwarded),
	)

	return accruals
}

func (s *Service) TotalsByCustomer(customers []catalogdomain.Customer, accruals []domain.Accrual) map[string]int64 {
	totals := make(map[string]int64, len(customers))
	for _, c := range customers {
		totals[c.ID] = 0
	}
	for _, a := range accruals {
		totals[a.CustomerID] += a.EarnedPoints
	}
	return totals
}
