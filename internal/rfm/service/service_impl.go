package service

import (
	"sort"
	"time"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/config"
	"github.com/smallbiznis/loyara/internal/rfm/domain"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Metrics  *telemetry.Metrics
	Pipeline *config.PipelineConfigHolder
}

type Service struct {
	log      *zap.Logger
	metrics  *telemetry.Metrics
	pipeline *config.PipelineConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("rfm.service"),
		metrics:  p.Metrics,
		pipeline: p.Pipeline,
	}
}

func (s *Service) SnapshotDate(headers []catalogdomain.SalesHeader) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, h := range headers {
		if h.TransactionDate == nil {
			continue
		}
		if !found || h.TransactionDate.After(latest) {
			latest = *h.TransactionDate
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return latest.Add(24 * time.Hour), true
}

func (s *Service) Score(headers []catalogdomain.SalesHeader, snapshot time.Time) ([]domain.Metrics, domain.Report) {
	report := domain.Report{}
	metrics := s.aggregate(headers, snapshot, &report)
	if len(metrics) == 0 {
		return metrics, report
	}

	fallback := s.pipeline.Get().DegenerateBinRank

	recencies := make([]float64, len(metrics))
	frequencies := make([]float64, len(metrics))
	monetaries := make([]float64, len(metrics))
	for i, m := range metrics {
		recencies[i] = float64(m.Recency)
		frequencies[i] = float64(m.Frequency)
		monetaries[i] = float64(m.Monetary)
	}

	// R: lower recency is better, so bins are labeled 3,2,1.
	rBins, rDegenerate := s.binValues("recency", recencies, fallback, &report)
	for i := range metrics {
		if rDegenerate {
			metrics[i].R = rBins[i]
		} else {
			metrics[i].R = 4 - rBins[i]
		}
	}

	// F: distinct stable ranks first (ties broken by row order), then
	// tertiles over the ranks.
	fBins, _ := s.binValues("frequency", stableRanks(frequencies), fallback, &report)
	for i := range metrics {
		metrics[i].F = fBins[i]
	}

	// M: tertiles directly on value.
	mBins, _ := s.binValues("monetary", monetaries, fallback, &report)
	for i := range metrics {
		metrics[i].M = mBins[i]
	}

	for i := range metrics {
		metrics[i].Score = metrics[i].R + metrics[i].F + metrics[i].M
	}

	s.log.Info("rfm scoring completed",
		zap.Int("customers", len(metrics)),
		zap.Strings("degenerate_metrics", report.DegenerateMetrics),
	)

	return metrics, report
}

// aggregate folds the transaction snapshot into one metrics row per
// customer with at least one dated transaction, ordered by customer ID.
func (s *Service) aggregate(headers []catalogdomain.SalesHeader, snapshot time.Time, report *domain.Report) []domain.Metrics {
	type agg struct {
		latest    *time.Time
		frequency int
		monetary  float64
	}

	byCustomer := make(map[string]*agg)
	for _, h := range headers {
		a, ok := byCustomer[h.CustomerID]
		if !ok {
			a = &agg{}
			byCustomer[h.CustomerID] = a
		}
		a.frequency++
		a.monetary += h.TotalAmount
		if h.TransactionDate != nil && (a.latest == nil || h.TransactionDate.After(*a.latest)) {
			t := *h.TransactionDate
			a.latest = &t
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	metrics := make([]domain.Metrics, 0, len(ids))
	for _, id := range ids {
		a := byCustomer[id]
		if a.latest == nil {
			// Recency is undefined without a dated transaction.
			report.UndatedCustomers++
			continue
		}
		metrics = append(metrics, domain.Metrics{
			CustomerID: id,
			Recency:    int(snapshot.Sub(*a.latest).Hours() / 24),
			Frequency:  a.frequency,
			Monetary:   a.monetary,
		})
	}
	return metrics
}

// binValues assigns tertile bins 1..3 using quantile cut points computed
// once over the whole population. Populations with fewer than three
// distinct values cannot be cut into tertiles; every customer then gets the
// configured fallback rank and the condition is reported.
func (s *Service) binValues(metric string, values []float64, fallback int, report *domain.Report) (bins []int, wasDegenerate bool) {
	bins = make([]int, len(values))

	if degenerate(values) {
		for i := range bins {
			bins[i] = fallback
		}
		report.DegenerateMetrics = append(report.DegenerateMetrics, metric)
		s.metrics.ObserveDegenerateBin(metric)
		s.log.Warn("degenerate tertile population, applying fallback rank",
			zap.String("metric", metric),
			zap.Int("fallback_rank", fallback),
		)
		return bins, true
	}

	q1 := quantile(values, 1.0/3.0)
	q2 := quantile(values, 2.0/3.0)

	for i, v := range values {
		switch {
		case v <= q1:
			bins[i] = 1
		case v <= q2:
			bins[i] = 2
		default:
			bins[i] = 3
		}
	}
	return bins, false
}

func degenerate(values []float64) bool {
	distinct := make(map[float64]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
		if len(distinct) >= 3 {
			return false
		}
	}
	return true
}

// stableRanks maps values to ordinal ranks 1..n in ascending order, ties
// broken by input position.
func stableRanks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, len(values))
	for pos, i := range idx {
		ranks[i] = float64(pos + 1)
	}
	return ranks
}

// quantile computes the q-quantile of values with linear interpolation
// between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	h := float64(len(sorted)-1) * q
	lo := int(h)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
