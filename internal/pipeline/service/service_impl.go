package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	cleanerdomain "github.com/smallbiznis/loyara/internal/cleaner/domain"
	"github.com/smallbiznis/loyara/internal/clock"
	"github.com/smallbiznis/loyara/internal/config"
	factsdomain "github.com/smallbiznis/loyara/internal/facts/domain"
	"github.com/smallbiznis/loyara/internal/ingest"
	loyaltydomain "github.com/smallbiznis/loyara/internal/loyalty/domain"
	"github.com/smallbiznis/loyara/internal/pipeline/domain"
	rfmdomain "github.com/smallbiznis/loyara/internal/rfm/domain"
	segmentdomain "github.com/smallbiznis/loyara/internal/segment/domain"
	warehousedomain "github.com/smallbiznis/loyara/internal/warehouse/domain"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Metrics  *telemetry.Metrics
	Clock    clock.Clock
	GenID    *snowflake.Node
	Pipeline *config.PipelineConfigHolder

	Ingest    ingest.Service
	Cleaner   cleanerdomain.Service
	Facts     factsdomain.Service
	Loyalty   loyaltydomain.Service
	RFM       rfmdomain.Service
	Segment   segmentdomain.Service
	Warehouse warehousedomain.Service
}

type Service struct {
	log      *zap.Logger
	metrics  *telemetry.Metrics
	clock    clock.Clock
	genID    *snowflake.Node
	pipeline *config.PipelineConfigHolder

	ingest    ingest.Service
	cleaner   cleanerdomain.Service
	facts     factsdomain.Service
	loyalty   loyaltydomain.Service
	rfm       rfmdomain.Service
	segment   segmentdomain.Service
	warehouse warehousedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("pipeline.service"),
		metrics:  p.Metrics,
		clock:    p.Clock,
		genID:    p.GenID,
		pipeline: p.Pipeline,

		ingest:    p.Ingest,
		cleaner:   p.Cleaner,
		facts:     p.Facts,
		loyalty:   p.Loyalty,
		rfm:       p.RFM,
		segment:   p.Segment,
		warehouse: p.Warehouse,
	}
}

func (s *Service) Run(ctx context.Context) (domain.RunResult, error) {
	startedAt := s.clock.Now()
	runID := s.genID.Generate()
	log := s.log.With(zap.String("run_id", runID.String()))
	log.Info("pipeline run started")

	result, err := s.run(ctx, log, runID, startedAt)
	elapsed := s.clock.Now().Sub(startedAt).Seconds()
	if err != nil {
		s.metrics.ObserveRun("failed", elapsed)
		log.Error("pipeline run failed", zap.Error(err))
		return domain.RunResult{}, err
	}

	s.metrics.ObserveRun("completed", elapsed)
	log.Info("pipeline run completed",
		zap.Int("facts", result.Facts),
		zap.Int("segments", result.Segments),
		zap.Int("rows_dropped", result.RowsDropped),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, log *zap.Logger, runID snowflake.ID, startedAt time.Time) (domain.RunResult, error) {
	raw, err := s.ingest.Extract(ctx)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("extract: %w", err)
	}

	snapshot, cleanReport, err := s.cleaner.Clean(ctx, raw)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("clean: %w", err)
	}

	// Rule configuration problems fail the run before any computation.
	if err := s.loyalty.ValidateRules(snapshot.LoyaltyRules); err != nil {
		return domain.RunResult{}, fmt.Errorf("validate loyalty rules: %w", err)
	}

	factRows := s.facts.Assemble(snapshot)

	accruals := s.loyalty.Accrue(snapshot.Headers, snapshot.LoyaltyRules)
	totals := s.loyalty.TotalsByCustomer(snapshot.Customers, accruals)

	snapshotDate, scores, rfmReport := s.scoreCustomers(log, snapshot)

	out := s.buildOutput(snapshot, factRows, totals, scores)
	completedAt := s.clock.Now()
	rowsDropped := cleanReport.HeadersDroppedNegativeAmount +
		cleanReport.LineItemsDroppedQuantity +
		cleanReport.LineItemsDroppedNoProduct +
		cleanReport.LineItemsDroppedOrphan
	out.Run = &warehousedomain.ETLRun{
		ID:            runID,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		SnapshotDate:  snapshotDate,
		CustomerRows:  len(out.Customers),
		ProductRows:   len(out.Products),
		StoreRows:     len(out.Stores),
		PromotionRows: len(out.Promotions),
		FactRows:      len(out.Facts),
		SegmentRows:   len(out.Segments),
		DroppedRows:   rowsDropped,
	}

	if err := s.warehouse.Load(ctx, out); err != nil {
		return domain.RunResult{}, fmt.Errorf("load warehouse: %w", err)
	}

	return domain.RunResult{
		RunID:             runID,
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		SnapshotDate:      snapshotDate,
		Customers:         len(out.Customers),
		Facts:             len(out.Facts),
		Segments:          len(out.Segments),
		RowsDropped:       rowsDropped,
		DegenerateMetrics: rfmReport.DegenerateMetrics,
	}, nil
}

// scoreCustomers derives the snapshot date (config override first, data
// second) and runs RFM scoring. A snapshot with no dated transactions
// yields no scores; the merged output then carries null RFM fields.
func (s *Service) scoreCustomers(log *zap.Logger, snapshot catalogdomain.Snapshot) (*time.Time, []rfmdomain.Metrics, rfmdomain.Report) {
	var snapshotDate time.Time
	if override := s.pipeline.Get().SnapshotDate; override != "" {
		parsed, err := time.Parse("2006-01-02", override)
		if err != nil {
			log.Warn("invalid snapshot date override, deriving from data",
				zap.String("override", override),
			)
		} else {
			snapshotDate = parsed.UTC()
		}
	}

	if snapshotDate.IsZero() {
		derived, ok := s.rfm.SnapshotDate(snapshot.Headers)
		if !ok {
			log.Warn("no dated transactions in snapshot, skipping rfm scoring")
			return nil, nil, rfmdomain.Report{}
		}
		snapshotDate = derived
	}

	scores, report := s.rfm.Score(snapshot.Headers, snapshotDate)
	return &snapshotDate, scores, report
}

func (s *Service) buildOutput(
	snapshot catalogdomain.Snapshot,
	factRows []factsdomain.FactSalesRow,
	totals map[string]int64,
	scores []rfmdomain.Metrics,
) warehousedomain.Output {
	out := warehousedomain.Output{}

	scoreByCustomer := make(map[string]rfmdomain.Metrics, len(scores))
	for _, m := range scores {
		scoreByCustomer[m.CustomerID] = m
	}

	for _, c := range snapshot.Customers {
		earned := totals[c.ID]
		out.Customers = append(out.Customers, &warehousedomain.DimCustomer{
			CustomerID:         c.ID,
			FullName:           c.FullName,
			Email:              c.Email,
			LoyaltyStatus:      c.LoyaltyStatus,
			TotalLoyaltyPoints: earned,
			LastPurchaseDate:   c.LastPurchaseDate,
			Phone:              c.Phone,
			CustomerSince:      c.CustomerSince,
			SegmentID:          c.SegmentID,
			EarnedPoints:       earned,
		})

		seg := &warehousedomain.CustomerLoyaltySegment{
			CustomerID:         c.ID,
			FullName:           c.FullName,
			Email:              c.Email,
			LoyaltyStatus:      c.LoyaltyStatus,
			TotalLoyaltyPoints: earned,
			LastPurchaseDate:   c.LastPurchaseDate,
			Phone:              c.Phone,
			CustomerSince:      c.CustomerSince,
			SegmentID:          c.SegmentID,
			EarnedPoints:       earned,
		}
		if m, ok := scoreByCustomer[c.ID]; ok {
			label := s.segment.Classify(m.Score, snapshot.SegmentRules)
			recency, frequency := m.Recency, m.Frequency
			monetary := m.Monetary
			r, f, mm, score := m.R, m.F, m.M, m.Score
			seg.Recency = &recency
			seg.Frequency = &frequency
			seg.Monetary = &monetary
			seg.R = &r
			seg.F = &f
			seg.M = &mm
			seg.RFMScore = &score
			seg.Segment = &label
		}
		out.Segments = append(out.Segments, seg)
	}

	for _, p := range snapshot.Products {
		out.Products = append(out.Products, &warehousedomain.DimProduct{
			ProductID:       p.ID,
			ProductName:     p.Name,
			ProductCategory: p.Category,
			UnitPrice:       p.UnitPrice,
			CurrentStock:    p.CurrentStock,
		})
	}

	for _, st := range snapshot.Stores {
		out.Stores = append(out.Stores, &warehousedomain.DimStore{
			StoreID:     st.ID,
			StoreName:   st.Name,
			City:        st.City,
			StoreRegion: st.Region,
			OpeningDate: st.OpeningDate,
		})
	}

	for _, p := range snapshot.Promotions {
		out.Promotions = append(out.Promotions, &warehousedomain.DimPromotion{
			PromotionID:        p.ID,
			RuleName:           p.RuleName,
			DiscountPercent:    p.DiscountPercent,
			ApplicableCategory: p.ApplicableCategory,
			StartDate:          p.StartDate,
			EndDate:            p.EndDate,
		})
	}

	for _, r := range snapshot.LoyaltyRules {
		out.LoyaltyRules = append(out.LoyaltyRules, &warehousedomain.DimLoyaltyRule{
			RuleID:            r.RuleID,
			RuleName:          r.RuleName,
			PointsPerUnit:     r.PointsPerUnit,
			MinSpendThreshold: r.MinSpendThreshold,
			BonusPoints:       r.BonusPoints,
			IsActive:          r.IsActive,
		})
	}

	for i, r := range snapshot.SegmentRules {
		out.RFMRules = append(out.RFMRules, &warehousedomain.DimRFMRule{
			SegmentName: r.SegmentName,
			ScoreMin:    r.ScoreMin,
			ScoreMax:    r.ScoreMax,
			Position:    i,
		})
	}

	for _, row := range factRows {
		out.Facts = append(out.Facts, &warehousedomain.FactSales{
			LineItemID:         row.LineItemID,
			TransactionID:      row.TransactionID,
			CustomerID:         row.CustomerID,
			ProductID:          row.ProductID,
			PromotionID:        row.PromotionID,
			StoreID:            row.StoreID,
			Quantity:           row.Quantity,
			TotalAmount:        row.TotalAmount,
			LineItemAmount:     row.LineItemAmount,
			TransactionDate:    row.TransactionDate,
			ProductName:        row.ProductName,
			ProductCategory:    row.ProductCategory,
			UnitPrice:          row.UnitPrice,
			CurrentStock:       row.CurrentStock,
			RuleName:           row.PromotionRuleName,
			DiscountPercent:    row.DiscountPercent,
			ApplicableCategory: row.ApplicableCategory,
			StartDate:          row.PromotionStartDate,
			EndDate:            row.PromotionEndDate,
			CustomerPhone:      row.CustomerPhone,
		})
	}

	return out
}
