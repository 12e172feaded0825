package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/cleaner/domain"
	"github.com/smallbiznis/loyara/internal/dataset"
	"github.com/smallbiznis/loyara/internal/ingest"
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
		log:     p.Log.Named("cleaner.service"),
		metrics: p.Metrics,
	}
}

// dateLayouts are tried in order when parsing raw date cells. Anything that
// matches none of them becomes a null date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

func (s *Service) Clean(ctx context.Context, raw map[string]*dataset.RawTable) (catalogdomain.Snapshot, domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return catalogdomain.Snapshot{}, domain.Report{}, err
	}

	report := &domain.Report{}

	// Schema fix-ups come first so every later step sees canonical names.
	renameColumns(raw)

	if err := requireColumns(raw); err != nil {
		return catalogdomain.Snapshot{}, domain.Report{}, err
	}

	snapshot := catalogdomain.Snapshot{}
	snapshot.Customers = s.cleanCustomers(raw[ingest.TableCustomers], report)
	snapshot.Products = s.cleanProducts(raw[ingest.TableProducts], report)
	snapshot.Stores = s.cleanStores(raw[ingest.TableStores], report)
	snapshot.Promotions = s.cleanPromotions(raw[ingest.TablePromotions], report)
	snapshot.Headers = s.cleanHeaders(raw[ingest.TableSalesHeader], report)
	snapshot.LineItems = s.cleanLineItems(raw[ingest.TableSalesLineItems], snapshot.Products, snapshot.Headers, report)
	snapshot.LoyaltyRules = s.cleanLoyaltyRules(raw[ingest.TableLoyaltyRules])
	snapshot.SegmentRules = s.cleanSegmentRules(raw[ingest.TableRFMRules])

	s.log.Info("cleaning completed",
		zap.Int("customers", len(snapshot.Customers)),
		zap.Int("products", len(snapshot.Products)),
		zap.Int("headers", len(snapshot.Headers)),
		zap.Int("line_items", len(snapshot.LineItems)),
		zap.Int("headers_dropped_negative_amount", report.HeadersDroppedNegativeAmount),
		zap.Int("line_items_dropped_quantity", report.LineItemsDroppedQuantity),
		zap.Int("line_items_dropped_no_product", report.LineItemsDroppedNoProduct),
		zap.Int("line_items_dropped_orphan", report.LineItemsDroppedOrphan),
	)

	return snapshot, *report, nil
}

// renameColumns fixes known upstream schema drift before any computation.
func renameColumns(raw map[string]*dataset.RawTable) {
	if t := raw[ingest.TableCustomers]; t != nil {
		t.Rename("fist_name", "full_name")
		t.Rename("customer_phone", "phone")
	}
	if t := raw[ingest.TableProducts]; t != nil {
		t.Rename("current_stock_level", "current_stock")
	}
	if t := raw[ingest.TableStores]; t != nil {
		t.Rename("store_city", "city")
	}
	if t := raw[ingest.TablePromotions]; t != nil {
		t.Rename("promotion_name", "rule_name")
		t.Rename("discount_percentage", "discount_percent")
	}
}

// requireColumns fails fast when a column needed by the compute core is
// absent. Other schema drift was already warned about at ingest.
func requireColumns(raw map[string]*dataset.RawTable) error {
	required := []struct {
		table   *dataset.RawTable
		columns []string
	}{
		{raw[ingest.TableCustomers], []string{"customer_id"}},
		{raw[ingest.TableProducts], []string{"product_id"}},
		{raw[ingest.TableSalesHeader], []string{"transaction_id", "customer_id", "transaction_date", "total_amount"}},
		{raw[ingest.TableSalesLineItems], []string{"line_item_id", "transaction_id", "product_id", "quantity"}},
		{raw[ingest.TableLoyaltyRules], []string{"points_per_unit_spend", "min_spend_threshold", "bonus_points", "is_active"}},
		{raw[ingest.TableRFMRules], []string{"segment_name", "rfm_score_min", "rfm_score_max"}},
	}

	for _, req := range required {
		for _, col := range req.columns {
			if err := req.table.Require(col); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) cleanCustomers(t *dataset.RawTable, report *domain.Report) []catalogdomain.Customer {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.Customer, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, catalogdomain.Customer{
			ID:               row["customer_id"],
			FullName:         row["full_name"],
			Email:            row["email"],
			Phone:            row["phone"],
			LoyaltyStatus:    row["loyalty_status"],
			TotalPoints:      parseInt(row["total_loyalty_points"]),
			LastPurchaseDate: s.parseDate(t.Name, row["last_purchase_date"], report),
			CustomerSince:    parseDateLenient(row["customer_since"]),
			SegmentID:        row["segment_id"],
		})
	}
	return out
}

func (s *Service) cleanProducts(t *dataset.RawTable, report *domain.Report) []catalogdomain.Product {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.Product, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := catalogdomain.Product{
			ID:       row["product_id"],
			Name:     row["product_name"],
			Category: row["product_category"],
		}

		// Negative prices are data errors: keep the row, discard the value.
		if price, ok := parseFloat(row["unit_price"]); ok {
			if price < 0 {
				report.UnitPricesNulled++
				s.metrics.ObserveRowsDropped(t.Name, "unit_price_nulled", 1)
			} else {
				p.UnitPrice = &price
			}
		}

		// Negative stock clamps to zero.
		stock := parseInt(row["current_stock"])
		if stock < 0 {
			report.StocksClamped++
			stock = 0
		}
		p.CurrentStock = stock

		out = append(out, p)
	}
	return out
}

func (s *Service) cleanStores(t *dataset.RawTable, _ *domain.Report) []catalogdomain.Store {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.Store, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, catalogdomain.Store{
			ID:          row["store_id"],
			Name:        row["store_name"],
			City:        row["city"],
			Region:      row["store_region"],
			OpeningDate: parseDateLenient(row["opening_date"]),
		})
	}
	return out
}

func (s *Service) cleanPromotions(t *dataset.RawTable, report *domain.Report) []catalogdomain.Promotion {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.Promotion, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := catalogdomain.Promotion{
			ID:                 row["promotion_id"],
			RuleName:           row["rule_name"],
			ApplicableCategory: row["applicable_category"],
			StartDate:          s.parseDate(t.Name, row["start_date"], report),
			EndDate:            s.parseDate(t.Name, row["end_date"], report),
		}
		if discount, ok := parseFloat(row["discount_percent"]); ok {
			p.DiscountPercent = &discount
		}
		out = append(out, p)
	}
	return out
}

func (s *Service) cleanHeaders(t *dataset.RawTable, report *domain.Report) []catalogdomain.SalesHeader {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.SalesHeader, 0, len(t.Rows))
	for _, row := range t.Rows {
		amount, ok := parseFloat(row["total_amount"])
		if !ok || amount < 0 {
			report.HeadersDroppedNegativeAmount++
			s.metrics.ObserveRowsDropped(t.Name, "negative_amount", 1)
			continue
		}
		out = append(out, catalogdomain.SalesHeader{
			TransactionID:   row["transaction_id"],
			CustomerID:      row["customer_id"],
			StoreID:         row["store_id"],
			TransactionDate: s.parseDate(t.Name, row["transaction_date"], report),
			TotalAmount:     amount,
			CustomerPhone:   row["customer_phone"],
		})
	}
	return out
}

// cleanLineItems applies the quantity filter, then the product referential
// filter, then the orphan-transaction filter. The orphan filter must run
// against the already-filtered headers: dropping a negative-amount header
// orphans its line items too.
func (s *Service) cleanLineItems(t *dataset.RawTable, products []catalogdomain.Product, headers []catalogdomain.SalesHeader, report *domain.Report) []catalogdomain.SalesLineItem {
	if t == nil {
		return nil
	}

	productIDs := make(map[string]bool, len(products))
	for _, p := range products {
		productIDs[p.ID] = true
	}
	transactionIDs := make(map[string]bool, len(headers))
	for _, h := range headers {
		transactionIDs[h.TransactionID] = true
	}

	out := make([]catalogdomain.SalesLineItem, 0, len(t.Rows))
	for _, row := range t.Rows {
		quantity := parseInt(row["quantity"])
		if quantity <= 0 {
			report.LineItemsDroppedQuantity++
			s.metrics.ObserveRowsDropped(t.Name, "non_positive_quantity", 1)
			continue
		}
		if !productIDs[row["product_id"]] {
			report.LineItemsDroppedNoProduct++
			s.metrics.ObserveRowsDropped(t.Name, "unknown_product", 1)
			continue
		}
		if !transactionIDs[row["transaction_id"]] {
			report.LineItemsDroppedOrphan++
			s.metrics.ObserveRowsDropped(t.Name, "orphan_transaction", 1)
			continue
		}

		item := catalogdomain.SalesLineItem{
			LineItemID:    row["line_item_id"],
			TransactionID: row["transaction_id"],
			ProductID:     row["product_id"],
			PromotionID:   row["promotion_id"],
			Quantity:      quantity,
		}
		if amount, ok := parseFloat(row["line_item_amount"]); ok {
			item.LineItemAmount = &amount
		}
		out = append(out, item)
	}
	return out
}

func (s *Service) cleanLoyaltyRules(t *dataset.RawTable) []catalogdomain.LoyaltyRule {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.LoyaltyRule, 0, len(t.Rows))
	for _, row := range t.Rows {
		threshold, _ := parseFloat(row["min_spend_threshold"])
		out = append(out, catalogdomain.LoyaltyRule{
			RuleID:            row["rule_id"],
			RuleName:          row["rule_name"],
			PointsPerUnit:     parseInt(row["points_per_unit_spend"]),
			MinSpendThreshold: threshold,
			BonusPoints:       parseInt(row["bonus_points"]),
			IsActive:          parseBool(row["is_active"]),
		})
	}
	return out
}

func (s *Service) cleanSegmentRules(t *dataset.RawTable) []catalogdomain.SegmentRule {
	if t == nil {
		return nil
	}
	out := make([]catalogdomain.SegmentRule, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, catalogdomain.SegmentRule{
			SegmentName: row["segment_name"],
			ScoreMin:    int(parseInt(row["rfm_score_min"])),
			ScoreMax:    int(parseInt(row["rfm_score_max"])),
		})
	}
	return out
}

// parseDate is the permissive date parse for fields whose nulling is
// counted in the report.
func (s *Service) parseDate(table, value string, report *domain.Report) *time.Time {
	parsed := parseDateLenient(value)
	if parsed == nil && strings.TrimSpace(value) != "" {
		report.DatesNulled++
		s.metrics.ObserveRowsDropped(table, "date_nulled", 1)
	}
	return parsed
}

func parseDateLenient(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func parseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseInt tolerates decimal exports of integer columns ("3.0").
func parseInt(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
