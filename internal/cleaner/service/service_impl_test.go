package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/loyara/internal/dataset"
	"github.com/smallbiznis/loyara/internal/ingest"
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

func rawTable(name string, columns []string, rows ...dataset.Row) *dataset.RawTable {
	return &dataset.RawTable{Name: name, Columns: columns, Rows: rows}
}

func baseTables() map[string]*dataset.RawTable {
	return map[string]*dataset.RawTable{
		ingest.TableCustomers: rawTable(ingest.TableCustomers,
			[]string{"customer_id", "fist_name", "email", "loyalty_status", "total_loyalty_points", "last_purchase_date", "segment_id", "customer_phone", "customer_since"},
			dataset.Row{"customer_id": "C1", "fist_name": "Ada Lovelace", "customer_phone": "555-0001", "last_purchase_date": "2024-03-01", "total_loyalty_points": "120"},
		),
		ingest.TableProducts: rawTable(ingest.TableProducts,
			[]string{"product_id", "product_name", "product_category", "unit_price", "current_stock_level"},
			dataset.Row{"product_id": "P1", "product_name": "Mug", "unit_price": "9.50", "current_stock_level": "10"},
		),
		ingest.TableSalesHeader: rawTable(ingest.TableSalesHeader,
			[]string{"transaction_id", "customer_id", "store_id", "transaction_date", "total_amount", "customer_phone"},
			dataset.Row{"transaction_id": "T1", "customer_id": "C1", "transaction_date": "2024-03-01", "total_amount": "100"},
		),
		ingest.TableSalesLineItems: rawTable(ingest.TableSalesLineItems,
			[]string{"line_item_id", "transaction_id", "product_id", "promotion_id", "quantity", "line_item_amount"},
			dataset.Row{"line_item_id": "L1", "transaction_id": "T1", "product_id": "P1", "quantity": "2", "line_item_amount": "19.00"},
		),
		ingest.TableLoyaltyRules: rawTable(ingest.TableLoyaltyRules,
			[]string{"rule_id", "rule_name", "points_per_unit_spend", "min_spend_threshold", "bonus_points", "is_active"},
			dataset.Row{"rule_id": "R1", "rule_name": "Base", "points_per_unit_spend": "5", "min_spend_threshold": "100", "bonus_points": "10", "is_active": "TRUE"},
		),
		ingest.TableRFMRules: rawTable(ingest.TableRFMRules,
			[]string{"segment_name", "rfm_score_min", "rfm_score_max"},
			dataset.Row{"segment_name": "Gold", "rfm_score_min": "6", "rfm_score_max": "9"},
		),
	}
}

func TestClean_ColumnRenames(t *testing.T) {
	svc := newTestService()

	snapshot, _, err := svc.Clean(context.Background(), baseTables())
	require.NoError(t, err)

	require.Len(t, snapshot.Customers, 1)
	assert.Equal(t, "Ada Lovelace", snapshot.Customers[0].FullName)
	assert.Equal(t, "555-0001", snapshot.Customers[0].Phone)
	require.Len(t, snapshot.Products, 1)
	assert.Equal(t, int64(10), snapshot.Products[0].CurrentStock)
}

func TestClean_NegativePriceNulledAndStockClamped(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	tables[ingest.TableProducts].Rows = []dataset.Row{
		{"product_id": "P1", "product_name": "Mug", "unit_price": "-5", "current_stock_level": "-3"},
	}

	snapshot, report, err := svc.Clean(context.Background(), tables)
	require.NoError(t, err)

	require.Len(t, snapshot.Products, 1)
	assert.Nil(t, snapshot.Products[0].UnitPrice)
	assert.Equal(t, int64(0), snapshot.Products[0].CurrentStock)
	assert.Equal(t, 1, report.UnitPricesNulled)
	assert.Equal(t, 1, report.StocksClamped)
}

func TestClean_UnparsableDateBecomesNull(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	tables[ingest.TableCustomers].Rows[0]["last_purchase_date"] = "not-a-date"

	snapshot, report, err := svc.Clean(context.Background(), tables)
	require.NoError(t, err)

	assert.Nil(t, snapshot.Customers[0].LastPurchaseDate)
	assert.Equal(t, 1, report.DatesNulled)
}

func TestClean_NegativeAmountHeaderDroppedWithItsLineItems(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	tables[ingest.TableSalesHeader].Rows = append(tables[ingest.TableSalesHeader].Rows,
		dataset.Row{"transaction_id": "T2", "customer_id": "C1", "transaction_date": "2024-03-02", "total_amount": "-10"},
	)
	tables[ingest.TableSalesLineItems].Rows = append(tables[ingest.TableSalesLineItems].Rows,
		dataset.Row{"line_item_id": "L2", "transaction_id": "T2", "product_id": "P1", "quantity": "1"},
	)

	snapshot, report, err := svc.Clean(context.Background(), tables)
	require.NoError(t, err)

	require.Len(t, snapshot.Headers, 1)
	assert.Equal(t, "T1", snapshot.Headers[0].TransactionID)
	// L2 was valid until its header was dropped; the orphan filter runs
	// after the amount filter and catches it.
	require.Len(t, snapshot.LineItems, 1)
	assert.Equal(t, "L1", snapshot.LineItems[0].LineItemID)
	assert.Equal(t, 1, report.HeadersDroppedNegativeAmount)
	assert.Equal(t, 1, report.LineItemsDroppedOrphan)
}

func TestClean_LineItemFilters(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	tables[ingest.TableSalesLineItems].Rows = []dataset.Row{
		{"line_item_id": "L1", "transaction_id": "T1", "product_id": "P1", "quantity": "2"},
		{"line_item_id": "L2", "transaction_id": "T1", "product_id": "P1", "quantity": "0"},
		{"line_item_id": "L3", "transaction_id": "T1", "product_id": "P999", "quantity": "1"},
		{"line_item_id": "L4", "transaction_id": "T999", "product_id": "P1", "quantity": "1"},
	}

	snapshot, report, err := svc.Clean(context.Background(), tables)
	require.NoError(t, err)

	require.Len(t, snapshot.LineItems, 1)
	assert.Equal(t, "L1", snapshot.LineItems[0].LineItemID)
	assert.Equal(t, 1, report.LineItemsDroppedQuantity)
	assert.Equal(t, 1, report.LineItemsDroppedNoProduct)
	assert.Equal(t, 1, report.LineItemsDroppedOrphan)
}

func TestClean_MissingRequiredColumnFailsFast(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	headers := tables[ingest.TableSalesHeader]
	headers.Columns = []string{"transaction_id", "customer_id", "store_id", "transaction_date", "customer_phone"}
	for _, row := range headers.Rows {
		delete(row, "total_amount")
	}

	_, _, err := svc.Clean(context.Background(), tables)
	require.Error(t, err)

	var missing *dataset.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "sales_header", missing.Table)
	assert.Equal(t, "total_amount", missing.Field)
}

func TestClean_InactiveRuleParsing(t *testing.T) {
	svc := newTestService()
	tables := baseTables()
	tables[ingest.TableLoyaltyRules].Rows = []dataset.Row{
		{"rule_id": "R1", "points_per_unit_spend": "5", "min_spend_threshold": "100", "bonus_points": "10", "is_active": "TRUE"},
		{"rule_id": "R2", "points_per_unit_spend": "1", "min_spend_threshold": "50", "bonus_points": "0", "is_active": "FALSE"},
	}

	snapshot, _, err := svc.Clean(context.Background(), tables)
	require.NoError(t, err)

	require.Len(t, snapshot.LoyaltyRules, 2)
	assert.True(t, snapshot.LoyaltyRules[0].IsActive)
	assert.False(t, snapshot.LoyaltyRules[1].IsActive)
}
