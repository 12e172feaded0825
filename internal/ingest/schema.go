package ingest

// Source table names.
const (
	TableCustomers      = "customers"
	TableProducts       = "products"
	TableStores         = "stores"
	TablePromotions     = "promotions"
	TableSalesHeader    = "sales_header"
	TableSalesLineItems = "sales_line_items"
	TableLoyaltyRules   = "loyalty_rules"
	TableRFMRules       = "rfm_rules"
)

// TableSchemas lists the expected raw column set per source file, including
// upstream misspellings that the cleaner fixes up later. Deviations are
// warned about, never fatal: the run proceeds with whatever columns exist.
var TableSchemas = map[string][]string{
	TableCustomers: {
		"customer_id", "fist_name", "email", "loyalty_status",
		"total_loyalty_points", "last_purchase_date",
		"segment_id", "customer_phone", "customer_since",
	},
	TableProducts: {
		"product_id", "product_name", "product_category",
		"unit_price", "current_stock_level",
	},
	TableStores: {
		"store_id", "store_name", "store_city", "store_region", "opening_date",
	},
	TablePromotions: {
		"promotion_id", "promotion_name", "discount_percentage",
		"applicable_category", "start_date", "end_date",
	},
	TableSalesHeader: {
		"transaction_id", "customer_id", "store_id",
		"transaction_date", "total_amount", "customer_phone",
	},
	TableSalesLineItems: {
		"line_item_id", "transaction_id", "product_id",
		"promotion_id", "quantity", "line_item_amount",
	},
	TableLoyaltyRules: {
		"rule_id", "rule_name", "points_per_unit_spend",
		"min_spend_threshold", "bonus_points", "is_active",
	},
	TableRFMRules: {
		"segment_name", "rfm_score_min", "rfm_score_max",
	},
}

// tableOrder keeps extraction deterministic across runs.
var tableOrder = []string{
	TableCustomers,
	TableProducts,
	TableStores,
	TablePromotions,
	TableSalesHeader,
	TableSalesLineItems,
	TableLoyaltyRules,
	TableRFMRules,
}
