package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	cleanerservice "github.com/smallbiznis/loyara/internal/cleaner/service"
	"github.com/smallbiznis/loyara/internal/clock"
	"github.com/smallbiznis/loyara/internal/config"
	factsservice "github.com/smallbiznis/loyara/internal/facts/service"
	"github.com/smallbiznis/loyara/internal/ingest"
	loyaltydomain "github.com/smallbiznis/loyara/internal/loyalty/domain"
	loyaltyservice "github.com/smallbiznis/loyara/internal/loyalty/service"
	"github.com/smallbiznis/loyara/internal/migration"
	rfmservice "github.com/smallbiznis/loyara/internal/rfm/service"
	segmentservice "github.com/smallbiznis/loyara/internal/segment/service"
	warehousedomain "github.com/smallbiznis/loyara/internal/warehouse/domain"
	warehouseservice "github.com/smallbiznis/loyara/internal/warehouse/service"
	"github.com/smallbiznis/loyara/pkg/db/option"
	"github.com/smallbiznis/loyara/pkg/repository"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeSnapshotFixtures(t *testing.T, dir string, loyaltyRules string) {
	writeFixture(t, dir, "customers.csv",
		"customer_id,fist_name,email,loyalty_status,total_loyalty_points,last_purchase_date,segment_id,customer_phone,customer_since\n"+
			"C1,Ada Lovelace,ada@example.com,gold,999,2024-03-10,SEG1,555-0001,2020-01-15\n"+
			"C2,Grace Hopper,grace@example.com,silver,0,2024-03-09,SEG2,555-0002,2021-06-01\n"+
			"C3,Alan Turing,alan@example.com,silver,0,2024-03-08,SEG2,555-0003,2021-07-01\n"+
			"C4,Edsger Dijkstra,edsger@example.com,bronze,0,2024-03-07,SEG3,555-0004,2022-02-10\n"+
			"C5,Barbara Liskov,barbara@example.com,bronze,0,2024-03-06,SEG3,555-0005,2022-03-01\n"+
			"C6,Donald Knuth,donald@example.com,bronze,0,2024-03-05,SEG3,555-0006,2022-04-01\n"+
			"C7,Tony Hoare,tony@example.com,bronze,0,,SEG3,555-0007,2023-01-01\n")
	writeFixture(t, dir, "products.csv",
		"product_id,product_name,product_category,unit_price,current_stock_level\n"+
			"P1,Mug,Kitchen,9.50,10\n"+
			"P2,Lamp,Home,-24.00,-3\n")
	writeFixture(t, dir, "stores.csv",
		"store_id,store_name,store_city,store_region,opening_date\n"+
			"S1,Downtown,Springfield,West,2019-05-01\n")
	writeFixture(t, dir, "promotions.csv",
		"promotion_id,promotion_name,discount_percentage,applicable_category,start_date,end_date\n"+
			"PR1,Spring Sale,15,Kitchen,2024-03-01,2024-03-31\n")
	writeFixture(t, dir, "sales_header.csv",
		"transaction_id,customer_id,store_id,transaction_date,total_amount,customer_phone\n"+
			"T1,C1,S1,2024-03-10,600,555-0001\n"+
			"T2,C2,S1,2024-03-09,500,555-0002\n"+
			"T3,C3,S1,2024-03-08,400,555-0003\n"+
			"T4,C4,S1,2024-03-07,300,555-0004\n"+
			"T5,C5,S1,2024-03-06,200,555-0005\n"+
			"T6,C6,S1,2024-03-05,100,555-0006\n"+
			"T7,C1,S1,2024-03-04,-10,555-0001\n")
	writeFixture(t, dir, "sales_line_items.csv",
		"line_item_id,transaction_id,product_id,promotion_id,quantity,line_item_amount\n"+
			"L1,T1,P1,PR1,2,19.00\n"+
			"L2,T1,P2,,1,24.00\n"+
			"L3,T7,P1,,1,9.50\n"+
			"L4,T999,P1,,1,9.50\n"+
			"L5,T2,P999,,1,5.00\n"+
			"L6,T2,P1,,0,0.00\n")
	writeFixture(t, dir, "loyalty_rules.csv", loyaltyRules)
	writeFixture(t, dir, "rfm_rules.csv",
		"segment_name,rfm_score_min,rfm_score_max\n"+
			"Gold,6,9\n"+
			"Platinum,7,8\n"+
			"Bronze,3,5\n")
}

const activeRules = "rule_id,rule_name,points_per_unit_spend,min_spend_threshold,bonus_points,is_active\n" +
	"R1,Base,5,100,10,TRUE\n" +
	"R2,Saver,1,50,0,TRUE\n" +
	"R3,Legacy,100,1,1000,FALSE\n"

func newPipeline(t *testing.T, dir, dbName string) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	log := zap.NewNop()
	metrics := telemetry.NewTestMetrics()
	holder := config.NewStaticPipelineConfigHolder(config.DefaultPipelineConfig())
	cfg := config.Config{RawDataDir: dir}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Log:      log,
		Metrics:  metrics,
		Clock:    clock.NewFakeClock(time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)),
		GenID:    node,
		Pipeline: holder,

		Ingest:    ingest.New(ingest.Params{Config: cfg, Log: log, Metrics: metrics}),
		Cleaner:   cleanerservice.New(cleanerservice.Params{Log: log, Metrics: metrics}),
		Facts:     factsservice.New(factsservice.Params{Log: log}),
		Loyalty:   loyaltyservice.New(loyaltyservice.Params{Log: log, Metrics: metrics}),
		RFM:       rfmservice.New(rfmservice.Params{Log: log, Metrics: metrics, Pipeline: holder}),
		Segment:   segmentservice.New(segmentservice.Params{Log: log}),
		Warehouse: warehouseservice.New(warehouseservice.Params{DB: db, Log: log, Pipeline: holder}),
	}).(*Service)

	return svc, db
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFixtures(t, dir, activeRules)
	svc, db := newPipeline(t, dir, "pipeline_e2e_test")
	ctx := context.Background()

	result, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Customers)
	// L3 (dropped header), L4 (orphan), L5 (unknown product), L6 (zero
	// quantity) are all excluded.
	assert.Equal(t, 2, result.Facts)
	require.NotNil(t, result.SnapshotDate)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), *result.SnapshotDate)

	// C1 spent 600: rule R1 earns floor(600/100)*5+10 = 40, rule R2 earns
	// floor(600/50)*1 = 12, inactive R3 earns nothing.
	c1, err := repository.ProvideStore[warehousedomain.DimCustomer](db).FindOne(ctx, &warehousedomain.DimCustomer{CustomerID: "C1"})
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, int64(52), c1.EarnedPoints)
	assert.Equal(t, int64(52), c1.TotalLoyaltyPoints)

	// C1 scores R=3 F=1 M=3 -> 7, matched by Gold before Platinum.
	seg, err := repository.ProvideStore[warehousedomain.CustomerLoyaltySegment](db).FindOne(ctx, &warehousedomain.CustomerLoyaltySegment{CustomerID: "C1"})
	require.NoError(t, err)
	require.NotNil(t, seg)
	require.NotNil(t, seg.RFMScore)
	assert.Equal(t, 7, *seg.RFMScore)
	require.NotNil(t, seg.Segment)
	assert.Equal(t, "Gold", *seg.Segment)

	// C7 has no transactions: zero points, null RFM fields.
	c7, err := repository.ProvideStore[warehousedomain.CustomerLoyaltySegment](db).FindOne(ctx, &warehousedomain.CustomerLoyaltySegment{CustomerID: "C7"})
	require.NoError(t, err)
	require.NotNil(t, c7)
	assert.Equal(t, int64(0), c7.EarnedPoints)
	assert.Nil(t, c7.RFMScore)
	assert.Nil(t, c7.Segment)

	// Negative price nulled, negative stock clamped.
	p2, err := repository.ProvideStore[warehousedomain.DimProduct](db).FindOne(ctx, &warehousedomain.DimProduct{ProductID: "P2"})
	require.NoError(t, err)
	require.NotNil(t, p2)
	assert.Nil(t, p2.UnitPrice)
	assert.Equal(t, int64(0), p2.CurrentStock)
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeSnapshotFixtures(t, dir, activeRules)
	svc, db := newPipeline(t, dir, "pipeline_idempotent_test")
	ctx := context.Background()

	segments := repository.ProvideStore[warehousedomain.CustomerLoyaltySegment](db)
	facts := repository.ProvideStore[warehousedomain.FactSales](db)

	first, err := svc.Run(ctx)
	require.NoError(t, err)
	firstSegments, err := segments.Find(ctx, &warehousedomain.CustomerLoyaltySegment{}, option.WithOrderBy("customer_id asc"))
	require.NoError(t, err)
	firstFacts, err := facts.Find(ctx, &warehousedomain.FactSales{}, option.WithOrderBy("line_item_id asc"))
	require.NoError(t, err)

	second, err := svc.Run(ctx)
	require.NoError(t, err)
	secondSegments, err := segments.Find(ctx, &warehousedomain.CustomerLoyaltySegment{}, option.WithOrderBy("customer_id asc"))
	require.NoError(t, err)
	secondFacts, err := facts.Find(ctx, &warehousedomain.FactSales{}, option.WithOrderBy("line_item_id asc"))
	require.NoError(t, err)

	assert.Equal(t, first.Facts, second.Facts)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, firstSegments, secondSegments)
	assert.Equal(t, firstFacts, secondFacts)
	assert.Len(t, firstSegments, first.Segments)
}

func TestRun_InvalidRuleConfigEmitsNothing(t *testing.T) {
	dir := t.TempDir()
	badRules := "rule_id,rule_name,points_per_unit_spend,min_spend_threshold,bonus_points,is_active\n" +
		"R1,Broken,5,0,10,TRUE\n"
	writeSnapshotFixtures(t, dir, badRules)
	svc, db := newPipeline(t, dir, "pipeline_badrule_test")
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, loyaltydomain.ErrInvalidRuleThreshold)

	var factQuery warehousedomain.FactSales
	count, err := repository.ProvideStore[warehousedomain.FactSales](db).Count(ctx, &factQuery)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	var runQuery warehousedomain.ETLRun
	count, err = repository.ProvideStore[warehousedomain.ETLRun](db).Count(ctx, &runQuery)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
