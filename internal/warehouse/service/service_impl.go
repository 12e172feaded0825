package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/loyara/internal/config"
	"github.com/smallbiznis/loyara/internal/warehouse/domain"
	"github.com/smallbiznis/loyara/pkg/db"
	"github.com/smallbiznis/loyara/pkg/db/option"
	"github.com/smallbiznis/loyara/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Pipeline *config.PipelineConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	pipeline *config.PipelineConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("warehouse.service"),
		pipeline: p.Pipeline,
	}
}

// Load replaces all output tables in one transaction. Every run is a full
// recompute, so existing rows are deleted before inserting (idempotency:
// replace, not append). The run record is written last, inside the same
// transaction, so a recorded run implies a complete load.
func (s *Service) Load(ctx context.Context, out domain.Output) error {
	if out.Run == nil {
		return domain.ErrMissingRunRecord
	}

	if prev, err := repository.ProvideStore[domain.ETLRun](s.db).FindOne(ctx, &domain.ETLRun{},
		option.WithOrderBy("started_at desc"), option.WithLimit(1)); err == nil && prev != nil {
		s.log.Info("replacing previous load",
			zap.String("previous_run_id", prev.ID.String()),
			zap.Time("previous_started_at", prev.StartedAt),
		)
	}

	batchSize := s.pipeline.Get().LoadBatchSize
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceAll(ctx, tx, out.Customers, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.Products, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.Stores, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.Promotions, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.LoyaltyRules, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.RFMRules, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.Facts, batchSize); err != nil {
			return err
		}
		if err := replaceAll(ctx, tx, out.Segments, batchSize); err != nil {
			return err
		}
		return repository.ProvideStore[domain.ETLRun](tx).Create(ctx, out.Run)
	})
	if err != nil {
		return err
	}

	s.verify(ctx)
	return nil
}

func replaceAll[T any](ctx context.Context, tx *gorm.DB, rows []*T, batchSize int) error {
	store := repository.ProvideStoreWithBatchSize[T](tx, batchSize)
	if err := store.DeleteAll(ctx); err != nil {
		return err
	}
	if err := store.BatchCreate(ctx, rows); err != nil {
		if db.IsDuplicateKeyErr(err) {
			var row T
			return fmt.Errorf("duplicate key in source data for %T: %w", row, err)
		}
		return err
	}
	return nil
}

// verify logs post-load row counts per table, mirroring what operators
// check by hand after a run.
func (s *Service) verify(ctx context.Context) {
	fields := []zap.Field{
		zap.Int64("dim_customer", count[domain.DimCustomer](ctx, s.db)),
		zap.Int64("dim_product", count[domain.DimProduct](ctx, s.db)),
		zap.Int64("dim_store", count[domain.DimStore](ctx, s.db)),
		zap.Int64("dim_promotion", count[domain.DimPromotion](ctx, s.db)),
		zap.Int64("dim_loyalty_rules", count[domain.DimLoyaltyRule](ctx, s.db)),
		zap.Int64("dim_rfm_rules", count[domain.DimRFMRule](ctx, s.db)),
		zap.Int64("fact_sales", count[domain.FactSales](ctx, s.db)),
		zap.Int64("customer_loyalty_segments", count[domain.CustomerLoyaltySegment](ctx, s.db)),
	}
	s.log.Info("warehouse load verified", fields...)
}

func count[T any](ctx context.Context, db *gorm.DB) int64 {
	var query T
	n, err := repository.ProvideStore[T](db).Count(ctx, &query)
	if err != nil {
		return -1
	}
	return n
}
