package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loyara/internal/cleaner"
	"github.com/smallbiznis/loyara/internal/clock"
	"github.com/smallbiznis/loyara/internal/config"
	"github.com/smallbiznis/loyara/internal/facts"
	"github.com/smallbiznis/loyara/internal/ingest"
	"github.com/smallbiznis/loyara/internal/logger"
	"github.com/smallbiznis/loyara/internal/loyalty"
	"github.com/smallbiznis/loyara/internal/migration"
	"github.com/smallbiznis/loyara/internal/pipeline"
	pipelinedomain "github.com/smallbiznis/loyara/internal/pipeline/domain"
	"github.com/smallbiznis/loyara/internal/rfm"
	"github.com/smallbiznis/loyara/internal/segment"
	"github.com/smallbiznis/loyara/internal/warehouse"
	"github.com/smallbiznis/loyara/pkg/db"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(config.NewPipelineConfigHolder),
		db.Module,
		migration.Module,
		clock.Module,

		// Pipeline stages
		ingest.Module,
		cleaner.Module,
		facts.Module,
		loyalty.Module,
		rfm.Module,
		segment.Module,
		warehouse.Module,
		pipeline.Module,

		fx.Invoke(runOnce),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// runOnce executes a single pipeline run once the app has started and then
// shuts the process down, non-zero on failure.
func runOnce(lc fx.Lifecycle, svc pipelinedomain.Service, shutdowner fx.Shutdowner, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				code := 0
				if _, err := svc.Run(context.Background()); err != nil {
					log.Error("run failed", zap.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
