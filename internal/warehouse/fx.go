package warehouse

import (
	"github.com/smallbiznis/loyara/internal/warehouse/service"
	"go.uber.org/fx"
)

var Module = fx.Module("warehouse.service",
	fx.Provide(service.New),
)
