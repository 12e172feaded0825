package cleaner

import (
	"github.com/smallbiznis/loyara/internal/cleaner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cleaner.service",
	fx.Provide(service.New),
)
