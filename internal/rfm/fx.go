package rfm

import (
	"github.com/smallbiznis/loyara/internal/rfm/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rfm.service",
	fx.Provide(service.New),
)
