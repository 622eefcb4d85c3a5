package metrics

import (
	"github.com/resellhub/notify-engine/internal/config"
	"go.uber.org/fx"
)

// Module stamps the engine instruments with the deployment's labels before
// any component touches the singleton.
var Module = fx.Module("observability.metrics",
	fx.Invoke(func(cfg config.Config) {
		EngineWithConfig(Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
		})
	}),
)
