package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/resellhub/notify-engine/internal/catalog"
	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/config"
	"github.com/resellhub/notify-engine/internal/logger"
	"github.com/resellhub/notify-engine/internal/notification"
	obsmetrics "github.com/resellhub/notify-engine/internal/observability/metrics"
	"github.com/resellhub/notify-engine/internal/providers/email"
	"github.com/resellhub/notify-engine/internal/runner"
	"github.com/resellhub/notify-engine/internal/scheduler"
	"github.com/resellhub/notify-engine/internal/worker"
	"github.com/resellhub/notify-engine/pkg/db"
	"go.uber.org/fx"
)

// Headless deployment: runs the scheduling and delivery loop with no HTTP
// surface. Use cmd/notifier when the admin API should be served too.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		obsmetrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		notification.Module,
		catalog.Module,
		email.Module,
		scheduler.Module,
		worker.Module,
		runner.Module,
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
