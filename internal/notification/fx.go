package notification

import (
	"github.com/resellhub/notify-engine/internal/notification/repository"
	"github.com/resellhub/notify-engine/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
