package catalog

import (
	"github.com/resellhub/notify-engine/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideServiceCatalog),
	fx.Provide(repository.ProvideInvoiceCatalog),
)
