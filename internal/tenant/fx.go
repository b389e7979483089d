package tenant

import (
	"context"

	"github.com/umagate/umagate/internal/tenant/domain"
	"github.com/umagate/umagate/internal/tenant/repository"
	"github.com/umagate/umagate/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.directory",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewDirectory),
	fx.Invoke(initialize),
)

func initialize(lc fx.Lifecycle, directory domain.Directory) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return directory.Initialize(ctx)
		},
	})
}
