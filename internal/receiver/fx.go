package receiver

import (
	"github.com/umagate/umagate/internal/receiver/repository"
	"github.com/umagate/umagate/internal/receiver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receiver",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewStore),
)
