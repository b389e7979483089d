package compliance

import (
	"github.com/umagate/umagate/internal/compliance/repository"
	"github.com/umagate/umagate/internal/compliance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("compliance",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewSink),
)
