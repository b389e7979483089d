package vasp

import (
	"go.uber.org/fx"
)

var Module = fx.Module("vasp",
	fx.Provide(NewFactory),
)
