package invoice

import (
	"go.uber.org/fx"
)

// Module provides the development invoice creator. Deployments with a real
// node replace this provider.
var Module = fx.Module("invoice",
	fx.Provide(NewDev),
)
