package protocol

import (
	"go.uber.org/fx"
)

// Module provides the default wire codec. Nonce validation and sender-key
// resolution are wired separately so deployments can swap backends.
var Module = fx.Module("protocol",
	fx.Provide(NewCodec),
)
