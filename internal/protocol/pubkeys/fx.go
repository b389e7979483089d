package pubkeys

import (
	"github.com/umagate/umagate/internal/protocol"
	"go.uber.org/fx"
)

// Module provides the sender-key cache.
var Module = fx.Module("protocol.pubkeys",
	fx.Provide(func() protocol.PublicKeyCache { return New() }),
)
