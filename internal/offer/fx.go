package offer

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/offer/service"
)

// Module wires the flash offer service.
var Module = fx.Module("offer",
	fx.Provide(service.New),
)
