package loyalty

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/loyalty/service"
)

// Module wires the proximity-gated loyalty service.
var Module = fx.Module("loyalty",
	fx.Provide(service.New),
)
