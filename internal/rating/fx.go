package rating

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/rating/service"
)

// Module wires the shop rating service.
var Module = fx.Module("rating",
	fx.Provide(service.New),
)
