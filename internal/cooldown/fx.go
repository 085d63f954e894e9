package cooldown

import "go.uber.org/fx"

var Module = fx.Module("cooldown",
	fx.Provide(NewStore),
)
