package payroll

import "go.uber.org/fx"

var Module = fx.Module("payroll",
	fx.Provide(New),
)
