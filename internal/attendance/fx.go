package attendance

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/attendance/service"
)

// Module wires the staff attendance service.
var Module = fx.Module("attendance",
	fx.Provide(service.New),
)
