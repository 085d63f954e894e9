package employee

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/employee/repository"
	"github.com/digiget/digiget/internal/employee/service"
)

// Module wires the employee repository and service.
var Module = fx.Module("employee",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
