package customer

import (
	"github.com/digiget/digiget/internal/customer/repository"
	"github.com/digiget/digiget/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
