package shop

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/shop/repository"
	"github.com/digiget/digiget/internal/shop/service"
)

// Module wires the shop repository and service.
var Module = fx.Module("shop",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
