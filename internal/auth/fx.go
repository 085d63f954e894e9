package auth

import (
	"go.uber.org/fx"

	"github.com/digiget/digiget/internal/auth/service"
	"github.com/digiget/digiget/internal/auth/session"
)

// Module wires owner authentication and the session cookie manager.
var Module = fx.Module("auth",
	fx.Provide(
		service.New,
		session.NewManager,
	),
)
