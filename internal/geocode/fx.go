package geocode

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/digiget/digiget/internal/config"
)

// Module provides the reverse geocoding client. When no Nominatim URL is
// configured the client is nil and callers skip address resolution.
var Module = fx.Module("geocode",
	fx.Provide(func(cfg *config.Config, log *zap.Logger) Client {
		if cfg.NominatimBaseURL == "" {
			return nil
		}
		return NewNominatim(cfg.NominatimBaseURL, log)
	}),
)
