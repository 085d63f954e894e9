package email

import (
	"github.com/digiget/digiget/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(Provide),
)

// Provide returns the SMTP provider when configured, NoOp otherwise.
func Provide(cfg *config.Config, log *zap.Logger) (Provider, error) {
	if cfg.SMTPHost == "" {
		log.Named("providers.email").Info("smtp not configured, emails disabled")
		return &NoOpProvider{}, nil
	}
	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
