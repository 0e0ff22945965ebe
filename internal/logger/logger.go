package logger

import (
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/config"
)

const appName = "vocanova"

// New returns a JSON production logger for env=production and a console
// development logger otherwise. Every entry carries the app and env fields.
func New(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return l.With(zap.String("app", appName), zap.String("env", cfg.Env)), nil
}
