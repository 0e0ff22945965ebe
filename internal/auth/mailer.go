package auth

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset codes to the log. Used when no mail relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.logger.Info("password reset requested",
		zap.String("email", email),
		zap.String("token", token),
	)
	return nil
}
