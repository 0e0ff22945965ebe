package telegram

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
)

type HandlerFunc func(ctx context.Context, chatID int64) error

// AuthedFunc is a handler that needs a signed-in user.
type AuthedFunc func(ctx context.Context, chatID int64, uid string) error

func (h *Handler) withErrorHandling(command string, fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if err := fn(ctx, chatID); err != nil {
			h.metrics.HandlerError(command)
			h.logger.Error("handle error",
				zap.String("command", command),
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			h.sendError(chatID, msgInternalError)
			return nil
		}
		return nil
	}
}

// withAuth resolves the chat's user and asks it to sign in when there is no session.
func (h *Handler) withAuth(fn AuthedFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		uid, err := h.auth.CurrentUserID(ctx, chatID)
		if errors.Is(err, auth.ErrInvalidSession) {
			h.sendError(chatID, msgLoginRequired)
			return nil
		}
		if err != nil {
			return err
		}
		return fn(ctx, chatID, uid)
	}
}
