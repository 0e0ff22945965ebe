package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
)

type callbackFunc func(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		h.answerCallback(cb.ID, "")
		return
	}

	data := decodeCallback(cb.Data)

	var fn callbackFunc
	switch data.Action {
	case actionQuiz:
		fn = h.handleQuizCallback
	case actionShop:
		fn = h.handleShopCallback
	case actionAchievement:
		fn = h.handleAchievementCallback
	case actionWord:
		fn = h.handleWordCallback
	case actionVideo:
		fn = h.handleVideoCallback
	default:
		h.answerCallback(cb.ID, "")
		return
	}

	handler := func(ctx context.Context, chatID int64) error {
		uid, err := h.auth.CurrentUserID(ctx, chatID)
		if errors.Is(err, auth.ErrInvalidSession) {
			h.answerCallback(cb.ID, msgLoginRequired)
			return nil
		}
		if err != nil {
			h.answerCallback(cb.ID, "")
			return err
		}
		return fn(ctx, cb, data, uid)
	}

	_ = h.withErrorHandling("callback:"+data.Action, handler)(ctx, cb.Message.Chat.ID)
}
