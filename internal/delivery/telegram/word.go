package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleWord(ctx context.Context, chatID int64, uid string) error {
	w := h.words.Today()

	msg := newHTMLMessage(chatID, formatWord(w))
	msg.ReplyMarkup = buildWordKeyboard(w.ID, h.isSaved(ctx, uid, w.ID))
	h.send(msg)
	return nil
}

func (h *Handler) handleSaved(ctx context.Context, chatID int64, uid string) error {
	h.send(newHTMLMessage(chatID, formatSavedWords(h.words.Saved(ctx, uid))))
	return nil
}

func (h *Handler) isSaved(ctx context.Context, uid, wordID string) bool {
	for _, s := range h.words.Saved(ctx, uid) {
		if s.WordID == wordID {
			return true
		}
	}
	return false
}

// handleWordCallback toggles the saved state and swaps the button.
func (h *Handler) handleWordCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error {
	wordID := data.param(1)
	if _, err := h.words.Word(wordID); err != nil {
		h.answerCallback(cb.ID, "")
		return err
	}

	var (
		saved bool
		toast string
	)
	switch data.param(0) {
	case wordSave:
		if err := h.words.Save(ctx, uid, wordID); err != nil {
			h.answerCallback(cb.ID, "")
			return err
		}
		saved, toast = true, msgWordSaved
	case wordUnsave:
		if err := h.words.Unsave(ctx, uid, wordID); err != nil {
			h.answerCallback(cb.ID, "")
			return err
		}
		saved, toast = false, msgWordUnsaved
	default:
		h.answerCallback(cb.ID, "")
		return nil
	}

	h.answerCallback(cb.ID, toast)
	kb := buildWordKeyboard(wordID, saved)
	h.send(tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, kb))
	return nil
}
