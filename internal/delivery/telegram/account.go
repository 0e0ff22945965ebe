package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
)

// userFacingAuthErrors are shown to the user as they are; anything else is internal.
var userFacingAuthErrors = []error{
	auth.ErrInvalidUser,
	auth.ErrInvalidCredentials,
	auth.ErrWeakPassword,
	auth.ErrEmailAlreadyInUse,
	auth.ErrInvalidEmail,
	auth.ErrInvalidName,
	auth.ErrInvalidSession,
	auth.ErrInvalidResetToken,
}

func isUserFacing(err error) bool {
	for _, target := range userFacingAuthErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// replyAuthError sends the user message for known auth errors and returns the rest.
func (h *Handler) replyAuthError(chatID int64, err error) error {
	if isUserFacing(err) {
		h.sendError(chatID, auth.UserMessage(err))
		return nil
	}
	return err
}

// handleSignUp expects "Name email password"; the name may contain spaces.
// The message with the password is deleted once processed.
func (h *Handler) handleSignUp(args string, messageID int) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		fields := strings.Fields(args)
		if len(fields) < 3 {
			h.send(newHTMLMessage(chatID, msgUseSignup))
			return nil
		}
		defer h.deleteMessage(chatID, messageID)

		n := len(fields)
		name := strings.Join(fields[:n-2], " ")
		acc, err := h.auth.CreateAccount(ctx, chatID, name, fields[n-2], fields[n-1])
		if err != nil {
			return h.replyAuthError(chatID, err)
		}

		return h.onSignedIn(ctx, chatID, acc)
	}
}

func (h *Handler) handleLogin(args string, messageID int) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		fields := strings.Fields(args)
		if len(fields) != 2 {
			h.send(newHTMLMessage(chatID, msgUseLogin))
			return nil
		}
		defer h.deleteMessage(chatID, messageID)

		acc, err := h.auth.SignIn(ctx, chatID, fields[0], fields[1])
		if err != nil {
			return h.replyAuthError(chatID, err)
		}

		return h.onSignedIn(ctx, chatID, acc)
	}
}

// onSignedIn makes sure the profile and achievement templates exist.
func (h *Handler) onSignedIn(ctx context.Context, chatID int64, acc *auth.Account) error {
	if _, err := h.users.EnsureProfile(ctx, acc.UID, acc.Name, acc.Email); err != nil {
		return err
	}
	if err := h.achievements.EnsureTemplates(ctx, acc.UID); err != nil {
		h.logger.Warn("failed to create achievements", zap.String("uid", acc.UID), zap.Error(err))
	}

	h.send(newHTMLMessage(chatID, formatSignedIn(acc.Name)))
	return nil
}

func (h *Handler) handleLogout() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		h.endQuiz(chatID)
		if m, ok := h.videos.Delete(chatID); ok {
			m.ReleaseAll()
		}

		if err := h.auth.SignOut(ctx, chatID); err != nil {
			return err
		}
		h.send(newHTMLMessage(chatID, msgSignedOut))
		return nil
	}
}

func (h *Handler) handleReset(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		email := strings.TrimSpace(args)
		if email == "" {
			h.send(newHTMLMessage(chatID, msgUseReset))
			return nil
		}

		err := h.auth.SendPasswordReset(ctx, email)
		switch {
		case errors.Is(err, auth.ErrInvalidUser):
			// Same reply as success, so accounts cannot be probed.
		case err != nil:
			return h.replyAuthError(chatID, err)
		}

		h.send(newHTMLMessage(chatID, msgResetSent))
		return nil
	}
}

func (h *Handler) handleNewPassword(args string, messageID int) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		fields := strings.Fields(args)
		if len(fields) != 2 {
			h.send(newHTMLMessage(chatID, msgUseNewPassword))
			return nil
		}
		defer h.deleteMessage(chatID, messageID)

		if err := h.auth.ResetPassword(ctx, fields[0], fields[1]); err != nil {
			return h.replyAuthError(chatID, err)
		}
		h.send(newHTMLMessage(chatID, msgPasswordReset))
		return nil
	}
}

func (h *Handler) handleBalance(ctx context.Context, chatID int64, uid string) error {
	user, err := h.users.Profile(ctx, uid)
	if err != nil {
		return err
	}
	inv, err := h.inventory.Get(ctx, uid)
	if err != nil {
		return err
	}

	h.send(newHTMLMessage(chatID, formatBalance(user, inv)))
	return nil
}

func (h *Handler) handleShop(ctx context.Context, chatID int64, uid string) error {
	user, err := h.users.Profile(ctx, uid)
	if err != nil {
		return err
	}

	items := h.shop.Catalog()
	msg := newHTMLMessage(chatID, formatShop(items, user.Currency))
	msg.ReplyMarkup = buildShopKeyboard(items)
	h.send(msg)
	return nil
}

func (h *Handler) handleAchievements(ctx context.Context, chatID int64, uid string) error {
	list, err := h.achievements.List(ctx, uid)
	if err != nil {
		return err
	}

	msg := newHTMLMessage(chatID, formatAchievements(list))
	if kb := buildAchievementsKeyboard(list); kb != nil {
		msg.ReplyMarkup = kb
	}
	h.send(msg)
	return nil
}

func (h *Handler) handleHistory(ctx context.Context, chatID int64, uid string) error {
	h.send(newHTMLMessage(chatID, formatHistory(h.users.QuizHistory(ctx, uid))))
	return nil
}

// handleShopCallback buys one unit and refreshes the shop message.
func (h *Handler) handleShopCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error {
	if data.param(0) != shopBuy {
		h.answerCallback(cb.ID, "")
		return nil
	}

	balance, err := h.shop.Purchase(ctx, uid, data.param(1))
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		h.answerCallback(cb.ID, msgNotEnoughCoins)
		return nil
	case err != nil:
		h.answerCallback(cb.ID, msgUnknownItem)
		return err
	}

	h.answerCallback(cb.ID, "✅ Purchased")
	items := h.shop.Catalog()
	kb := buildShopKeyboard(items)
	h.send(newHTMLEdit(cb.Message.Chat.ID, cb.Message.MessageID, formatShop(items, balance), &kb))
	return nil
}

func (h *Handler) handleAchievementCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error {
	if data.param(0) != achievementClaim {
		h.answerCallback(cb.ID, "")
		return nil
	}

	a, err := h.achievements.Claim(ctx, uid, data.param(1))
	switch {
	case errors.Is(err, service.ErrAchievementClaimed):
		h.answerCallback(cb.ID, msgAlreadyClaimed)
		return nil
	case errors.Is(err, service.ErrAchievementLocked):
		h.answerCallback(cb.ID, msgNotUnlocked)
		return nil
	case err != nil:
		h.answerCallback(cb.ID, "")
		return err
	}

	h.answerCallback(cb.ID, claimToast(a))

	list, err := h.achievements.List(ctx, uid)
	if err != nil {
		return err
	}
	h.send(newHTMLEdit(cb.Message.Chat.ID, cb.Message.MessageID, formatAchievements(list), buildAchievementsKeyboard(list)))
	return nil
}

func claimToast(a *entities.Achievement) string {
	return fmt.Sprintf("🎁 +%d coins", a.Reward)
}
