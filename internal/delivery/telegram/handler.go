package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
	"github.com/NOTMORSE-PROG/vocanova/internal/storage"
	"github.com/NOTMORSE-PROG/vocanova/internal/video"
)

const defaultQuestionTime = 30 * time.Second

type Config struct {
	QuestionTime   time.Duration // time to answer one question
	FreezeDuration time.Duration // extra time granted by a freeze power-up
}

// Services groups the application services the handler dispatches to.
type Services struct {
	Auth         AuthService
	Users        UserService
	Shop         ShopService
	Achievements AchievementService
	Words        WordService
	Inventory    InventoryReader
	NewQuiz      QuizEngineFactory
}

type Handler struct {
	bot          Sender
	logger       *zap.Logger
	auth         AuthService
	users        UserService
	shop         ShopService
	achievements AchievementService
	words        WordService
	inventory    InventoryReader
	newQuiz      QuizEngineFactory
	quizzes      *storage.SessionStorage[*quizRun]
	videos       *storage.SessionStorage[*video.Manager]
	newPlayer    video.PlayerFactory
	metrics      *metrics.Metrics
	cfg          Config
	now          func() time.Time

	videoCountsMu sync.Mutex
	videoCounts   map[int64]int
}

func NewHandler(
	bot Sender,
	logger *zap.Logger,
	services Services,
	newPlayer video.PlayerFactory,
	m *metrics.Metrics,
	cfg Config,
) *Handler {
	if cfg.QuestionTime <= 0 {
		cfg.QuestionTime = defaultQuestionTime
	}
	if cfg.FreezeDuration <= 0 {
		cfg.FreezeDuration = service.DefaultFreezeDuration
	}

	return &Handler{
		bot:          bot,
		logger:       logger,
		auth:         services.Auth,
		users:        services.Users,
		shop:         services.Shop,
		achievements: services.Achievements,
		words:        services.Words,
		inventory:    services.Inventory,
		newQuiz:      services.NewQuiz,
		quizzes:      storage.NewSessionStorage[*quizRun](),
		videos:       storage.NewSessionStorage[*video.Manager](),
		newPlayer:    newPlayer,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
		videoCounts:  make(map[int64]int),
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

// Shutdown closes every quiz engine and releases every video player.
func (h *Handler) Shutdown() {
	for _, run := range h.quizzes.Drain() {
		run.engine.Close()
	}
	for _, m := range h.videos.Drain() {
		m.ReleaseAll()
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.metrics.Update("callback")
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	h.metrics.Update("message")
	chatID := update.Message.Chat.ID
	h.logger.Debug("update received",
		zap.Int64("chat_id", chatID),
		zap.String("command", update.Message.Command()),
	)

	if !update.Message.IsCommand() {
		h.send(newHTMLMessage(chatID, msgHelp))
		return
	}

	cmd := update.Message.Command()
	args := update.Message.CommandArguments()
	messageID := update.Message.MessageID

	switch cmd {
	case "start":
		h.send(newHTMLMessage(chatID, msgWelcome))

	case "help":
		h.send(newHTMLMessage(chatID, msgHelp))

	case "signup":
		_ = h.withErrorHandling(cmd, h.handleSignUp(args, messageID))(ctx, chatID)

	case "login":
		_ = h.withErrorHandling(cmd, h.handleLogin(args, messageID))(ctx, chatID)

	case "logout":
		_ = h.withErrorHandling(cmd, h.handleLogout())(ctx, chatID)

	case "reset":
		_ = h.withErrorHandling(cmd, h.handleReset(args))(ctx, chatID)

	case "newpassword":
		_ = h.withErrorHandling(cmd, h.handleNewPassword(args, messageID))(ctx, chatID)

	case "word":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleWord))(ctx, chatID)

	case "saved":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleSaved))(ctx, chatID)

	case "quiz":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleQuizList))(ctx, chatID)

	case "video":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleVideoList))(ctx, chatID)

	case "shop":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleShop))(ctx, chatID)

	case "balance":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleBalance))(ctx, chatID)

	case "achievements":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleAchievements))(ctx, chatID)

	case "history":
		_ = h.withErrorHandling(cmd, h.withAuth(h.handleHistory))(ctx, chatID)

	default:
		h.send(newHTMLMessage(chatID, msgUnknownCommand))
	}
}

func (h *Handler) sendError(chatID int64, err string) {
	msg := newHTMLMessage(chatID, err)
	h.send(msg)
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}

// answerCallback removes the user's "clock" and optionally shows a toast.
func (h *Handler) answerCallback(id, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		h.logger.Warn("callback answer error", zap.Error(err))
	}
}

func (h *Handler) deleteMessage(chatID int64, messageID int) {
	if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		h.logger.Warn("failed to delete message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
