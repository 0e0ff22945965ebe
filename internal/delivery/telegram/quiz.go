package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
)

// quizRun is the chat-side state of a quiz: which question is on screen
// and until when it can be answered.
type quizRun struct {
	mu           sync.Mutex
	engine       QuizEngine
	quizID       entities.QuizID
	questions    []entities.QuizQuestion
	index        int
	score        int
	deadline     time.Time
	fiftyFiftyAt int // question index 50/50 was used on, -1 if none
}

func (r *quizRun) remaining(now time.Time) time.Duration {
	d := r.deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (h *Handler) handleQuizList(_ context.Context, chatID int64, _ string) error {
	msg := newHTMLMessage(chatID, msgChooseQuiz)
	msg.ReplyMarkup = buildQuizListKeyboard()
	h.send(msg)
	return nil
}

// endQuiz drops the chat's quiz run, if any.
func (h *Handler) endQuiz(chatID int64) {
	if run, ok := h.quizzes.Delete(chatID); ok {
		run.engine.Close()
	}
}

func (h *Handler) handleQuizCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error {
	switch data.param(0) {
	case quizStart:
		return h.startQuiz(ctx, cb, uid, entities.QuizID(data.param(1)))
	case quizAnswer, quizSkip:
		return h.answerQuestion(ctx, cb, data)
	case quizPowerUp:
		return h.usePowerUp(ctx, cb, data.param(1))
	default:
		h.answerCallback(cb.ID, "")
		return nil
	}
}

func (h *Handler) startQuiz(ctx context.Context, cb *tgbotapi.CallbackQuery, uid string, quizID entities.QuizID) error {
	chatID := cb.Message.Chat.ID
	h.endQuiz(chatID)

	engine := h.newQuiz(uid, func(ctx context.Context) error {
		return h.auth.Refresh(ctx, chatID)
	})
	engine.LoadQuestions(ctx, quizID)

	questions := engine.Questions()
	if len(questions) == 0 {
		engine.Close()
		h.answerCallback(cb.ID, msgNoQuestions)
		return nil
	}

	run := &quizRun{
		engine:       engine,
		quizID:       quizID,
		questions:    questions,
		deadline:     h.now().Add(h.cfg.QuestionTime),
		fiftyFiftyAt: -1,
	}
	h.quizzes.Store(chatID, run)

	h.logger.Debug("quiz started",
		zap.Int64("chat_id", chatID),
		zap.String("quiz_id", string(quizID)),
		zap.Int("questions", len(questions)),
	)

	h.answerCallback(cb.ID, "")

	run.mu.Lock()
	defer run.mu.Unlock()
	h.renderQuestionLocked(cb.Message.Chat.ID, cb.Message.MessageID, run)
	return nil
}

// answerQuestion records the answer, snapshots the question for reverse
// time and moves to the next question or the result.
func (h *Handler) answerQuestion(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData) error {
	chatID := cb.Message.Chat.ID
	run, ok := h.quizzes.Get(chatID)
	if !ok {
		h.answerCallback(cb.ID, msgQuizExpired)
		return nil
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	index, ok := data.intParam(1)
	if !ok || index != run.index || index >= len(run.questions) {
		h.answerCallback(cb.ID, msgStaleQuestion)
		return nil
	}
	q := run.questions[index]

	var selected *string
	if data.param(0) == quizAnswer {
		opt, ok := data.intParam(2)
		if !ok || opt >= len(q.Options) {
			h.answerCallback(cb.ID, msgStaleQuestion)
			return nil
		}
		selected = &q.Options[opt]
	}

	now := h.now()
	remaining := run.remaining(now)
	if remaining == 0 {
		selected = nil
	}

	if selected != nil {
		run.engine.SubmitAnswer(index, *selected)
	} else {
		run.engine.ClearAnswer(index)
	}
	run.engine.SaveQuestionState(index, selected, remaining, run.score)
	run.score = run.engine.CurrentScore()

	h.answerCallback(cb.ID, formatAnswerFeedback(q, selected))

	run.index++
	if run.index < len(run.questions) {
		run.deadline = now.Add(h.cfg.QuestionTime)
		h.renderQuestionLocked(chatID, cb.Message.MessageID, run)
		return nil
	}

	result := run.engine.CalculateResult(ctx, run.quizID)
	h.quizzes.Delete(chatID)
	run.engine.Close()

	h.logger.Info("quiz completed",
		zap.Int64("chat_id", chatID),
		zap.String("quiz_id", string(result.QuizID)),
		zap.Int("score", result.Score),
	)

	kb := buildQuizListKeyboard()
	h.send(newHTMLEdit(chatID, cb.Message.MessageID, formatQuizResult(result), &kb))
	return nil
}

func (h *Handler) usePowerUp(ctx context.Context, cb *tgbotapi.CallbackQuery, key string) error {
	chatID := cb.Message.Chat.ID
	run, ok := h.quizzes.Get(chatID)
	if !ok {
		h.answerCallback(cb.ID, msgQuizExpired)
		return nil
	}

	t, ok := entities.ParsePowerUpType(key)
	if !ok {
		h.answerCallback(cb.ID, "")
		return nil
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	err := run.engine.UsePowerUp(ctx, t)
	switch {
	case errors.Is(err, service.ErrRemoteUpdate):
		h.answerCallback(cb.ID, msgPowerUpFailed)
		h.logger.Warn("power-up failed", zap.String("type", t.String()), zap.Error(err))
		return nil
	case errors.Is(err, service.ErrNoInventory):
		h.answerCallback(cb.ID, msgNoPowerUpLeft)
		return nil
	case errors.Is(err, service.ErrNoHistory):
		h.answerCallback(cb.ID, msgNothingToRewind)
		return nil
	case err != nil:
		h.answerCallback(cb.ID, "")
		return err
	}

	now := h.now()
	switch t {
	case entities.FreezeTime:
		run.deadline = run.deadline.Add(h.cfg.FreezeDuration)
	case entities.FiftyFifty:
		run.fiftyFiftyAt = run.index
	case entities.ReverseTime:
		if st, ok := run.engine.PreviousQuestionState(); ok {
			run.index = st.QuestionIndex
			run.score = st.Score
			run.deadline = now.Add(st.TimeRemaining)
		}
	}

	h.answerCallback(cb.ID, powerUpIcon(t)+" "+powerUpName(t))
	h.renderQuestionLocked(chatID, cb.Message.MessageID, run)
	return nil
}

func (h *Handler) renderQuestionLocked(chatID int64, messageID int, run *quizRun) {
	st := run.engine.State()
	q := run.questions[run.index]

	text := formatQuestion(st, q, run.index, run.score, run.remaining(h.now()))
	kb := buildQuestionKeyboard(q, run.index, run.fiftyFiftyAt == run.index, st.Inventory)
	h.send(newHTMLEdit(chatID, messageID, text, &kb))
}
