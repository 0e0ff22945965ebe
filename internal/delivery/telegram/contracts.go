package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NOTMORSE-PROG/vocanova/internal/auth"
	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type AuthService interface {
	CreateAccount(ctx context.Context, chatID int64, name, email, password string) (*auth.Account, error)
	SignIn(ctx context.Context, chatID int64, email, password string) (*auth.Account, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	SignOut(ctx context.Context, chatID int64) error
	CurrentUserID(ctx context.Context, chatID int64) (string, error)
	Refresh(ctx context.Context, chatID int64) error
}

type UserService interface {
	EnsureProfile(ctx context.Context, uid, name, email string) (*entities.User, error)
	Profile(ctx context.Context, uid string) (*entities.User, error)
	CompleteLesson(ctx context.Context, uid, lessonID string) (int, error)
	Lessons() []entities.VideoLesson
	Lesson(id string) (*entities.VideoLesson, error)
	QuizHistory(ctx context.Context, uid string) []entities.QuizAttempt
}

type ShopService interface {
	Catalog() []entities.PowerUp
	Purchase(ctx context.Context, uid, itemID string) (int, error)
}

type AchievementService interface {
	EnsureTemplates(ctx context.Context, uid string) error
	List(ctx context.Context, uid string) ([]*entities.Achievement, error)
	Claim(ctx context.Context, uid, achievementID string) (*entities.Achievement, error)
}

type WordService interface {
	Today() entities.Word
	Word(id string) (*entities.Word, error)
	Save(ctx context.Context, uid, wordID string) error
	Unsave(ctx context.Context, uid, wordID string) error
	Saved(ctx context.Context, uid string) []entities.SavedWord
}

type InventoryReader interface {
	Get(ctx context.Context, uid string) (entities.Inventory, error)
}

// QuizEngine is one user's quiz session.
type QuizEngine interface {
	LoadQuestions(ctx context.Context, quizID entities.QuizID)
	Questions() []entities.QuizQuestion
	SubmitAnswer(index int, answer string)
	ClearAnswer(index int)
	SaveQuestionState(index int, selected *string, remaining time.Duration, score int)
	PreviousQuestionState() (entities.QuestionState, bool)
	CurrentScore() int
	CalculateResult(ctx context.Context, quizID entities.QuizID) entities.QuizResult
	UsePowerUp(ctx context.Context, t entities.PowerUpType) error
	State() service.QuizState
	Close()
}

// QuizEngineFactory creates an engine bound to uid.
type QuizEngineFactory func(uid string, refresh docstore.RefreshFunc) QuizEngine
