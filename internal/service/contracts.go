package service

import (
	"context"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
)

type QuestionRepository interface {
	QuestionsForLesson(quizID entities.QuizID) []entities.QuizQuestion
}

type PowerUpCatalog interface {
	All() []entities.PowerUp
	GetByID(id string) (*entities.PowerUp, error)
}

type LessonRepository interface {
	All() []entities.VideoLesson
	GetByID(id string) (*entities.VideoLesson, error)
}

type WordRepository interface {
	Len() int
	At(i int) entities.Word
	GetByID(id string) (*entities.Word, error)
}

type QuizResultRepository interface {
	Save(ctx context.Context, uid string, result entities.QuizResult, completedAt time.Time) (string, error)
	ListByUser(ctx context.Context, uid string) ([]entities.QuizAttempt, error)
}

type SavedWordRepository interface {
	Save(ctx context.Context, uid string, w entities.SavedWord) error
	Delete(ctx context.Context, uid, wordID string) error
	List(ctx context.Context, uid string) ([]entities.SavedWord, error)
}

// EventPublisher sends domain events. Failures are logged by the caller.
type EventPublisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// CurrencyAwarder credits quiz earnings.
type CurrencyAwarder interface {
	AwardCurrency(ctx context.Context, uid string, amount int) error
}

// AchievementChecker unlocks the achievement a result qualifies for.
type AchievementChecker interface {
	CheckPerfectScore(ctx context.Context, uid string, result entities.QuizResult) (bool, error)
}

// Scheduler runs fn after d. The returned stop func cancels it and reports
// whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// RealScheduler uses time.AfterFunc.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
