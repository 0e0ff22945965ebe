package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

// UserService handles profiles, currency and lesson rewards.
type UserService struct {
	store     docstore.Store
	lessons   LessonRepository
	results   QuizResultRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewUserService(
	store docstore.Store,
	lessons LessonRepository,
	results QuizResultRepository,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		store:     store,
		lessons:   lessons,
		results:   results,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// EnsureProfile returns the user's profile, creating it on first sign-in.
func (s *UserService) EnsureProfile(ctx context.Context, uid, name, email string) (*entities.User, error) {
	var user *entities.User

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		users := repository.NewUserRepository(tx)

		u, err := users.Get(ctx, uid)
		if err == nil {
			user = u
			return nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}

		user = entities.NewUser(uid, name, email)
		return users.Create(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	return user, nil
}

func (s *UserService) Profile(ctx context.Context, uid string) (*entities.User, error) {
	user, err := repository.NewUserRepository(s.store).Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Debug("profile not found", zap.String("uid", uid), zap.Error(err))
		}
		return nil, err
	}
	return user, nil
}

// AwardCurrency credits amount to the balance. Non-positive amounts are ignored.
func (s *UserService) AwardCurrency(ctx context.Context, uid string, amount int) error {
	if amount <= 0 {
		return nil
	}
	if err := repository.NewUserRepository(s.store).IncrementCurrency(ctx, uid, amount); err != nil {
		return fmt.Errorf("award currency: %w", err)
	}
	s.metrics.CurrencyAwarded(amount)
	return nil
}

// CompleteLesson records the lesson and credits its reward the first time.
// It returns the amount credited.
func (s *UserService) CompleteLesson(ctx context.Context, uid, lessonID string) (int, error) {
	lesson, err := s.lessons.GetByID(lessonID)
	if err != nil {
		return 0, err
	}

	var awarded int
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		awarded = 0
		users := repository.NewUserRepository(tx)

		user, err := users.Get(ctx, uid)
		if err != nil {
			return err
		}
		if user.HasCompletedLesson(lesson.ID) {
			return nil
		}

		if err := users.SetCompletedLessons(ctx, uid, append(user.CompletedLessons, lesson.ID)); err != nil {
			return err
		}
		if lesson.Reward > 0 {
			if err := users.IncrementCurrency(ctx, uid, lesson.Reward); err != nil {
				return err
			}
		}
		awarded = lesson.Reward
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("complete lesson %s: %w", lessonID, err)
	}

	if awarded > 0 {
		s.metrics.CurrencyAwarded(awarded)
		e := event.New(event.LessonCompleted, uid, map[string]any{"lesson": lesson.ID, "reward": awarded})
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish lesson event", zap.Error(err))
		}
	}

	return awarded, nil
}

func (s *UserService) Lessons() []entities.VideoLesson {
	return s.lessons.All()
}

func (s *UserService) Lesson(id string) (*entities.VideoLesson, error) {
	return s.lessons.GetByID(id)
}

// QuizHistory returns stored attempts, newest first. Store errors degrade to
// an empty history.
func (s *UserService) QuizHistory(ctx context.Context, uid string) []entities.QuizAttempt {
	attempts, err := s.results.ListByUser(ctx, uid)
	if err != nil {
		s.logger.Warn("failed to list quiz results", zap.String("uid", uid), zap.Error(err))
		return nil
	}
	return attempts
}
