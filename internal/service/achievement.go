package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

var (
	ErrAchievementLocked  = errors.New("achievement is not unlocked yet")
	ErrAchievementClaimed = errors.New("achievement reward already claimed")
)

type AchievementService struct {
	store     docstore.Store
	repo      *repository.AchievementRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewAchievementService(
	store docstore.Store,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AchievementService {
	return &AchievementService{
		store:     store,
		repo:      repository.NewAchievementRepository(store),
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureTemplates creates the user's achievement set on first use.
func (s *AchievementService) EnsureTemplates(ctx context.Context, uid string) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return s.repo.WithTx(tx).EnsureTemplates(ctx, uid)
	})
	if err != nil {
		return fmt.Errorf("ensure achievements: %w", err)
	}
	return nil
}

func (s *AchievementService) List(ctx context.Context, uid string) ([]*entities.Achievement, error) {
	list, skipped, err := s.repo.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		s.logger.Warn("skipping achievement", zap.String("uid", uid), zap.Error(e))
	}
	return list, nil
}

// CheckPerfectScore unlocks the quiz's achievement when the result is a
// perfect score. It reports whether this call unlocked it; repeated calls
// for the same quiz are no-ops.
func (s *AchievementService) CheckPerfectScore(ctx context.Context, uid string, result entities.QuizResult) (bool, error) {
	if !result.IsPerfect() || !result.QuizID.Known() {
		return false, nil
	}

	id := entities.AchievementIDFor(result.QuizID)
	var unlocked bool

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		unlocked = false
		repo := s.repo.WithTx(tx)

		a, err := repo.Get(ctx, uid, id)
		if errors.Is(err, repository.ErrAchievementNotFound) {
			a = templateFor(result.QuizID)
		} else if err != nil {
			return err
		}

		if !a.Unlock(s.now().UTC()) {
			return nil
		}
		unlocked = true
		return repo.Save(ctx, uid, a)
	})
	if err != nil {
		return false, fmt.Errorf("check achievement %s: %w", id, err)
	}

	if unlocked {
		s.metrics.Achievement("unlocked")
		s.logger.Info("achievement unlocked", zap.String("uid", uid), zap.String("achievement", id))
		e := event.New(event.AchievementUnlocked, uid, map[string]any{"achievement": id})
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish achievement event", zap.Error(err))
		}
	}

	return unlocked, nil
}

// Claim marks the achievement claimed and credits its reward. Both writes
// happen in one transaction.
func (s *AchievementService) Claim(ctx context.Context, uid, achievementID string) (*entities.Achievement, error) {
	var claimed *entities.Achievement

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.repo.WithTx(tx)

		a, err := repo.Get(ctx, uid, achievementID)
		if err != nil {
			return err
		}
		if !a.Unlocked {
			return ErrAchievementLocked
		}
		if a.Claimed {
			return ErrAchievementClaimed
		}

		a.Claimed = true
		if err := repo.Save(ctx, uid, a); err != nil {
			return err
		}
		if err := repository.NewUserRepository(tx).IncrementCurrency(ctx, uid, a.Reward); err != nil {
			return err
		}

		claimed = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", achievementID, err)
	}

	s.metrics.Achievement("claimed")
	s.metrics.CurrencyAwarded(claimed.Reward)

	e := event.New(event.AchievementClaimed, uid, map[string]any{
		"achievement": claimed.ID,
		"reward":      claimed.Reward,
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish claim event", zap.Error(err))
	}

	return claimed, nil
}

func templateFor(quizID entities.QuizID) *entities.Achievement {
	for _, tpl := range entities.AchievementTemplates() {
		if tpl.QuizID == quizID {
			return &tpl
		}
	}
	return nil
}
