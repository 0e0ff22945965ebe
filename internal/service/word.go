package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

const DefaultDailyWordSchedule = "0 0 * * *"

// WordService picks the word of the day and manages saved words.
type WordService struct {
	words    WordRepository
	saved    SavedWordRepository
	schedule string
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.RWMutex
	today entities.Word
}

func NewWordService(words WordRepository, saved SavedWordRepository, schedule string, logger *zap.Logger) *WordService {
	if schedule == "" {
		schedule = DefaultDailyWordSchedule
	}
	s := &WordService{
		words:    words,
		saved:    saved,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
	s.refresh()
	return s
}

// WordForDay is deterministic: every user sees the same word on a UTC day.
func (s *WordService) WordForDay(t time.Time) entities.Word {
	day := t.UTC().Unix() / int64((24 * time.Hour).Seconds())
	return s.words.At(int(day % int64(s.words.Len())))
}

// Today returns the current word of the day.
func (s *WordService) Today() entities.Word {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.today
}

func (s *WordService) refresh() {
	w := s.WordForDay(s.now())
	s.mu.Lock()
	s.today = w
	s.mu.Unlock()
}

// Start refreshes the word of the day on schedule until ctx is done.
func (s *WordService) Start(ctx context.Context) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(s.schedule, func() {
		s.refresh()
		s.logger.Info("word of the day refreshed", zap.String("word", s.Today().ID))
	})
	if err != nil {
		s.logger.Error("failed to add cron job", zap.Error(err))
		return
	}

	c.Start()
	s.logger.Info("daily word scheduler started", zap.String("schedule", s.schedule))

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("daily word scheduler stopped")
}

func (s *WordService) Word(id string) (*entities.Word, error) {
	return s.words.GetByID(id)
}

func (s *WordService) Save(ctx context.Context, uid, wordID string) error {
	w, err := s.words.GetByID(wordID)
	if err != nil {
		return err
	}
	return s.saved.Save(ctx, uid, entities.SavedWord{WordID: w.ID, Term: w.Term, SavedAt: s.now().UTC()})
}

func (s *WordService) Unsave(ctx context.Context, uid, wordID string) error {
	return s.saved.Delete(ctx, uid, wordID)
}

// Saved lists saved words. Store errors degrade to an empty list.
func (s *WordService) Saved(ctx context.Context, uid string) []entities.SavedWord {
	list, err := s.saved.List(ctx, uid)
	if err != nil {
		s.logger.Warn("failed to list saved words", zap.String("uid", uid), zap.Error(err))
		return nil
	}
	return list
}
