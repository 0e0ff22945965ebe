package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/infra/memory"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

func newWordService(t *testing.T) *WordService {
	t.Helper()
	words, err := repository.NewWordRepository()
	if err != nil {
		t.Fatal(err)
	}
	saved := repository.NewSavedWordRepository(memory.NewStore())
	return NewWordService(words, saved, "", zap.NewNop())
}

func TestWordForDay(t *testing.T) {
	s := newWordService(t)

	morning := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 55, 0, 0, time.UTC)
	nextDay := morning.Add(24 * time.Hour)

	if s.WordForDay(morning).ID != s.WordForDay(evening).ID {
		t.Error("word changed within one UTC day")
	}
	if s.WordForDay(morning).ID == s.WordForDay(nextDay).ID {
		t.Error("word did not change on the next day")
	}
	if s.Today().ID == "" {
		t.Error("Today() is empty")
	}
}

func TestSavedWords(t *testing.T) {
	ctx := context.Background()
	s := newWordService(t)

	if err := s.Save(ctx, "u1", "candid"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "u1", "missing"); err != repository.ErrWordNotFound {
		t.Errorf("Save(missing) error = %v", err)
	}

	list := s.Saved(ctx, "u1")
	if len(list) != 1 || list[0].Term != "candid" {
		t.Fatalf("Saved() = %+v", list)
	}

	if err := s.Unsave(ctx, "u1", "candid"); err != nil {
		t.Fatal(err)
	}
	if list := s.Saved(ctx, "u1"); len(list) != 0 {
		t.Errorf("Saved() after Unsave = %+v", list)
	}
}

func TestWordServiceStartStops(t *testing.T) {
	s := newWordService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
