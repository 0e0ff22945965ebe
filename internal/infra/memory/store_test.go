package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
)

func TestGetMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.Get(context.Background(), "users/u1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	items := []string{"a"}
	if err := s.Set(ctx, "users/u1", map[string]any{"items": items}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	items[0] = "mutated"

	got, err := s.Get(ctx, "users/u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got["items"].([]string)[0] != "a" {
		t.Errorf("Stored document was aliased to the caller's slice")
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	s := NewStore()
	err := s.Update(context.Background(), "users/u1", map[string]any{"name": "x"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestIncrementCreatesDocument(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 3; i++ {
		if err := s.Increment(ctx, "user_powerups/u1", "freeze_time", 2); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := s.Increment(ctx, "user_powerups/u1", "freeze_time", -1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, _ := s.Get(ctx, "user_powerups/u1")
	if n, _ := docstore.Int64(got["freeze_time"]); n != 5 {
		t.Errorf("Expected 5, got %v", got["freeze_time"])
	}
}

func TestListFiltersByCollection(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_ = s.Set(ctx, "users/u1/achievements/b", map[string]any{})
	_ = s.Set(ctx, "users/u1/achievements/a", map[string]any{})
	_ = s.Set(ctx, "users/u2/achievements/c", map[string]any{})
	_ = s.Set(ctx, "users/u1", map[string]any{})

	docs, err := s.List(ctx, "users/u1/achievements")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != "a" || docs[1].ID() != "b" {
		t.Errorf("Unexpected documents: %+v", docs)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.Set(ctx, "users/u1", map[string]any{"currency": int64(20)})

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Increment(ctx, "users/u1", "currency", 100); err != nil {
			return err
		}
		if err := tx.Set(ctx, "users/u1/achievements/a", map[string]any{"claimed": true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	got, _ := s.Get(ctx, "users/u1")
	if n, _ := docstore.Int64(got["currency"]); n != 20 {
		t.Errorf("Expected currency 20 after rollback, got %d", n)
	}
	if _, err := s.Get(ctx, "users/u1/achievements/a"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Expected staged document to be discarded, got %v", err)
	}
}

func TestTransactionSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, "users/u1", map[string]any{"currency": int64(1)}); err != nil {
			return err
		}
		if err := tx.Increment(ctx, "users/u1", "currency", 4); err != nil {
			return err
		}
		got, err := tx.Get(ctx, "users/u1")
		if err != nil {
			return err
		}
		if n, _ := docstore.Int64(got["currency"]); n != 5 {
			t.Errorf("Expected 5 inside transaction, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan docstore.Snapshot, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Subscribe(ctx, "users/u1", func(snap docstore.Snapshot) { snapshots <- snap })
	}()

	first := <-snapshots
	if first.Exists {
		t.Fatalf("Expected initial snapshot of a missing document")
	}

	if err := s.Set(context.Background(), "users/u1", map[string]any{"currency": int64(3)}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	select {
	case snap := <-snapshots:
		if !snap.Exists {
			t.Fatalf("Expected document to exist")
		}
		if n, _ := docstore.Int64(snap.Data["currency"]); n != 3 {
			t.Errorf("Expected currency 3, got %v", snap.Data["currency"])
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for change")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
