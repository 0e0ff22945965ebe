package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/infra/memory"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

type fakeTask struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// fakeScheduler runs tasks only when the test fires them.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &fakeTask{d: d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

func (s *fakeScheduler) task(t *testing.T, i int) *fakeTask {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.tasks) {
		t.Fatalf("task %d not scheduled (have %d)", i, len(s.tasks))
	}
	return s.tasks[i]
}

// fire runs the task even if it was stopped, like a timer that already
// started executing.
func (s *fakeScheduler) fire(t *testing.T, i int) {
	t.Helper()
	task := s.task(t, i)
	s.mu.Lock()
	task.fired = true
	s.mu.Unlock()
	task.fn()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// countingInventory wraps the real inventory service and can fail remote
// changes.
type countingInventory struct {
	*InventoryService
	mu      sync.Mutex
	changes int
	fail    error
}

func (c *countingInventory) before() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes++
	return c.fail
}

func (c *countingInventory) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changes
}

func (c *countingInventory) Spend(ctx context.Context, uid string, t entities.PowerUpType) (int, error) {
	if err := c.before(); err != nil {
		return 0, err
	}
	return c.InventoryService.Spend(ctx, uid, t)
}

func (c *countingInventory) Refund(ctx context.Context, uid string, t entities.PowerUpType) (int, error) {
	if err := c.before(); err != nil {
		return 0, err
	}
	return c.InventoryService.Refund(ctx, uid, t)
}

type failingAwarder struct{}

func (failingAwarder) AwardCurrency(context.Context, string, int) error {
	return errors.New("store offline")
}

type fixture struct {
	store        *memory.Store
	users        *UserService
	achievements *AchievementService
	inventory    *countingInventory
	results      *repository.QuizResultRepository
	publisher    *recordingPublisher
	scheduler    *fakeScheduler
	factory      *QuizEngineFactory
}

func newFixture(t *testing.T, opts ...QuizEngineOption) *fixture {
	t.Helper()

	questions, err := repository.NewQuestionRepository()
	if err != nil {
		t.Fatal(err)
	}
	lessons, err := repository.NewLessonRepository()
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:     memory.NewStore(),
		publisher: &recordingPublisher{},
		scheduler: &fakeScheduler{},
	}
	f.results = repository.NewQuizResultRepository(f.store)
	f.inventory = &countingInventory{InventoryService: NewInventoryService(f.store)}
	f.users = NewUserService(f.store, lessons, f.results, f.publisher, nil, zap.NewNop())
	f.achievements = NewAchievementService(f.store, f.publisher, nil, zap.NewNop())

	opts = append([]QuizEngineOption{WithScheduler(f.scheduler)}, opts...)
	f.factory = NewQuizEngineFactory(
		questions,
		f.inventory,
		f.results,
		f.users,
		f.achievements,
		f.publisher,
		QuizConfig{},
		zap.NewNop(),
		opts...,
	)
	return f
}

func (f *fixture) createUser(t *testing.T, uid string, currency int) {
	t.Helper()
	u := entities.NewUser(uid, "Ann", uid+"@example.com")
	u.Currency = currency
	if err := repository.NewUserRepository(f.store).Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) currency(t *testing.T, uid string) int {
	t.Helper()
	u, err := repository.NewUserRepository(f.store).Get(context.Background(), uid)
	if err != nil {
		t.Fatal(err)
	}
	return u.Currency
}

func (f *fixture) stock(t *testing.T, uid string, typ entities.PowerUpType, n int) {
	t.Helper()
	if err := repository.NewPowerUpRepository(f.store).Increment(context.Background(), uid, typ, n); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) remoteCount(t *testing.T, uid string, typ entities.PowerUpType) int {
	t.Helper()
	inv, err := repository.NewPowerUpRepository(f.store).Get(context.Background(), uid)
	if err != nil {
		t.Fatal(err)
	}
	return inv.Count(typ)
}

// failingTxStore fails every Increment made inside a transaction.
type failingTxStore struct {
	*memory.Store
}

type failingTx struct {
	docstore.Tx
}

func (failingTx) Increment(context.Context, string, string, int64) error {
	return errors.New("increment rejected")
}

func (s failingTxStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, failingTx{Tx: tx})
	})
}
