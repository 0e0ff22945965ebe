package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

func strPtr(s string) *string { return &s }

func answerQuiz(e *QuizEngine, correct int) {
	for i, q := range e.Questions() {
		if i < correct {
			e.SubmitAnswer(i, q.CorrectAnswer)
		} else {
			e.SubmitAnswer(i, q.IncorrectOptions()[0])
		}
	}
}

func TestCalculateResultWeek1(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "u1", 0)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)
	if got := len(e.Questions()); got != 10 {
		t.Fatalf("loaded %d questions, want 10", got)
	}

	answerQuiz(e, 7)

	got := e.CalculateResult(ctx, entities.QuizWeek1)
	want := entities.QuizResult{TotalQuestions: 10, CorrectAnswers: 7, Score: 70, QuizID: entities.QuizWeek1}
	if got != want {
		t.Fatalf("CalculateResult() = %+v, want %+v", got, want)
	}
	if got.CurrencyEarned() != 7 {
		t.Errorf("CurrencyEarned() = %d, want 7", got.CurrencyEarned())
	}

	e.Wait()

	if c := f.currency(t, "u1"); c != 7 {
		t.Errorf("currency = %d, want 7", c)
	}
	attempts, err := f.results.ListByUser(ctx, "u1")
	if err != nil || len(attempts) != 1 || attempts[0].Result != want {
		t.Errorf("stored attempts = %+v, %v", attempts, err)
	}
	list, err := f.achievements.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range list {
		if a.Unlocked {
			t.Errorf("achievement %s unlocked by a score of 70", a.ID)
		}
	}
	if st := e.State(); st.Status != QuizCompleted {
		t.Errorf("status = %v, want completed", st.Status)
	}
}

func TestCalculateResultIgnoresOutOfRangeAndUnanswered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek2)
	qs := e.Questions()

	e.SubmitAnswer(0, qs[0].CorrectAnswer)
	e.SubmitAnswer(1, qs[1].CorrectAnswer)
	e.SubmitAnswer(1, qs[1].IncorrectOptions()[0]) // overwrite
	e.SubmitAnswer(len(qs), qs[0].CorrectAnswer)
	e.SubmitAnswer(-1, qs[0].CorrectAnswer)

	got := e.CalculateResult(ctx, entities.QuizWeek2)
	if got.CorrectAnswers != 1 || got.Score != 10 || got.TotalQuestions != len(qs) {
		t.Errorf("CalculateResult() = %+v", got)
	}
	e.Wait()
}

func TestPerfectScoreUnlocksAchievementOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "u1", 0)

	e := f.factory.New("u1", nil)
	for range 2 {
		e.LoadQuestions(ctx, entities.QuizWeek3)
		answerQuiz(e, 10)
		if r := e.CalculateResult(ctx, entities.QuizWeek3); !r.IsPerfect() {
			t.Fatalf("result %+v is not perfect", r)
		}
		e.Wait()
	}

	a, err := repository.NewAchievementRepository(f.store).Get(ctx, "u1", entities.AchievementIDFor(entities.QuizWeek3))
	if err != nil {
		t.Fatalf("achievement not stored: %v", err)
	}
	if !a.Unlocked || a.Claimed {
		t.Errorf("achievement = %+v", a)
	}

	unlocks := 0
	for _, typ := range f.publisher.types() {
		if typ == event.AchievementUnlocked {
			unlocks++
		}
	}
	if unlocks != 1 {
		t.Errorf("achievement unlocked %d times, want 1", unlocks)
	}
	if c := f.currency(t, "u1"); c != 20 {
		t.Errorf("currency = %d, want 20 after two perfect runs", c)
	}
}

func TestSideEffectFailureKeepsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.factory.currency = failingAwarder{}

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)
	answerQuiz(e, 4)

	got := e.CalculateResult(ctx, entities.QuizWeek1)
	e.Wait()
	if got.Score != 40 {
		t.Errorf("Score = %d, want 40", got.Score)
	}
	attempts, _ := f.results.ListByUser(ctx, "u1")
	if len(attempts) != 1 {
		t.Errorf("result not stored after a currency failure: %+v", attempts)
	}
}

func TestLoadUnknownQuiz(t *testing.T) {
	f := newFixture(t)
	e := f.factory.New("u1", nil)
	e.LoadQuestions(context.Background(), "week99")

	st := e.State()
	if st.Title != entities.FallbackQuizTitle || st.TotalQuestions != 0 || st.Status != QuizLoaded {
		t.Errorf("State() = %+v", st)
	}
}

func TestHistoryIsLIFO(t *testing.T) {
	f := newFixture(t)
	e := f.factory.New("u1", nil)
	e.LoadQuestions(context.Background(), entities.QuizWeek1)

	e.SaveQuestionState(0, strPtr("A"), 20*time.Second, 0)
	e.SaveQuestionState(1, nil, 15*time.Second, 10)
	if n := e.State().ReverseTimeCount; n != 2 {
		t.Fatalf("ReverseTimeCount = %d, want 2", n)
	}

	b, ok := e.PreviousQuestionState()
	if !ok || b.QuestionIndex != 1 || b.SelectedAnswer != nil || b.Score != 10 {
		t.Fatalf("first pop = %+v, %v", b, ok)
	}
	if n := e.State().ReverseTimeCount; n != 1 {
		t.Errorf("ReverseTimeCount = %d, want 1", n)
	}

	a, ok := e.PreviousQuestionState()
	if !ok || a.QuestionIndex != 0 || a.SelectedAnswer == nil || *a.SelectedAnswer != "A" || a.TimeRemaining != 20*time.Second {
		t.Fatalf("second pop = %+v, %v", a, ok)
	}

	if _, ok := e.PreviousQuestionState(); ok {
		t.Fatal("third pop returned a state")
	}
	st := e.State()
	if st.CanGoBack || st.ReverseTimeCount != 0 {
		t.Errorf("State() after draining = %+v", st)
	}
}

func TestUsePowerUpWithoutInventory(t *testing.T) {
	ctx := context.Background()

	for _, typ := range entities.PowerUpTypes {
		t.Run(typ.String(), func(t *testing.T) {
			f := newFixture(t)
			e := f.factory.New("u1", nil)
			e.LoadQuestions(ctx, entities.QuizWeek1)

			err := e.UsePowerUp(ctx, typ)
			if !errors.Is(err, ErrNoInventory) {
				t.Fatalf("UsePowerUp() error = %v, want ErrNoInventory", err)
			}
			if n := f.inventory.calls(); n != 0 {
				t.Errorf("remote inventory touched %d times", n)
			}
			st := e.State()
			if st.Frozen || st.FiftyFiftyUsed || st.CanGoBack || st.Inventory.Count(typ) != 0 {
				t.Errorf("state changed: %+v", st)
			}
		})
	}
}

func TestUsePowerUpUnknownType(t *testing.T) {
	f := newFixture(t)
	e := f.factory.New("u1", nil)
	if err := e.UsePowerUp(context.Background(), entities.PowerUpType(99)); !errors.Is(err, ErrUnknownPowerUp) {
		t.Errorf("UsePowerUp(99) error = %v", err)
	}
}

func TestReverseTimeWithoutHistoryRefunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.ReverseTime, 1)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)

	err := e.UsePowerUp(ctx, entities.ReverseTime)
	if !errors.Is(err, ErrNoHistory) {
		t.Fatalf("UsePowerUp() error = %v, want ErrNoHistory", err)
	}
	if n := f.remoteCount(t, "u1", entities.ReverseTime); n != 1 {
		t.Errorf("remote count = %d, want 1", n)
	}
	st := e.State()
	if st.Inventory.Count(entities.ReverseTime) != 1 || st.CanGoBack || st.Animating {
		t.Errorf("State() = %+v", st)
	}
}

func TestReverseTimeWithHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.ReverseTime, 2)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)
	e.SaveQuestionState(0, strPtr("joyful"), 5*time.Second, 10)

	if err := e.UsePowerUp(ctx, entities.ReverseTime); err != nil {
		t.Fatalf("UsePowerUp() error = %v", err)
	}
	st := e.State()
	if !st.CanGoBack || !st.Animating || st.Inventory.Count(entities.ReverseTime) != 1 {
		t.Fatalf("State() = %+v", st)
	}
	if n := f.remoteCount(t, "u1", entities.ReverseTime); n != 1 {
		t.Errorf("remote count = %d, want 1", n)
	}
	if d := f.scheduler.task(t, 0).d; d != DefaultReverseAnimation {
		t.Errorf("animation window = %v, want %v", d, DefaultReverseAnimation)
	}

	f.scheduler.fire(t, 0)
	if st := e.State(); st.Animating || !st.CanGoBack {
		t.Errorf("after animation State() = %+v", st)
	}
}

func TestUsePowerUpRemoteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FiftyFifty, 1)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)

	f.inventory.fail = errors.New("unavailable")
	err := e.UsePowerUp(ctx, entities.FiftyFifty)
	if !errors.Is(err, ErrRemoteUpdate) {
		t.Fatalf("UsePowerUp() error = %v, want ErrRemoteUpdate", err)
	}

	st := e.State()
	if st.FiftyFiftyUsed || st.Inventory.Count(entities.FiftyFifty) != 1 {
		t.Errorf("State() = %+v", st)
	}
	if n := f.remoteCount(t, "u1", entities.FiftyFifty); n != 1 {
		t.Errorf("remote count = %d, want 1", n)
	}
}

func TestFiftyFiftyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FiftyFifty, 2)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)

	for range 2 {
		if err := e.UsePowerUp(ctx, entities.FiftyFifty); err != nil {
			t.Fatalf("UsePowerUp() error = %v", err)
		}
	}
	st := e.State()
	if !st.FiftyFiftyUsed || st.Inventory.Count(entities.FiftyFifty) != 0 {
		t.Errorf("State() = %+v", st)
	}

	e.LoadQuestions(ctx, entities.QuizWeek1)
	if e.State().FiftyFiftyUsed {
		t.Error("LoadQuestions did not reset the fifty-fifty flag")
	}
}

func TestFreezeTimeWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FreezeTime, 1)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)

	if err := e.UsePowerUp(ctx, entities.FreezeTime); err != nil {
		t.Fatalf("UsePowerUp() error = %v", err)
	}
	if !e.State().Frozen {
		t.Fatal("not frozen")
	}
	if d := f.scheduler.task(t, 0).d; d != DefaultFreezeDuration {
		t.Errorf("freeze window = %v, want %v", d, DefaultFreezeDuration)
	}

	f.scheduler.fire(t, 0)
	if e.State().Frozen {
		t.Error("still frozen after the window")
	}
}

func TestLoadQuestionsCancelsTimers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FreezeTime, 2)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)
	if err := e.UsePowerUp(ctx, entities.FreezeTime); err != nil {
		t.Fatal(err)
	}

	e.LoadQuestions(ctx, entities.QuizWeek2)
	if !f.scheduler.task(t, 0).stopped {
		t.Error("freeze timer not cancelled")
	}
	if e.State().Frozen {
		t.Error("frozen flag survived LoadQuestions")
	}

	// Freeze again, then let the stale timer fire: it must not unfreeze.
	if err := e.UsePowerUp(ctx, entities.FreezeTime); err != nil {
		t.Fatal(err)
	}
	f.scheduler.fire(t, 0)
	if !e.State().Frozen {
		t.Error("stale timer cleared the new freeze")
	}

	e.Close()
	if !f.scheduler.task(t, 1).stopped || e.State().Frozen {
		t.Error("Close did not cancel the freeze")
	}
}

func TestInventoryWatchFollowsStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.factory.subscriber = f.store

	e := f.factory.New("u1", nil)
	defer e.Close()

	f.stock(t, "u1", entities.FreezeTime, 3)

	deadline := time.Now().Add(2 * time.Second)
	for e.State().Inventory.Count(entities.FreezeTime) != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("inventory mirror = %v, want freeze_time 3", e.State().Inventory)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := e.UsePowerUp(ctx, entities.FreezeTime); err != nil {
		t.Fatalf("UsePowerUp() error = %v", err)
	}
	if n := f.remoteCount(t, "u1", entities.FreezeTime); n != 2 {
		t.Errorf("remote count = %d, want 2", n)
	}
}

func waitForCount(t *testing.T, e *QuizEngine, typ entities.PowerUpType, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.State().Inventory.Count(typ) != want {
		if time.Now().After(deadline) {
			t.Fatalf("inventory mirror = %v, want %s %d", e.State().Inventory, typ, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLastUnitSpentOnceAcrossEngines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FiftyFifty, 1)

	engines := []*QuizEngine{f.factory.New("u1", nil), f.factory.New("u1", nil)}
	for _, e := range engines {
		e.LoadQuestions(ctx, entities.QuizWeek1)
		if n := e.State().Inventory.Count(entities.FiftyFifty); n != 1 {
			t.Fatalf("mirror = %d, want 1", n)
		}
	}

	errs := make([]error, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.UsePowerUp(ctx, entities.FiftyFifty)
		}()
	}
	wg.Wait()

	used := 0
	for i, err := range errs {
		switch {
		case err == nil:
			used++
		case errors.Is(err, ErrNoInventory):
			if n := engines[i].State().Inventory.Count(entities.FiftyFifty); n != 0 {
				t.Errorf("refused engine mirror = %d, want 0", n)
			}
			if engines[i].State().FiftyFiftyUsed {
				t.Error("refused engine applied the effect")
			}
		default:
			t.Errorf("UsePowerUp() error = %v", err)
		}
	}
	if used != 1 {
		t.Fatalf("%d engines spent the last unit, want 1 (errors %v)", used, errs)
	}

	data, err := f.store.Get(ctx, repository.InventoryPath("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := docstore.Int64(data["fifty_fifty"]); n != 0 {
		t.Fatalf("stored count = %d, want 0", n)
	}

	// A purchase after the race must be visible.
	f.stock(t, "u1", entities.FiftyFifty, 1)
	if n := f.remoteCount(t, "u1", entities.FiftyFifty); n != 1 {
		t.Errorf("count after buying one = %d, want 1", n)
	}
}

func TestStaleMirrorIsCorrectedOnRefusal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock(t, "u1", entities.FreezeTime, 1)

	a := f.factory.New("u1", nil)
	b := f.factory.New("u1", nil)
	a.LoadQuestions(ctx, entities.QuizWeek1)
	b.LoadQuestions(ctx, entities.QuizWeek1)

	if err := a.UsePowerUp(ctx, entities.FreezeTime); err != nil {
		t.Fatalf("first UsePowerUp() error = %v", err)
	}
	if err := b.UsePowerUp(ctx, entities.FreezeTime); !errors.Is(err, ErrNoInventory) {
		t.Fatalf("second UsePowerUp() error = %v, want ErrNoInventory", err)
	}
	if st := b.State(); st.Frozen || st.Inventory.Count(entities.FreezeTime) != 0 {
		t.Errorf("refused engine State() = %+v", st)
	}
	if n := f.remoteCount(t, "u1", entities.FreezeTime); n != 0 {
		t.Errorf("remote count = %d, want 0", n)
	}
}

func TestWatchedMirrorRefusesAfterPeerSpends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.factory.subscriber = f.store

	a := f.factory.New("u1", nil)
	defer a.Close()
	b := f.factory.New("u1", nil)
	defer b.Close()

	f.stock(t, "u1", entities.ReverseTime, 1)
	waitForCount(t, a, entities.ReverseTime, 1)
	waitForCount(t, b, entities.ReverseTime, 1)

	a.SaveQuestionState(0, strPtr("joyful"), 5*time.Second, 10)
	if err := a.UsePowerUp(ctx, entities.ReverseTime); err != nil {
		t.Fatalf("UsePowerUp() error = %v", err)
	}

	waitForCount(t, b, entities.ReverseTime, 0)
	before := f.inventory.calls()

	if err := b.UsePowerUp(ctx, entities.ReverseTime); !errors.Is(err, ErrNoInventory) {
		t.Fatalf("UsePowerUp() error = %v, want ErrNoInventory", err)
	}
	if n := f.inventory.calls(); n != before {
		t.Errorf("refusal reached the store %d times", n-before)
	}
	if n := f.remoteCount(t, "u1", entities.ReverseTime); n != 0 {
		t.Errorf("remote count = %d, want 0", n)
	}
}

func TestClearAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e := f.factory.New("u1", nil)
	e.LoadQuestions(ctx, entities.QuizWeek1)
	q := e.Questions()[0]

	e.SubmitAnswer(0, q.CorrectAnswer)
	if e.CurrentScore() != entities.PointsPerCorrectAnswer {
		t.Fatalf("CurrentScore() = %d", e.CurrentScore())
	}

	e.ClearAnswer(0)
	if a, ok := e.Answer(0); ok {
		t.Errorf("Answer(0) = %q after ClearAnswer", a)
	}
	if e.CurrentScore() != 0 {
		t.Errorf("CurrentScore() = %d, want 0", e.CurrentScore())
	}
	e.ClearAnswer(5)
}
