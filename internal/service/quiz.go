package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/event"
	"github.com/NOTMORSE-PROG/vocanova/internal/metrics"
	"github.com/NOTMORSE-PROG/vocanova/internal/repository"
)

var (
	ErrNoInventory    = errors.New("no power-ups of this type left")
	ErrRemoteUpdate   = errors.New("remote inventory update failed")
	ErrNoHistory      = errors.New("no previous question to go back to")
	ErrUnknownPowerUp = errors.New("unknown power-up")
)

const (
	DefaultFreezeDuration    = 10 * time.Second
	DefaultReverseAnimation  = 1500 * time.Millisecond
	inventoryWatchMaxRetries = 1
)

// QuizStatus is the lifecycle state of a QuizEngine.
type QuizStatus int

const (
	QuizIdle QuizStatus = iota
	QuizLoaded
	QuizInProgress
	QuizCompleted
)

func (s QuizStatus) String() string {
	switch s {
	case QuizIdle:
		return "idle"
	case QuizLoaded:
		return "loaded"
	case QuizInProgress:
		return "in_progress"
	case QuizCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// PowerUpInventory reads inventories and spends units against the stored
// count. Spend refuses with ErrNoInventory, returning the stored count, when
// nothing is left.
type PowerUpInventory interface {
	Get(ctx context.Context, uid string) (entities.Inventory, error)
	Spend(ctx context.Context, uid string, t entities.PowerUpType) (int, error)
	Refund(ctx context.Context, uid string, t entities.PowerUpType) (int, error)
}

// QuizState is a read-only view of an engine for rendering.
type QuizState struct {
	Status           QuizStatus
	QuizID           entities.QuizID
	Title            string
	TotalQuestions   int
	Frozen           bool
	FiftyFiftyUsed   bool
	CanGoBack        bool
	Animating        bool
	ReverseTimeCount int
	Inventory        entities.Inventory
}

// QuizConfig sets the power-up windows. Zero values fall back to the defaults.
type QuizConfig struct {
	FreezeDuration   time.Duration
	ReverseAnimation time.Duration
}

// QuizEngineFactory holds the dependencies shared by every engine.
type QuizEngineFactory struct {
	questions    QuestionRepository
	inventory    PowerUpInventory
	results      QuizResultRepository
	currency     CurrencyAwarder
	achievements AchievementChecker
	publisher    EventPublisher
	scheduler    Scheduler
	subscriber   docstore.Subscriber
	metrics      *metrics.Metrics
	cfg          QuizConfig
	logger       *zap.Logger
}

// QuizEngineOption configures a QuizEngineFactory.
type QuizEngineOption func(*QuizEngineFactory)

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) QuizEngineOption {
	return func(f *QuizEngineFactory) { f.scheduler = s }
}

// WithInventoryWatch keeps each engine's inventory mirror in sync with the store.
func WithInventoryWatch(sub docstore.Subscriber) QuizEngineOption {
	return func(f *QuizEngineFactory) { f.subscriber = sub }
}

// WithQuizMetrics records power-up use and quiz completions.
func WithQuizMetrics(m *metrics.Metrics) QuizEngineOption {
	return func(f *QuizEngineFactory) { f.metrics = m }
}

func NewQuizEngineFactory(
	questions QuestionRepository,
	inventory PowerUpInventory,
	results QuizResultRepository,
	currency CurrencyAwarder,
	achievements AchievementChecker,
	publisher EventPublisher,
	cfg QuizConfig,
	logger *zap.Logger,
	opts ...QuizEngineOption,
) *QuizEngineFactory {
	if cfg.FreezeDuration <= 0 {
		cfg.FreezeDuration = DefaultFreezeDuration
	}
	if cfg.ReverseAnimation <= 0 {
		cfg.ReverseAnimation = DefaultReverseAnimation
	}

	f := &QuizEngineFactory{
		questions:    questions,
		inventory:    inventory,
		results:      results,
		currency:     currency,
		achievements: achievements,
		publisher:    publisher,
		scheduler:    RealScheduler{},
		cfg:          cfg,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New creates an idle engine for one user. refresh renews the user's
// credentials when the inventory subscription is rejected; it may be nil.
func (f *QuizEngineFactory) New(uid string, refresh docstore.RefreshFunc) *QuizEngine {
	e := &QuizEngine{
		f:         f,
		uid:       uid,
		logger:    f.logger.With(zap.String("uid", uid)),
		answers:   make(map[int]string),
		inventory: make(entities.Inventory),
	}

	if f.subscriber != nil {
		ctx, cancel := context.WithCancel(context.Background())
		e.stopWatch = cancel
		go e.watchInventory(ctx, refresh)
	}

	return e
}

type pendingTimer struct {
	seq  uint64
	stop func() bool
}

// QuizEngine drives one quiz session from load to result. It is safe for
// concurrent use.
type QuizEngine struct {
	f      *QuizEngineFactory
	uid    string
	logger *zap.Logger

	mu           sync.Mutex
	status       QuizStatus
	quizID       entities.QuizID
	title        string
	questions    []entities.QuizQuestion
	answers      map[int]string
	history      []entities.QuestionState
	fiftyFifty   bool
	frozen       bool
	animating    bool
	canGoBack    bool
	reverseCount int
	inventory    entities.Inventory
	freezeTimer  pendingTimer
	reverseTimer pendingTimer

	sideEffects sync.WaitGroup
	stopWatch   context.CancelFunc
}

// LoadQuestions starts a new session for quizID, discarding the previous
// one. Unknown ids load an empty quiz with the fallback title.
func (e *QuizEngine) LoadQuestions(ctx context.Context, quizID entities.QuizID) {
	e.mu.Lock()
	e.cancelTimersLocked()
	e.answers = make(map[int]string)
	e.history = nil
	e.fiftyFifty = false
	e.canGoBack = false
	e.reverseCount = 0

	e.quizID = quizID
	e.title = quizID.Title()
	e.questions = e.f.questions.QuestionsForLesson(quizID)
	e.status = QuizLoaded
	e.mu.Unlock()

	inv, err := e.f.inventory.Get(ctx, e.uid)
	if err != nil {
		e.logger.Warn("failed to load inventory", zap.Error(err))
		return
	}
	e.mu.Lock()
	e.inventory = inv
	e.mu.Unlock()
}

// Questions returns a copy of the loaded questions.
func (e *QuizEngine) Questions() []entities.QuizQuestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]entities.QuizQuestion(nil), e.questions...)
}

// SubmitAnswer records or overwrites the answer for index. The answer is
// not checked against the options.
func (e *QuizEngine) SubmitAnswer(index int, answer string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.answers[index] = answer
	if e.status == QuizLoaded {
		e.status = QuizInProgress
	}
}

// ClearAnswer forgets the answer for index, as if it had been skipped.
func (e *QuizEngine) ClearAnswer(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.answers, index)
}

// Answer returns the recorded answer for index.
func (e *QuizEngine) Answer(index int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.answers[index]
	return a, ok
}

// SaveQuestionState pushes a snapshot. Call it right before advancing past
// a question.
func (e *QuizEngine) SaveQuestionState(index int, selected *string, remaining time.Duration, score int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sel *string
	if selected != nil {
		s := *selected
		sel = &s
	}
	e.history = append(e.history, entities.QuestionState{
		QuestionIndex:  index,
		SelectedAnswer: sel,
		TimeRemaining:  remaining,
		Score:          score,
	})
	e.reverseCount = len(e.history)
	if e.status == QuizLoaded {
		e.status = QuizInProgress
	}
}

// PreviousQuestionState pops the latest snapshot. ok is false when the
// history is empty.
func (e *QuizEngine) PreviousQuestionState() (entities.QuestionState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.history)
	if n == 0 {
		e.canGoBack = false
		return entities.QuestionState{}, false
	}

	st := e.history[n-1]
	e.history = e.history[:n-1]
	e.reverseCount = len(e.history)
	if len(e.history) == 0 {
		e.canGoBack = false
	}
	return st, true
}

// CurrentScore is the score of the answers recorded so far.
func (e *QuizEngine) CurrentScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.correctLocked() * entities.PointsPerCorrectAnswer
}

// CalculateResult scores the recorded answers. Crediting currency, checking
// achievements and storing the result happen in the background and never
// change the returned result; Wait blocks until they finish.
func (e *QuizEngine) CalculateResult(ctx context.Context, quizID entities.QuizID) entities.QuizResult {
	e.mu.Lock()
	result := entities.NewQuizResult(len(e.questions), e.correctLocked(), quizID)
	e.status = QuizCompleted
	e.mu.Unlock()

	e.sideEffects.Add(1)
	go func() {
		defer e.sideEffects.Done()
		e.applyResult(context.WithoutCancel(ctx), result)
	}()

	return result
}

func (e *QuizEngine) correctLocked() int {
	correct := 0
	for i, q := range e.questions {
		if a, ok := e.answers[i]; ok && q.IsCorrect(a) {
			correct++
		}
	}
	return correct
}

func (e *QuizEngine) applyResult(ctx context.Context, result entities.QuizResult) {
	log := e.logger.With(zap.String("quiz_id", string(result.QuizID)))

	if earned := result.CurrencyEarned(); earned > 0 {
		if err := e.f.currency.AwardCurrency(ctx, e.uid, earned); err != nil {
			log.Error("failed to credit currency", zap.Int("amount", earned), zap.Error(err))
		}
	}

	if _, err := e.f.achievements.CheckPerfectScore(ctx, e.uid, result); err != nil {
		log.Error("failed to check achievements", zap.Error(err))
	}

	if _, err := e.f.results.Save(ctx, e.uid, result, time.Now().UTC()); err != nil {
		log.Error("failed to save quiz result", zap.Error(err))
	}

	ev := event.New(event.QuizCompleted, e.uid, map[string]any{
		"quiz_id":         string(result.QuizID),
		"score":           result.Score,
		"correct_answers": result.CorrectAnswers,
		"total_questions": result.TotalQuestions,
	})
	if err := e.f.publisher.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish quiz event", zap.Error(err))
	}

	e.f.metrics.QuizCompleted(string(result.QuizID), result.Score)
}

// Wait blocks until background result processing has finished.
func (e *QuizEngine) Wait() {
	e.sideEffects.Wait()
}

// UsePowerUp spends one unit of t and applies its effect. The unit is taken
// from the stored inventory before the effect applies, so a failed remote
// call changes nothing. A stored count of zero refuses with ErrNoInventory
// even when the local mirror was stale, and the mirror is corrected. Reverse
// time with an empty history refunds the unit and returns ErrNoHistory.
func (e *QuizEngine) UsePowerUp(ctx context.Context, t entities.PowerUpType) error {
	key := t.InventoryKey()
	if key == "" {
		return ErrUnknownPowerUp
	}

	e.mu.Lock()
	owned := e.inventory[key]
	e.mu.Unlock()
	if owned <= 0 {
		e.f.metrics.PowerUpUsed(t.String(), "no_inventory")
		return ErrNoInventory
	}

	left, err := e.f.inventory.Spend(ctx, e.uid, t)
	if err != nil {
		if errors.Is(err, ErrNoInventory) {
			e.setCount(key, left)
			e.f.metrics.PowerUpUsed(t.String(), "no_inventory")
			return ErrNoInventory
		}
		e.f.metrics.PowerUpUsed(t.String(), "remote_error")
		return fmt.Errorf("%w: %w", ErrRemoteUpdate, err)
	}

	e.mu.Lock()
	e.inventory[key] = left
	if t == entities.ReverseTime && len(e.history) == 0 {
		e.mu.Unlock()
		return e.refund(ctx, t)
	}

	switch t {
	case entities.FreezeTime:
		e.frozen = true
		e.scheduleLocked(&e.freezeTimer, e.f.cfg.FreezeDuration, func() { e.frozen = false })
	case entities.FiftyFifty:
		e.fiftyFifty = true
	case entities.ReverseTime:
		e.canGoBack = true
		e.animating = true
		e.scheduleLocked(&e.reverseTimer, e.f.cfg.ReverseAnimation, func() { e.animating = false })
	}
	e.mu.Unlock()

	e.f.metrics.PowerUpUsed(t.String(), "ok")
	e.logger.Debug("power-up used", zap.String("type", t.String()), zap.Int("left", left))
	return nil
}

func (e *QuizEngine) refund(ctx context.Context, t entities.PowerUpType) error {
	e.f.metrics.PowerUpUsed(t.String(), "refunded")

	owned, err := e.f.inventory.Refund(ctx, e.uid, t)
	if err != nil {
		// The unit stays spent on both sides.
		e.logger.Error("failed to refund power-up", zap.String("type", t.String()), zap.Error(err))
		return errors.Join(ErrNoHistory, fmt.Errorf("%w: refund: %w", ErrRemoteUpdate, err))
	}
	e.setCount(t.InventoryKey(), owned)
	return ErrNoHistory
}

func (e *QuizEngine) setCount(key string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inventory[key] = n
}

func (e *QuizEngine) scheduleLocked(t *pendingTimer, d time.Duration, clear func()) {
	e.cancelTimerLocked(t)
	seq := t.seq
	t.stop = e.f.scheduler.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if t.seq != seq {
			return
		}
		t.stop = nil
		clear()
	})
}

func (e *QuizEngine) cancelTimerLocked(t *pendingTimer) {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.seq++
}

func (e *QuizEngine) cancelTimersLocked() {
	e.cancelTimerLocked(&e.freezeTimer)
	e.cancelTimerLocked(&e.reverseTimer)
	e.frozen = false
	e.animating = false
}

// State returns a snapshot of the session for rendering.
func (e *QuizEngine) State() QuizState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return QuizState{
		Status:           e.status,
		QuizID:           e.quizID,
		Title:            e.title,
		TotalQuestions:   len(e.questions),
		Frozen:           e.frozen,
		FiftyFiftyUsed:   e.fiftyFifty,
		CanGoBack:        e.canGoBack,
		Animating:        e.animating,
		ReverseTimeCount: e.reverseCount,
		Inventory:        e.inventory.Clone(),
	}
}

// Close cancels pending timers and the inventory subscription. Background
// result processing is not interrupted.
func (e *QuizEngine) Close() {
	e.mu.Lock()
	e.cancelTimersLocked()
	e.mu.Unlock()

	if e.stopWatch != nil {
		e.stopWatch()
	}
}

func (e *QuizEngine) watchInventory(ctx context.Context, refresh docstore.RefreshFunc) {
	opts := []docstore.WatcherOption{
		docstore.WithMaxRetries(inventoryWatchMaxRetries),
		docstore.WithLogger(e.logger),
	}
	if refresh != nil {
		opts = append(opts, docstore.WithRefresh(refresh))
	}

	w := docstore.NewWatcher(e.f.subscriber, repository.InventoryPath(e.uid), opts...)
	err := w.Run(ctx, func(s docstore.Snapshot) {
		inv := repository.DecodeInventory(s.Data)
		e.mu.Lock()
		e.inventory = inv
		e.mu.Unlock()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("inventory subscription stopped", zap.Error(err), zap.String("state", w.State().String()))
	}
}
