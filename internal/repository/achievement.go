package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

var ErrAchievementNotFound = errors.New("achievement not found")

type achievementDoc struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Reward      int    `mapstructure:"reward"`
	Unlocked    bool   `mapstructure:"unlocked"`
	Claimed     bool   `mapstructure:"claimed"`
	UnlockedAt  int64  `mapstructure:"unlocked_at"`
	QuizID      string `mapstructure:"quiz_id"`
}

func achievementsPath(uid string) string {
	return docstore.Join(usersCollection, uid, "achievements")
}

func achievementPath(uid, id string) string {
	return docstore.Join(achievementsPath(uid), id)
}

// AchievementRepository stores per-user achievements.
type AchievementRepository struct {
	db     docstore.Tx
	lister docstore.Lister
}

func NewAchievementRepository(store docstore.Store) *AchievementRepository {
	return &AchievementRepository{db: store, lister: store}
}

// WithTx returns a repository whose reads and writes go through tx.
// List still reads committed data.
func (r *AchievementRepository) WithTx(tx docstore.Tx) *AchievementRepository {
	return &AchievementRepository{db: tx, lister: r.lister}
}

// EnsureTemplates creates every missing template achievement for the user.
func (r *AchievementRepository) EnsureTemplates(ctx context.Context, uid string) error {
	for _, tpl := range entities.AchievementTemplates() {
		_, err := r.db.Get(ctx, achievementPath(uid, tpl.ID))
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("get achievement %s: %w", tpl.ID, err)
		}
		if err := r.Save(ctx, uid, &tpl); err != nil {
			return err
		}
	}
	return nil
}

func (r *AchievementRepository) Get(ctx context.Context, uid, id string) (*entities.Achievement, error) {
	path := achievementPath(uid, id)
	data, err := r.db.Get(ctx, path)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, fmt.Errorf("get achievement: %w", err)
	}

	a, err := decodeAchievement(id, data)
	if err != nil {
		return nil, malformed(ErrAchievementNotFound, path, err)
	}
	return a, nil
}

// List returns the user's achievements ordered by id. Documents that fail to
// decode are skipped.
func (r *AchievementRepository) List(ctx context.Context, uid string) ([]*entities.Achievement, []error, error) {
	docs, err := r.lister.List(ctx, achievementsPath(uid))
	if err != nil {
		return nil, nil, fmt.Errorf("list achievements: %w", err)
	}

	var skipped []error
	out := make([]*entities.Achievement, 0, len(docs))
	for _, d := range docs {
		a, err := decodeAchievement(d.ID(), d.Data)
		if err != nil {
			skipped = append(skipped, malformed(ErrAchievementNotFound, d.Path, err))
			continue
		}
		out = append(out, a)
	}
	return out, skipped, nil
}

func (r *AchievementRepository) Save(ctx context.Context, uid string, a *entities.Achievement) error {
	doc := achievementDoc{
		Title:       a.Title,
		Description: a.Description,
		Reward:      a.Reward,
		Unlocked:    a.Unlocked,
		Claimed:     a.Claimed,
		QuizID:      string(a.QuizID),
	}
	if a.UnlockedAt != nil {
		doc.UnlockedAt = a.UnlockedAt.UnixMilli()
	}

	data, err := docstore.Encode(doc)
	if err != nil {
		return err
	}
	if err := r.db.Set(ctx, achievementPath(uid, a.ID), data); err != nil {
		return fmt.Errorf("save achievement %s: %w", a.ID, err)
	}
	return nil
}

func decodeAchievement(id string, data map[string]any) (*entities.Achievement, error) {
	var doc achievementDoc
	if err := docstore.Decode(data, &doc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.QuizID) == "" {
		return nil, errors.New("missing quiz_id")
	}

	a := &entities.Achievement{
		ID:          id,
		Title:       doc.Title,
		Description: doc.Description,
		Reward:      doc.Reward,
		Unlocked:    doc.Unlocked,
		Claimed:     doc.Claimed,
		QuizID:      entities.QuizID(doc.QuizID),
	}
	if doc.UnlockedAt != 0 {
		t := fromMillis(doc.UnlockedAt)
		a.UnlockedAt = &t
	}
	return a, nil
}
