package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

type quizResultDoc struct {
	QuizID         string `mapstructure:"quiz_id"`
	TotalQuestions int    `mapstructure:"total_questions"`
	CorrectAnswers int    `mapstructure:"correct_answers"`
	Score          int    `mapstructure:"score"`
	CompletedAt    int64  `mapstructure:"completed_at"`
}

func quizResultsPath(uid string) string {
	return docstore.Join(usersCollection, uid, "quizResults")
}

// QuizResultRepository stores completed quiz results.
type QuizResultRepository struct {
	store docstore.Store
}

func NewQuizResultRepository(store docstore.Store) *QuizResultRepository {
	return &QuizResultRepository{store: store}
}

// Save stores the result under a fresh id and returns it.
func (r *QuizResultRepository) Save(ctx context.Context, uid string, result entities.QuizResult, completedAt time.Time) (string, error) {
	id := uuid.NewString()
	data, err := docstore.Encode(quizResultDoc{
		QuizID:         string(result.QuizID),
		TotalQuestions: result.TotalQuestions,
		CorrectAnswers: result.CorrectAnswers,
		Score:          result.Score,
		CompletedAt:    completedAt.UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	if err := r.store.Set(ctx, docstore.Join(quizResultsPath(uid), id), data); err != nil {
		return "", fmt.Errorf("save quiz result: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's attempts, newest first. Malformed documents are skipped.
func (r *QuizResultRepository) ListByUser(ctx context.Context, uid string) ([]entities.QuizAttempt, error) {
	docs, err := r.store.List(ctx, quizResultsPath(uid))
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}

	out := make([]entities.QuizAttempt, 0, len(docs))
	for _, d := range docs {
		var doc quizResultDoc
		if err := docstore.Decode(d.Data, &doc); err != nil {
			continue
		}
		out = append(out, entities.QuizAttempt{
			ID: d.ID(),
			Result: entities.QuizResult{
				TotalQuestions: doc.TotalQuestions,
				CorrectAnswers: doc.CorrectAnswers,
				Score:          doc.Score,
				QuizID:         entities.QuizID(doc.QuizID),
			},
			CompletedAt: fromMillis(doc.CompletedAt),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}
