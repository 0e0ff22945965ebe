package repository

import (
	"fmt"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
)

// QuestionRepository serves the static question bank.
type QuestionRepository struct {
	bank map[entities.QuizID][]entities.QuizQuestion
}

// NewQuestionRepository loads the embedded bank and checks that every quiz
// in the catalog has questions whose correct answer is one of the options.
func NewQuestionRepository() (*QuestionRepository, error) {
	var raw map[string][]entities.QuizQuestion
	if err := loadAsset("quizzes.json", &raw); err != nil {
		return nil, err
	}

	bank := make(map[entities.QuizID][]entities.QuizQuestion, len(raw))
	for id, questions := range raw {
		quizID := entities.QuizID(id)
		if !quizID.Known() {
			return nil, fmt.Errorf("unknown quiz %q in question bank", id)
		}
		for _, q := range questions {
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("quiz %s: %w", id, err)
			}
		}
		bank[quizID] = questions
	}

	for _, id := range entities.QuizIDs {
		if len(bank[id]) == 0 {
			return nil, fmt.Errorf("quiz %s has no questions", id)
		}
	}

	return &QuestionRepository{bank: bank}, nil
}

// QuestionsForLesson returns the ordered questions of a quiz. Unknown ids
// yield an empty list. The result is a copy.
func (r *QuestionRepository) QuestionsForLesson(quizID entities.QuizID) []entities.QuizQuestion {
	src := r.bank[quizID]
	out := make([]entities.QuizQuestion, len(src))
	for i, q := range src {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
