package entities

import (
	"errors"
	"fmt"
)

var ErrCorrectAnswerNotInOptions = errors.New("correct answer is not one of the options")

// Category tags the kind of relation a question asks about.
type Category string

const (
	CategorySynonym Category = "synonym"
	CategoryAntonym Category = "antonym"
)

// QuizQuestion is a multiple-choice question from the static question bank.
// It is built once per quiz load and never mutated.
type QuizQuestion struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Category      Category `json:"category"`
}

// IsCorrect reports whether answer matches the correct answer exactly.
func (q QuizQuestion) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// Validate checks that the correct answer is one of the options.
func (q QuizQuestion) Validate() error {
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("question %d: %w", q.ID, ErrCorrectAnswerNotInOptions)
}

// IncorrectOptions returns the options that are not the correct answer, in order.
func (q QuizQuestion) IncorrectOptions() []string {
	out := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if o != q.CorrectAnswer {
			out = append(out, o)
		}
	}
	return out
}
