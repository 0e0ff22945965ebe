package entities

import "time"

const (
	// PointsPerCorrectAnswer is the score awarded for every correct answer.
	PointsPerCorrectAnswer = 10
	// PerfectScore is the only score that unlocks a quiz achievement.
	PerfectScore = 100
	// FallbackQuizTitle is shown for quiz ids that are not in the catalog.
	FallbackQuizTitle = "Vocabulary Quiz"
)

// QuizID identifies a quiz in the catalog.
type QuizID string

const (
	QuizWeek1 QuizID = "week1"
	QuizWeek2 QuizID = "week2"
	QuizWeek3 QuizID = "week3"
	QuizWeek4 QuizID = "week4"
)

// QuizIDs lists every quiz in the catalog, in display order.
var QuizIDs = []QuizID{QuizWeek1, QuizWeek2, QuizWeek3, QuizWeek4}

// Title returns the display title of the quiz, or FallbackQuizTitle for unknown ids.
func (id QuizID) Title() string {
	switch id {
	case QuizWeek1:
		return "Week 1: Everyday Synonyms"
	case QuizWeek2:
		return "Week 2: Opposites Attract"
	case QuizWeek3:
		return "Week 3: Academic Words"
	case QuizWeek4:
		return "Week 4: Mixed Review"
	default:
		return FallbackQuizTitle
	}
}

// Known reports whether the id belongs to the catalog.
func (id QuizID) Known() bool {
	switch id {
	case QuizWeek1, QuizWeek2, QuizWeek3, QuizWeek4:
		return true
	default:
		return false
	}
}

// QuestionState is a snapshot taken right before the user advances past a question.
type QuestionState struct {
	QuestionIndex  int
	SelectedAnswer *string // nil when the question was skipped
	TimeRemaining  time.Duration
	Score          int
}

// QuizResult is the outcome of a completed quiz.
type QuizResult struct {
	TotalQuestions int    `json:"total_questions"`
	CorrectAnswers int    `json:"correct_answers"`
	Score          int    `json:"score"`
	QuizID         QuizID `json:"quiz_id"`
}

// NewQuizResult builds a result, deriving the score from the correct answers.
func NewQuizResult(total, correct int, quizID QuizID) QuizResult {
	return QuizResult{
		TotalQuestions: total,
		CorrectAnswers: correct,
		Score:          correct * PointsPerCorrectAnswer,
		QuizID:         quizID,
	}
}

// CurrencyEarned is the amount of currency a result is worth.
func (r QuizResult) CurrencyEarned() int {
	return r.Score / 10
}

// IsPerfect reports whether the result unlocks the quiz achievement.
func (r QuizResult) IsPerfect() bool {
	return r.Score == PerfectScore
}

// QuizAttempt is a stored QuizResult.
type QuizAttempt struct {
	ID          string
	Result      QuizResult
	CompletedAt time.Time
}
