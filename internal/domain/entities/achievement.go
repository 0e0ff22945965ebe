package entities

import (
	"fmt"
	"time"
)

// PerfectScoreReward is the currency granted when a perfect-score achievement is claimed.
const PerfectScoreReward = 50

// Achievement is a per-user reward unlocked by a perfect score on one quiz.
// Unlocked and Claimed only ever go from false to true.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Reward      int
	Unlocked    bool
	Claimed     bool
	UnlockedAt  *time.Time
	QuizID      QuizID
}

// AchievementIDFor returns the id of the achievement tied to a quiz.
func AchievementIDFor(quizID QuizID) string {
	return "perfect_" + string(quizID)
}

// AchievementTemplates returns the fixed achievement set every user starts with.
func AchievementTemplates() []Achievement {
	out := make([]Achievement, 0, len(QuizIDs))
	for _, id := range QuizIDs {
		out = append(out, Achievement{
			ID:          AchievementIDFor(id),
			Title:       "Perfect: " + id.Title(),
			Description: fmt.Sprintf("Score %d on %q.", PerfectScore, id.Title()),
			Reward:      PerfectScoreReward,
			QuizID:      id,
		})
	}
	return out
}

// Unlock marks the achievement unlocked. It returns false if it already was.
func (a *Achievement) Unlock(now time.Time) bool {
	if a.Unlocked {
		return false
	}
	a.Unlocked = true
	a.UnlockedAt = &now
	return true
}

// Claimable reports whether the reward can still be collected.
func (a *Achievement) Claimable() bool {
	return a.Unlocked && !a.Claimed
}
