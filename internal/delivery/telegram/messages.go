// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/service"
	"github.com/NOTMORSE-PROG/vocanova/internal/video"
)

// General messages.
const (
	msgWelcome = "👋 <b>Welcome to VocaNova!</b>\n\n" +
		"Build your vocabulary with a word of the day, weekly quizzes and short video lessons.\n\n" +
		"Create an account with /signup <i>Name email password</i> or sign in with /login <i>email password</i>."
	msgHelp = "<b>Commands</b>\n\n" +
		"/word — word of the day\n" +
		"/saved — your saved words\n" +
		"/quiz — take a quiz\n" +
		"/video — video lessons\n" +
		"/shop — buy power-ups\n" +
		"/balance — coins and power-ups\n" +
		"/achievements — your achievements\n" +
		"/history — past quiz results\n\n" +
		"/signup, /login, /logout, /reset, /newpassword — account"
	msgUnknownCommand = "Unknown command. Send /help to see what I can do."
	msgInternalError  = "Something went wrong. Please try again later."
)

// Auth messages.
const (
	msgUseSignup      = "Usage: /signup <i>Name email password</i>"
	msgUseLogin       = "Usage: /login <i>email password</i>"
	msgUseReset       = "Usage: /reset <i>email</i>"
	msgUseNewPassword = "Usage: /newpassword <i>code password</i>"
	msgSignedOut      = "You are signed out."
	msgResetSent      = "If an account exists for this email, a reset code is on its way."
	msgPasswordReset  = "Your password has been changed. Sign in with /login."
	msgLoginRequired  = "Please sign in first with /login or create an account with /signup."
)

// Feature messages.
const (
	msgChooseQuiz      = "🎯 <b>Choose a quiz</b>"
	msgNoQuestions     = "This quiz has no questions yet."
	msgQuizExpired     = "This quiz is no longer active. Start a new one with /quiz."
	msgStaleQuestion   = "This question is no longer active."
	msgTimeUp          = "⏰ Time is up"
	msgNoSavedWords    = "You have not saved any words yet. Use /word and tap ⭐ Save."
	msgNoHistory       = "No quiz results yet. Take one with /quiz."
	msgNoAchievements  = "No achievements yet."
	msgChooseVideo     = "🎬 <b>Video lessons</b>"
	msgVideoClosed     = "Video closed."
	msgVideoKept       = "Paused. Your position is kept."
	msgUnknownItem     = "This item is no longer available."
	msgNotEnoughCoins  = "Not enough coins."
	msgAlreadyClaimed  = "Reward already collected."
	msgNotUnlocked     = "Score 100 on the quiz to unlock this reward."
	msgNoPowerUpLeft   = "You have none left. Buy more in /shop."
	msgNothingToRewind = "There is no previous question yet. The power-up was returned."
	msgPowerUpFailed   = "Could not use the power-up. Please try again."
	msgWordSaved       = "Saved ⭐"
	msgWordUnsaved     = "Removed from saved words"
	msgLessonDone      = "Lesson completed"
)

func formatSignedIn(acc string) string {
	return fmt.Sprintf("✅ Signed in as <b>%s</b>. Send /help to get started.", html.EscapeString(acc))
}

func formatWord(w entities.Word) string {
	var sb strings.Builder
	sb.WriteString("📖 <b>Word of the day</b>\n\n")
	fmt.Fprintf(&sb, "<b>%s</b>\n%s\n", html.EscapeString(w.Term), html.EscapeString(w.Definition))
	if w.Example != "" {
		fmt.Fprintf(&sb, "\n<i>%s</i>\n", html.EscapeString(w.Example))
	}
	if len(w.Synonyms) > 0 {
		fmt.Fprintf(&sb, "\n<b>Synonyms:</b> %s", html.EscapeString(strings.Join(w.Synonyms, ", ")))
	}
	if len(w.Antonyms) > 0 {
		fmt.Fprintf(&sb, "\n<b>Antonyms:</b> %s", html.EscapeString(strings.Join(w.Antonyms, ", ")))
	}
	return sb.String()
}

func formatSavedWords(words []entities.SavedWord) string {
	if len(words) == 0 {
		return msgNoSavedWords
	}

	var sb strings.Builder
	sb.WriteString("⭐ <b>Saved words</b>\n\n")
	for _, w := range words {
		fmt.Fprintf(&sb, "• %s <i>(%s)</i>\n", html.EscapeString(w.Term), w.SavedAt.UTC().Format("Jan 2"))
	}
	return sb.String()
}

func formatBalance(u *entities.User, inv entities.Inventory) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b>\n\n", html.EscapeString(u.Name))
	fmt.Fprintf(&sb, "💰 Coins: <b>%d</b>\n", u.Currency)
	fmt.Fprintf(&sb, "🎬 Lessons completed: <b>%d</b>\n\n", len(u.CompletedLessons))
	sb.WriteString("<b>Power-ups</b>\n")
	for _, t := range entities.PowerUpTypes {
		fmt.Fprintf(&sb, "%s %s: %d\n", powerUpIcon(t), powerUpName(t), inv.Count(t))
	}
	return sb.String()
}

func formatShop(items []entities.PowerUp, balance int) string {
	var sb strings.Builder
	sb.WriteString("🛒 <b>Shop</b>\n\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "%s <b>%s</b> — %d coins\n%s\n\n",
			powerUpIcon(it.Type), html.EscapeString(it.Name), it.Price, html.EscapeString(it.Description))
	}
	fmt.Fprintf(&sb, "💰 Your coins: <b>%d</b>", balance)
	return sb.String()
}

func formatAchievements(list []*entities.Achievement) string {
	if len(list) == 0 {
		return msgNoAchievements
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Achievements</b>\n\n")
	for _, a := range list {
		status := "🔒"
		switch {
		case a.Claimed:
			status = "✅"
		case a.Unlocked:
			status = "🎁"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> (+%d)\n%s\n\n",
			status, html.EscapeString(a.Title), a.Reward, html.EscapeString(a.Description))
	}
	return sb.String()
}

func formatHistory(attempts []entities.QuizAttempt) string {
	if len(attempts) == 0 {
		return msgNoHistory
	}

	var sb strings.Builder
	sb.WriteString("📜 <b>Quiz history</b>\n\n")
	for _, a := range attempts {
		fmt.Fprintf(&sb, "%s — %s: %d/%d, score %d\n",
			a.CompletedAt.UTC().Format("Jan 2 15:04"),
			html.EscapeString(a.Result.QuizID.Title()),
			a.Result.CorrectAnswers,
			a.Result.TotalQuestions,
			a.Result.Score,
		)
	}
	return sb.String()
}

// formatQuestion renders the current question of a run.
func formatQuestion(st service.QuizState, q entities.QuizQuestion, index, score int, remaining time.Duration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 <b>%s</b>\n", html.EscapeString(st.Title))
	fmt.Fprintf(&sb, "Question %d/%d · Score %d\n", index+1, st.TotalQuestions, score)

	timer := fmt.Sprintf("⏱ %ds", int(remaining.Round(time.Second)/time.Second))
	if st.Frozen {
		timer += " ❄️ frozen"
	}
	sb.WriteString(timer + "\n")
	if st.Animating {
		sb.WriteString("⏪ Rewinding...\n")
	}

	fmt.Fprintf(&sb, "\n<b>%s</b>", html.EscapeString(q.Prompt))
	return sb.String()
}

func formatQuizResult(r entities.QuizResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 <b>%s</b> finished!\n\n", html.EscapeString(r.QuizID.Title()))
	fmt.Fprintf(&sb, "Correct answers: <b>%d/%d</b>\n", r.CorrectAnswers, r.TotalQuestions)
	fmt.Fprintf(&sb, "Score: <b>%d</b>\n", r.Score)
	if earned := r.CurrencyEarned(); earned > 0 {
		fmt.Fprintf(&sb, "💰 +%d coins\n", earned)
	}
	if r.Score == entities.PerfectScore {
		sb.WriteString("\n🏆 Perfect score! Collect your reward in /achievements.")
	}
	return sb.String()
}

func formatAnswerFeedback(q entities.QuizQuestion, answer *string) string {
	switch {
	case answer == nil:
		return msgTimeUp + ". Answer: " + q.CorrectAnswer
	case q.IsCorrect(*answer):
		return "✅ Correct!"
	default:
		return "❌ The answer was " + q.CorrectAnswer
	}
}

func formatVideo(l entities.VideoLesson, s video.Session, completed bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 <b>%s</b>\n\n", html.EscapeString(l.Title))

	state := "⏸ Paused"
	if s.IsPlaying {
		state = "▶️ Playing"
	}
	fmt.Fprintf(&sb, "%s at %s · %gx", state, formatPosition(s.Position), s.Speed)
	if s.Muted {
		sb.WriteString(" · 🔇")
	}
	sb.WriteString("\n")

	if completed {
		sb.WriteString("\n✅ Completed")
	} else {
		fmt.Fprintf(&sb, "\nReward for completing: %d coins", l.Reward)
	}
	return sb.String()
}

func formatPosition(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}

func powerUpIcon(t entities.PowerUpType) string {
	switch t {
	case entities.FreezeTime:
		return "❄️"
	case entities.FiftyFifty:
		return "✂️"
	case entities.ReverseTime:
		return "⏪"
	default:
		return "❔"
	}
}

func powerUpName(t entities.PowerUpType) string {
	switch t {
	case entities.FreezeTime:
		return "Freeze time"
	case entities.FiftyFifty:
		return "50/50"
	case entities.ReverseTime:
		return "Reverse time"
	default:
		return "Unknown"
	}
}
