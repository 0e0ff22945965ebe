package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/video"
)

// fiftyFiftyHidden is how many incorrect options the 50/50 power-up removes.
const fiftyFiftyHidden = 2

var speedSteps = []float64{1, 1.25, 1.5, 2, 0.75}

// buildQuizListKeyboard builds one button per quiz in the catalog.
func buildQuizListKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entities.QuizIDs))
	for _, id := range entities.QuizIDs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(id.Title(), buildQuizStartCallback(string(id))),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// visibleOptions returns the indexes of the options to show. With 50/50
// active it drops up to two incorrect options, always keeping the correct
// one and the incorrect option picked by the question id.
func visibleOptions(q entities.QuizQuestion, fiftyFifty bool) []int {
	all := make([]int, len(q.Options))
	for i := range q.Options {
		all[i] = i
	}
	if !fiftyFifty {
		return all
	}

	var incorrect []int
	for i, o := range q.Options {
		if o != q.CorrectAnswer {
			incorrect = append(incorrect, i)
		}
	}
	if len(incorrect) == 0 {
		return all
	}

	keep := incorrect[q.ID%len(incorrect)]
	hidden := make(map[int]bool, fiftyFiftyHidden)
	for _, i := range incorrect {
		if len(hidden) == fiftyFiftyHidden {
			break
		}
		if i != keep || len(incorrect) <= fiftyFiftyHidden {
			hidden[i] = true
		}
	}

	out := make([]int, 0, len(all)-len(hidden))
	for _, i := range all {
		if !hidden[i] {
			out = append(out, i)
		}
	}
	return out
}

// buildQuestionKeyboard builds answer buttons plus a power-up row.
func buildQuestionKeyboard(q entities.QuizQuestion, index int, fiftyFifty bool, inv entities.Inventory) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, i := range visibleOptions(q, fiftyFifty) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(q.Options[i], buildQuizAnswerCallback(index, i)),
		))
	}

	var powerUps []tgbotapi.InlineKeyboardButton
	for _, t := range entities.PowerUpTypes {
		label := fmt.Sprintf("%s %d", powerUpIcon(t), inv.Count(t))
		powerUps = append(powerUps, tgbotapi.NewInlineKeyboardButtonData(label, buildQuizPowerUpCallback(t.InventoryKey())))
	}
	rows = append(rows, powerUps)

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", buildQuizSkipCallback(index)),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildShopKeyboard builds a buy button per catalog item.
func buildShopKeyboard(items []entities.PowerUp) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items))
	for _, it := range items {
		label := fmt.Sprintf("%s Buy %s (%d)", powerUpIcon(it.Type), it.Name, it.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildShopBuyCallback(it.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildAchievementsKeyboard returns nil when nothing can be claimed.
func buildAchievementsKeyboard(list []*entities.Achievement) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range list {
		if !a.Claimable() {
			continue
		}
		label := fmt.Sprintf("🎁 Claim %d coins: %s", a.Reward, a.QuizID.Title())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildAchievementClaimCallback(a.ID)),
		))
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func buildWordKeyboard(wordID string, saved bool) tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("⭐ Save", buildWordCallback(wordSave, wordID))
	if saved {
		btn = tgbotapi.NewInlineKeyboardButtonData("✖️ Unsave", buildWordCallback(wordUnsave, wordID))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func buildLessonListKeyboard(lessons []entities.VideoLesson, completed func(string) bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(lessons))
	for _, l := range lessons {
		label := "🎬 " + l.Title
		if completed(l.ID) {
			label = "✅ " + l.Title
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildVideoCallback(videoOpen, l.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildVideoKeyboard builds the player controls for one session.
func buildVideoKeyboard(s video.Session, completed bool) tgbotapi.InlineKeyboardMarkup {
	play := tgbotapi.NewInlineKeyboardButtonData("▶️ Play", buildVideoCallback(videoPlay, s.VideoID))
	if s.IsPlaying {
		play = tgbotapi.NewInlineKeyboardButtonData("⏸ Pause", buildVideoCallback(videoPause, s.VideoID))
	}
	mute := "🔇 Mute"
	if s.Muted {
		mute = "🔊 Unmute"
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			play,
			tgbotapi.NewInlineKeyboardButtonData(mute, buildVideoCallback(videoMute, s.VideoID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏩ %gx", nextSpeed(s.Speed)), buildVideoCallback(videoSpeed, s.VideoID)),
		),
	}
	if !completed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark as watched", buildVideoCallback(videoDone, s.VideoID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Close", buildVideoCallback(videoRelease, s.VideoID)),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// nextSpeed cycles through speedSteps.
func nextSpeed(current float64) float64 {
	for i, s := range speedSteps {
		if s == current {
			return speedSteps[(i+1)%len(speedSteps)]
		}
	}
	return speedSteps[0]
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

func newHTMLEdit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) tgbotapi.EditMessageTextConfig {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	return edit
}
