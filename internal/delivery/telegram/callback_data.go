package telegram

import (
	"strconv"
	"strings"
)

// Callback action constants.
const (
	actionQuiz        = "quiz"
	actionShop        = "shop"
	actionAchievement = "ach"
	actionWord        = "word"
	actionVideo       = "video"
)

// Quiz sub-actions.
const (
	quizStart   = "start"
	quizAnswer  = "ans"
	quizSkip    = "skip"
	quizPowerUp = "pu"
)

const (
	shopBuy          = "buy"
	achievementClaim = "claim"
)

const (
	wordSave   = "save"
	wordUnsave = "unsave"
)

// Video sub-actions.
const (
	videoOpen    = "open"
	videoPlay    = "play"
	videoPause   = "pause"
	videoMute    = "mute"
	videoSpeed   = "speed"
	videoDone    = "done"
	videoRelease = "release"
)

// callbackData represents structured callback data.
type callbackData struct {
	Action string
	Params []string
	Raw    string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// param returns the i-th parameter or an empty string.
func (cd callbackData) param(i int) string {
	if i < 0 || i >= len(cd.Params) {
		return ""
	}
	return cd.Params[i]
}

// intParam parses the i-th parameter as a non-negative int.
func (cd callbackData) intParam(i int) (int, bool) {
	n, err := strconv.Atoi(cd.param(i))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")
	if len(parts) == 0 || parts[0] == "" {
		return callbackData{Raw: data}
	}

	return callbackData{
		Action: parts[0],
		Params: parts[1:],
		Raw:    data,
	}
}

func buildQuizStartCallback(quizID string) string {
	return callbackData{Action: actionQuiz, Params: []string{quizStart, quizID}}.encode()
}

// buildQuizAnswerCallback builds callback data for answering question index with option opt.
func buildQuizAnswerCallback(index, opt int) string {
	return callbackData{
		Action: actionQuiz,
		Params: []string{quizAnswer, strconv.Itoa(index), strconv.Itoa(opt)},
	}.encode()
}

func buildQuizSkipCallback(index int) string {
	return callbackData{Action: actionQuiz, Params: []string{quizSkip, strconv.Itoa(index)}}.encode()
}

func buildQuizPowerUpCallback(key string) string {
	return callbackData{Action: actionQuiz, Params: []string{quizPowerUp, key}}.encode()
}

func buildShopBuyCallback(itemID string) string {
	return callbackData{Action: actionShop, Params: []string{shopBuy, itemID}}.encode()
}

func buildAchievementClaimCallback(id string) string {
	return callbackData{Action: actionAchievement, Params: []string{achievementClaim, id}}.encode()
}

func buildWordCallback(sub, wordID string) string {
	return callbackData{Action: actionWord, Params: []string{sub, wordID}}.encode()
}

func buildVideoCallback(sub, videoID string) string {
	return callbackData{Action: actionVideo, Params: []string{sub, videoID}}.encode()
}
