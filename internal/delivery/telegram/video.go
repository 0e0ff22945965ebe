package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/domain/entities"
	"github.com/NOTMORSE-PROG/vocanova/internal/video"
)

func (h *Handler) handleVideoList(ctx context.Context, chatID int64, uid string) error {
	user, err := h.users.Profile(ctx, uid)
	if err != nil {
		return err
	}

	msg := newHTMLMessage(chatID, msgChooseVideo)
	msg.ReplyMarkup = buildLessonListKeyboard(h.users.Lessons(), user.HasCompletedLesson)
	h.send(msg)
	return nil
}

// videoManager returns the chat's session registry, creating it on first use.
func (h *Handler) videoManager(chatID int64) *video.Manager {
	return h.videos.GetOrCreate(chatID, func() *video.Manager {
		return video.NewManager(h.newPlayer, h.observeVideoSessions(chatID), h.logger.With(zap.Int64("chat_id", chatID)))
	})
}

// observeVideoSessions keeps the per-chat session counts and reports their
// sum. It runs under the manager's lock, so it must not call back into it.
func (h *Handler) observeVideoSessions(chatID int64) video.SessionObserver {
	return func(n int) {
		h.videoCountsMu.Lock()
		defer h.videoCountsMu.Unlock()

		if n == 0 {
			delete(h.videoCounts, chatID)
		} else {
			h.videoCounts[chatID] = n
		}

		total := 0
		for _, c := range h.videoCounts {
			total += c
		}
		h.metrics.SetVideoSessions(total)
	}
}

func (h *Handler) handleVideoCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData, uid string) error {
	chatID := cb.Message.Chat.ID
	sub, videoID := data.param(0), data.param(1)

	lesson, err := h.users.Lesson(videoID)
	if err != nil {
		h.answerCallback(cb.ID, "")
		return err
	}

	m := h.videoManager(chatID)

	var update video.SessionUpdate
	switch sub {
	case videoOpen:
		m.GetOrCreateSession(lesson.ID, lesson.SourceURI)
	case videoPlay:
		update.IsPlaying = boolPtr(true)
	case videoPause:
		update.IsPlaying = boolPtr(false)
	case videoMute:
		s, ok := m.Session(lesson.ID)
		if ok {
			update.Muted = boolPtr(!s.Muted)
		}
	case videoSpeed:
		s, ok := m.Session(lesson.ID)
		if ok {
			speed := nextSpeed(s.Speed)
			update.Speed = &speed
		}
	case videoDone:
		return h.completeLesson(ctx, cb, uid, m, lesson)
	case videoRelease:
		return h.closeVideo(cb, m, lesson.ID)
	default:
		h.answerCallback(cb.ID, "")
		return nil
	}

	if sub != videoOpen {
		if _, err := m.UpdateSession(lesson.ID, update); errors.Is(err, video.ErrSessionNotFound) {
			// The player was released; reopen at the start.
			m.GetOrCreateSession(lesson.ID, lesson.SourceURI)
			if _, err := m.UpdateSession(lesson.ID, update); err != nil {
				h.answerCallback(cb.ID, "")
				return err
			}
		} else if err != nil {
			h.answerCallback(cb.ID, "")
			return err
		}
	}

	h.answerCallback(cb.ID, "")
	return h.renderVideo(ctx, cb, uid, m, lesson)
}

func (h *Handler) completeLesson(ctx context.Context, cb *tgbotapi.CallbackQuery, uid string, m *video.Manager, lesson *entities.VideoLesson) error {
	awarded, err := h.users.CompleteLesson(ctx, uid, lesson.ID)
	if err != nil {
		h.answerCallback(cb.ID, "")
		return err
	}

	toast := msgLessonDone
	if awarded > 0 {
		toast = fmt.Sprintf("%s: +%d coins", msgLessonDone, awarded)
	}
	h.answerCallback(cb.ID, toast)

	m.GetOrCreateSession(lesson.ID, lesson.SourceURI)
	return h.renderVideo(ctx, cb, uid, m, lesson)
}

// closeVideo pauses the video and releases its player unless it is the
// chat's current session, which keeps its position for the next open.
func (h *Handler) closeVideo(cb *tgbotapi.CallbackQuery, m *video.Manager, videoID string) error {
	if _, err := m.UpdateSession(videoID, video.SessionUpdate{IsPlaying: boolPtr(false)}); err != nil && !errors.Is(err, video.ErrSessionNotFound) {
		h.answerCallback(cb.ID, "")
		return err
	}

	text := msgVideoClosed
	err := m.ReleaseSession(videoID)
	switch {
	case errors.Is(err, video.ErrSessionActive):
		text = msgVideoKept
	case err != nil && !errors.Is(err, video.ErrSessionNotFound):
		h.answerCallback(cb.ID, "")
		return err
	}

	h.answerCallback(cb.ID, "")
	h.send(newHTMLEdit(cb.Message.Chat.ID, cb.Message.MessageID, text, nil))
	return nil
}

func (h *Handler) renderVideo(ctx context.Context, cb *tgbotapi.CallbackQuery, uid string, m *video.Manager, lesson *entities.VideoLesson) error {
	s, ok := m.Session(lesson.ID)
	if !ok {
		return video.ErrSessionNotFound
	}

	user, err := h.users.Profile(ctx, uid)
	if err != nil {
		return err
	}
	completed := user.HasCompletedLesson(lesson.ID)

	kb := buildVideoKeyboard(s, completed)
	h.send(newHTMLEdit(cb.Message.Chat.ID, cb.Message.MessageID, formatVideo(*lesson, s, completed), &kb))
	return nil
}

func boolPtr(b bool) *bool { return &b }
