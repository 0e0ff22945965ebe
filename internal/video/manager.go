// Package video keeps one playback session per video alive across UI
// teardown and makes sure only one video plays at a time.
package video

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("video session not found")
	ErrSessionActive   = errors.New("video session is in use")
)

// Session is a snapshot of the playback state of one video.
type Session struct {
	VideoID   string
	SourceURI string
	IsPlaying bool
	Position  time.Duration
	Speed     float64
	Muted     bool
}

// SessionUpdate carries the fields to change; nil fields are left alone.
type SessionUpdate struct {
	IsPlaying *bool
	Position  *time.Duration
	Speed     *float64
	Muted     *bool
}

type entry struct {
	state  Session
	player Player
}

// SessionObserver is told how many sessions are registered after every change.
type SessionObserver func(n int)

// Manager is the registry of playback sessions. Construct one per process
// (or per chat) and share it.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*entry
	current   string
	newPlayer PlayerFactory
	observe   SessionObserver
	logger    *zap.Logger
}

func NewManager(factory PlayerFactory, observe SessionObserver, logger *zap.Logger) *Manager {
	if factory == nil {
		factory = NewClockPlayer
	}
	if observe == nil {
		observe = func(int) {}
	}
	return &Manager{
		sessions:  make(map[string]*entry),
		newPlayer: factory,
		observe:   observe,
		logger:    logger,
	}
}

// GetOrCreateSession returns the session for videoID, creating a player
// for sourceURI if there is none, and makes it the current session.
func (m *Manager) GetOrCreateSession(videoID, sourceURI string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[videoID]
	if !ok {
		e = &entry{
			state: Session{
				VideoID:   videoID,
				SourceURI: sourceURI,
				Speed:     1,
			},
			player: m.newPlayer(sourceURI),
		}
		m.sessions[videoID] = e
		m.logger.Debug("video session created", zap.String("video_id", videoID))
		m.observe(len(m.sessions))
	}
	m.current = videoID

	return m.snapshotLocked(e)
}

// UpdateSession merges the set fields into the session and applies them to
// the player. Starting playback pauses every other session.
func (m *Manager) UpdateSession(videoID string, u SessionUpdate) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[videoID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	if u.Position != nil {
		e.state.Position = *u.Position
		e.player.SeekTo(*u.Position)
	}
	if u.Speed != nil && *u.Speed > 0 {
		e.state.Speed = *u.Speed
		e.player.SetSpeed(*u.Speed)
	}
	if u.Muted != nil {
		e.state.Muted = *u.Muted
		e.player.SetMuted(*u.Muted)
	}
	if u.IsPlaying != nil {
		wasPlaying := e.state.IsPlaying
		e.state.IsPlaying = *u.IsPlaying
		if *u.IsPlaying {
			e.player.Play()
			if !wasPlaying {
				m.pauseOthersLocked(videoID)
			}
		} else {
			e.player.Pause()
			e.state.Position = e.player.Position()
		}
	}

	return m.snapshotLocked(e), nil
}

// PauseOthers pauses every playing session except activeID.
func (m *Manager) PauseOthers(activeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseOthersLocked(activeID)
}

func (m *Manager) pauseOthersLocked(activeID string) {
	for id, e := range m.sessions {
		if id == activeID || !e.state.IsPlaying {
			continue
		}
		e.player.Pause()
		e.state.IsPlaying = false
		e.state.Position = e.player.Position()
	}
}

// Session returns a snapshot of the session for videoID.
func (m *Manager) Session(videoID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[videoID]
	if !ok {
		return Session{}, false
	}
	return m.snapshotLocked(e), true
}

// Current returns the id of the most recently acquired session.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ReleaseSession stores the final position, releases the player and drops
// the session. The current session cannot be released.
func (m *Manager) ReleaseSession(videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if videoID == m.current {
		return ErrSessionActive
	}
	e, ok := m.sessions[videoID]
	if !ok {
		return ErrSessionNotFound
	}

	e.state.Position = e.player.Position()
	e.player.Release()
	delete(m.sessions, videoID)
	m.observe(len(m.sessions))

	m.logger.Debug("video session released",
		zap.String("video_id", videoID),
		zap.Duration("position", e.state.Position),
	)
	return nil
}

// ReleaseAll releases every player and empties the registry.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.sessions {
		e.player.Release()
		delete(m.sessions, id)
	}
	m.current = ""
	m.observe(0)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) snapshotLocked(e *entry) Session {
	s := e.state
	s.Position = e.player.Position()
	return s
}
