package video

import (
	"sync"
	"time"
)

// Player is the underlying media player bound to one source.
type Player interface {
	Play()
	Pause()
	SeekTo(position time.Duration)
	SetSpeed(speed float64)
	SetMuted(muted bool)
	Position() time.Duration
	Release()
}

// PlayerFactory creates a player for a source URI.
type PlayerFactory func(sourceURI string) Player

// ClockPlayer tracks the playback position from elapsed wall-clock time.
// It does not decode media.
type ClockPlayer struct {
	mu        sync.Mutex
	source    string
	now       func() time.Time
	playing   bool
	startedAt time.Time
	base      time.Duration
	speed     float64
	muted     bool
	released  bool
}

func NewClockPlayer(sourceURI string) Player {
	return newClockPlayer(sourceURI, time.Now)
}

func newClockPlayer(sourceURI string, now func() time.Time) *ClockPlayer {
	return &ClockPlayer{source: sourceURI, now: now, speed: 1}
}

func (p *ClockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing || p.released {
		return
	}
	p.playing = true
	p.startedAt = p.now()
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.base = p.positionLocked()
	p.playing = false
}

func (p *ClockPlayer) SeekTo(position time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if position < 0 {
		position = 0
	}
	p.base = position
	p.startedAt = p.now()
}

func (p *ClockPlayer) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.positionLocked()
	p.startedAt = p.now()
	p.speed = speed
}

func (p *ClockPlayer) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
}

func (p *ClockPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *ClockPlayer) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.positionLocked()
	p.playing = false
	p.released = true
}

func (p *ClockPlayer) positionLocked() time.Duration {
	if !p.playing {
		return p.base
	}
	elapsed := p.now().Sub(p.startedAt)
	return p.base + time.Duration(float64(elapsed)*p.speed)
}
