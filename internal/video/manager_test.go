package video

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePlayer struct {
	source   string
	playing  bool
	position time.Duration
	speed    float64
	muted    bool
	released bool
	pauses   int
}

func (p *fakePlayer) Play()                   { p.playing = true }
func (p *fakePlayer) Pause()                  { p.playing = false; p.pauses++ }
func (p *fakePlayer) SeekTo(d time.Duration)  { p.position = d }
func (p *fakePlayer) SetSpeed(s float64)      { p.speed = s }
func (p *fakePlayer) SetMuted(m bool)         { p.muted = m }
func (p *fakePlayer) Position() time.Duration { return p.position }
func (p *fakePlayer) Release()                { p.released = true; p.playing = false }

type playerRecorder struct {
	players map[string][]*fakePlayer
}

func (r *playerRecorder) factory(source string) Player {
	p := &fakePlayer{source: source, speed: 1}
	r.players[source] = append(r.players[source], p)
	return p
}

func newTestManager() (*Manager, *playerRecorder) {
	rec := &playerRecorder{players: map[string][]*fakePlayer{}}
	return NewManager(rec.factory, nil, zap.NewNop()), rec
}

func boolPtr(b bool) *bool { return &b }

func TestGetOrCreateSessionReusesPlayer(t *testing.T) {
	m, rec := newTestManager()

	first := m.GetOrCreateSession("v1", "https://cdn/v1.mp4")
	pos := 42 * time.Second
	if _, err := m.UpdateSession("v1", SessionUpdate{Position: &pos, Muted: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	second := m.GetOrCreateSession("v1", "https://cdn/v1.mp4")

	if n := len(rec.players["https://cdn/v1.mp4"]); n != 1 {
		t.Fatalf("created %d players, want 1", n)
	}
	if first.VideoID != second.VideoID || second.Position != pos || !second.Muted || second.Speed != 1 {
		t.Errorf("second session = %+v", second)
	}
	if m.Len() != 1 || m.Current() != "v1" {
		t.Errorf("Len() = %d, Current() = %q", m.Len(), m.Current())
	}
}

func TestPauseOthers(t *testing.T) {
	m, rec := newTestManager()

	m.GetOrCreateSession("v1", "s1")
	if _, err := m.UpdateSession("v1", SessionUpdate{IsPlaying: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	m.GetOrCreateSession("v2", "s2")

	m.PauseOthers("v2")

	v1, _ := m.Session("v1")
	v2, _ := m.Session("v2")
	if v1.IsPlaying || rec.players["s1"][0].playing {
		t.Error("v1 still playing")
	}
	if v2.IsPlaying || rec.players["s2"][0].pauses != 0 {
		t.Errorf("v2 was touched: %+v", v2)
	}
}

func TestPlayingPausesOthers(t *testing.T) {
	m, rec := newTestManager()

	m.GetOrCreateSession("v1", "s1")
	m.GetOrCreateSession("v2", "s2")
	if _, err := m.UpdateSession("v1", SessionUpdate{IsPlaying: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.UpdateSession("v2", SessionUpdate{IsPlaying: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}

	v1, _ := m.Session("v1")
	v2, _ := m.Session("v2")
	if v1.IsPlaying || !v2.IsPlaying {
		t.Errorf("v1 playing = %v, v2 playing = %v", v1.IsPlaying, v2.IsPlaying)
	}
	if !rec.players["s2"][0].playing {
		t.Error("v2 player not started")
	}
}

func TestUpdateSessionKeepsUnsetFields(t *testing.T) {
	m, _ := newTestManager()
	m.GetOrCreateSession("v1", "s1")

	speed := 1.5
	if _, err := m.UpdateSession("v1", SessionUpdate{Speed: &speed}); err != nil {
		t.Fatal(err)
	}
	got, err := m.UpdateSession("v1", SessionUpdate{Muted: boolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Speed != 1.5 || !got.Muted || got.IsPlaying {
		t.Errorf("session = %+v", got)
	}

	if _, err := m.UpdateSession("nope", SessionUpdate{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("UpdateSession(unknown) error = %v", err)
	}
}

func TestReleaseSession(t *testing.T) {
	m, rec := newTestManager()
	m.GetOrCreateSession("v1", "s1")
	m.GetOrCreateSession("v2", "s2")

	if err := m.ReleaseSession("v2"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("ReleaseSession(current) error = %v", err)
	}
	if err := m.ReleaseSession("v1"); err != nil {
		t.Fatalf("ReleaseSession() error = %v", err)
	}
	if !rec.players["s1"][0].released {
		t.Error("player not released")
	}
	if _, ok := m.Session("v1"); ok {
		t.Error("session still registered")
	}
	if err := m.ReleaseSession("v1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second ReleaseSession() error = %v", err)
	}

	m.GetOrCreateSession("v1", "s1")
	if n := len(rec.players["s1"]); n != 2 {
		t.Errorf("players for s1 = %d, want a fresh one after release", n)
	}
}

func TestReleaseAll(t *testing.T) {
	var counts []int
	rec := &playerRecorder{players: map[string][]*fakePlayer{}}
	m := NewManager(rec.factory, func(n int) { counts = append(counts, n) }, zap.NewNop())

	m.GetOrCreateSession("v1", "s1")
	m.GetOrCreateSession("v2", "s2")
	m.ReleaseAll()

	if m.Len() != 0 || m.Current() != "" {
		t.Errorf("Len() = %d, Current() = %q", m.Len(), m.Current())
	}
	for src, ps := range rec.players {
		if !ps[0].released {
			t.Errorf("player %s not released", src)
		}
	}
	if want := []int{1, 2, 0}; len(counts) != 3 || counts[2] != want[2] || counts[1] != want[1] {
		t.Errorf("observed counts = %v, want %v", counts, want)
	}
}

func TestClockPlayer(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newClockPlayer("s", func() time.Time { return now })

	p.Play()
	now = now.Add(10 * time.Second)
	if got := p.Position(); got != 10*time.Second {
		t.Fatalf("Position() = %v, want 10s", got)
	}

	p.SetSpeed(2)
	now = now.Add(5 * time.Second)
	if got := p.Position(); got != 20*time.Second {
		t.Fatalf("Position() at 2x = %v, want 20s", got)
	}

	p.Pause()
	now = now.Add(time.Minute)
	if got := p.Position(); got != 20*time.Second {
		t.Fatalf("Position() while paused = %v, want 20s", got)
	}

	p.SeekTo(3 * time.Second)
	p.Release()
	p.Play()
	now = now.Add(time.Second)
	if got := p.Position(); got != 3*time.Second {
		t.Errorf("Position() after release = %v, want 3s", got)
	}
}
