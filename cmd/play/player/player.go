// Package player implements the scene playback state machine: Replay steps
// through a sequence paced by event timestamps, Realtime follows the tail of
// a growing sequence, and Pause/Stop/Seek move between them.
//
// All scheduling goes through an injected Clock. Every entry point, including
// timer callbacks, runs under one mutex, and each cancellation bumps a
// generation counter so that a callback already in flight when its timer was
// cancelled does nothing.
package player

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gigurra/sceneplay/cmd/scene"
)

// Mode is the playback mode. Pausing does not change it.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeReplay   Mode = "replay"
	ModeRealtime Mode = "realtime"
)

// PausedLabel is shown instead of the mode while playback is paused.
const PausedLabel = "paused"

// DefaultPollInterval is how often Realtime re-checks the sequence length.
const DefaultPollInterval = 500 * time.Millisecond

// Options configures a Player. Zero values get defaults.
type Options struct {
	Clock        Clock
	Sink         Sink
	Transport    Transport // optional
	Logger       *slog.Logger
	AssetRoot    string
	Speed        float64
	PollInterval time.Duration

	// OnReplayComplete runs after a replay reaches the end, outside the
	// player's lock.
	OnReplayComplete func()
}

// State is a point-in-time copy of the playback state.
type State struct {
	Mode  Mode
	Index int // -1 in Realtime over an empty sequence
	Total int

	// Shown is the event on screen, -1 before any render. During Replay it
	// trails Index, which already points at the next event to show.
	Shown     int
	Playing   bool
	Speed     float64
	AssetRoot string
}

// Label is what the mode indicator shows.
func (s State) Label() string {
	if !s.Playing && s.Mode != ModeIdle {
		return PausedLabel
	}
	return string(s.Mode)
}

// Player owns the playback state for one session.
type Player struct {
	mu sync.Mutex

	clock      Clock
	sink       Sink
	transport  Transport
	log        *slog.Logger
	onComplete func()
	pollEvery  time.Duration
	assetRoot  string

	events  scene.Sequence
	mode    Mode
	index   int
	shown   int
	playing bool
	speed   float64

	gen       uint64    // incremented on every cancellation, stale callbacks compare against it
	timer     Timer     // replay advance
	due       time.Time // when timer fires
	poll      Timer     // realtime poll
	remaining time.Duration
}

// New creates an idle player with an empty sequence.
func New(opts Options) *Player {
	p := &Player{
		clock:      opts.Clock,
		sink:       opts.Sink,
		transport:  opts.Transport,
		log:        opts.Logger,
		onComplete: opts.OnReplayComplete,
		pollEvery:  opts.PollInterval,
		assetRoot:  opts.AssetRoot,
		events:     scene.Events{},
		mode:       ModeIdle,
		shown:      -1,
		speed:      1.0,
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	if p.sink == nil {
		p.sink = NopSink{}
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.pollEvery <= 0 {
		p.pollEvery = DefaultPollInterval
	}
	if p.assetRoot == "" {
		p.assetRoot = scene.DefaultAssetRoot
	}
	if validSpeed(opts.Speed) {
		p.speed = opts.Speed
	}
	return p
}

// Load replaces the sequence, cancels any pending timers and goes idle at
// index 0. The first event is rendered as a preview.
func (p *Player) Load(seq scene.Sequence) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	if seq == nil {
		seq = scene.Events{}
	}
	p.events = seq
	p.index = 0
	p.shown = -1
	p.mode = ModeIdle
	p.playing = false
	p.remaining = 0
	p.sink.SetModeLabel(string(ModeIdle))

	n := seq.Len()
	p.log.Info("events loaded", "events", n)
	if n > 0 {
		p.renderLocked(0)
	} else {
		p.sink.SetProgress(0, 0)
	}
}

// StartReplay plays the sequence from the first event.
func (p *Player) StartReplay() {
	p.mu.Lock()
	p.cancelLocked()
	p.mode = ModeReplay
	p.index = 0
	p.playing = true
	p.remaining = 0
	p.sink.SetModeLabel(string(ModeReplay))
	p.withTransport("start", func(t Transport) error {
		if err := t.Seek(0); err != nil {
			return err
		}
		return t.Play()
	})
	p.log.Info("replay started", "events", p.events.Len(), "speed", p.speed)
	done := p.advanceLocked()
	p.mu.Unlock()

	if done {
		p.replayComplete()
	}
}

// StartRealtime jumps to the last event and polls for newly appended ones.
func (p *Player) StartRealtime() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.mode = ModeRealtime
	p.playing = true
	p.remaining = 0
	p.index = p.events.Len() - 1
	p.sink.SetModeLabel(string(ModeRealtime))
	p.log.Info("realtime started", "events", p.events.Len())
	if p.index >= 0 {
		p.renderLocked(p.index)
	}
	p.startPollLocked()
}

// Pause stops advancing without leaving the current mode.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.remaining = max(0, p.due.Sub(p.clock.Now()))
	}
	p.playing = false
	p.cancelLocked()
	p.withTransport("pause", Transport.Pause)
	p.sink.SetModeLabel(p.labelLocked())
	p.log.Info("paused", "mode", p.mode, "index", p.index)
}

// Resume continues a paused Replay after what was left of the interrupted
// delay, or restarts the Realtime poll. It does nothing when idle or playing.
func (p *Player) Resume() {
	p.mu.Lock()
	if p.playing || p.mode == ModeIdle {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.withTransport("resume", Transport.Play)
	p.sink.SetModeLabel(p.labelLocked())
	p.log.Info("resumed", "mode", p.mode, "index", p.index)

	done := false
	switch p.mode {
	case ModeReplay:
		if p.remaining > 0 {
			p.scheduleLocked(p.remaining)
		} else {
			done = p.advanceLocked()
		}
		p.remaining = 0
	case ModeRealtime:
		p.pollLocked()
		p.startPollLocked()
	}
	p.mu.Unlock()

	if done {
		p.replayComplete()
	}
}

// Stop cancels everything, goes idle and rewinds the audio.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.mode = ModeIdle
	p.playing = false
	p.remaining = 0
	p.withTransport("stop", func(t Transport) error {
		if err := t.Pause(); err != nil {
			return err
		}
		return t.Seek(0)
	})
	p.sink.SetModeLabel(string(ModeIdle))
	p.log.Info("stopped", "index", p.index)
}

// SeekTo renders event i and moves the audio to its start time. Out of range
// indexes are ignored. Mode, play state and pending timers are untouched.
func (p *Player) SeekTo(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= p.events.Len() {
		return
	}
	p.index = i
	if !p.playing {
		p.remaining = 0
	}
	p.renderLocked(i)

	ev := p.events.At(i)
	if ev.Start != nil {
		start := *ev.Start
		p.withTransport("seek", func(t Transport) error { return t.Seek(start) })
	}
	p.log.Debug("seek", "index", i)
}

// SetSpeed changes the speed factor used for subsequent delays. Values that
// are not finite and positive are rejected.
func (p *Player) SetSpeed(speed float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !validSpeed(speed) {
		p.log.Warn("rejected speed factor", "speed", speed)
		return false
	}
	p.speed = speed
	p.log.Info("speed changed", "speed", speed)
	return true
}

// SetAssetRoot changes the prefix of image sources for subsequent renders.
func (p *Player) SetAssetRoot(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.assetRoot = root
	p.log.Info("asset root changed", "asset_root", root)
}

// Refresh runs one Realtime poll immediately. It lets a push source such as
// a file watcher cut the latency of the periodic poll.
func (p *Player) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == ModeRealtime && p.playing {
		p.pollLocked()
	}
}

// State returns a copy of the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return State{
		Mode:    p.mode,
		Index:     p.index,
		Total:     p.events.Len(),
		Shown:     p.shown,
		Playing:   p.playing,
		Speed:     p.speed,
		AssetRoot: p.assetRoot,
	}
}

// advanceLocked is one step of the replay loop. It returns true when the
// replay just completed.
func (p *Player) advanceLocked() bool {
	if !p.playing || p.mode != ModeReplay {
		return false
	}

	n := p.events.Len()
	if p.index >= n {
		p.mode = ModeIdle
		p.playing = false
		p.sink.SetModeLabel(string(ModeIdle))
		p.log.Info("replay complete", "events", n)
		return true
	}

	p.renderLocked(p.index)
	delay := scene.DelayAt(p.events, p.index, p.speed)
	p.index++
	p.scheduleLocked(delay)
	return false
}

func (p *Player) scheduleLocked(delay time.Duration) {
	gen := p.gen
	p.due = p.clock.Now().Add(delay)
	p.timer = p.clock.AfterFunc(delay, func() { p.fire(gen) })
}

func (p *Player) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	done := p.advanceLocked()
	p.mu.Unlock()

	if done {
		p.replayComplete()
	}
}

func (p *Player) startPollLocked() {
	gen := p.gen
	p.poll = p.clock.Every(p.pollEvery, func() { p.tick(gen) })
}

func (p *Player) tick(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}
	p.pollLocked()
}

// pollLocked snaps to the newest event if the sequence grew. Intermediate
// events are not rendered.
func (p *Player) pollLocked() {
	last := p.events.Len() - 1
	if last > p.index {
		p.index = last
		p.renderLocked(last)
	}
}

// cancelLocked stops the pending timer and poll and invalidates any
// callback already in flight.
func (p *Player) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.poll != nil {
		p.poll.Stop()
		p.poll = nil
	}
}

func (p *Player) renderLocked(i int) {
	ev := p.events.At(i)
	p.shown = i
	for _, st := range scene.Resolve(ev, p.assetRoot) {
		p.sink.SetLayer(st.Layer, st.Visible, st.Source)
	}
	p.sink.SetSubtitle(ev.Text)
	p.sink.SetSpeaker(ev.SpeakerID)
	p.sink.SetProgress(i, p.events.Len())
	p.sink.SetCurrentTime(ev.Start)
}

func (p *Player) labelLocked() string {
	return State{Mode: p.mode, Playing: p.playing}.Label()
}

func (p *Player) withTransport(action string, f func(Transport) error) {
	if p.transport == nil || !p.transport.Attached() {
		return
	}
	if err := f(p.transport); err != nil {
		p.log.Warn("media transport failed", "action", action, "error", err)
	}
}

func (p *Player) replayComplete() {
	if p.onComplete != nil {
		p.onComplete()
	}
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 1)
}
