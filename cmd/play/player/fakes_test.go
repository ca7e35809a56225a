package player

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gigurra/sceneplay/cmd/scene"
)

// manualClock fires callbacks only when Advance is called.
type manualClock struct {
	now       time.Time
	nextID    int
	timers    []*manualTimer
	scheduled []time.Duration // one-shot delays, in order
	periods   []time.Duration
	stops     int
}

type manualTimer struct {
	clock  *manualClock
	id     int
	at     time.Time
	every  time.Duration
	f      func()
	active bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.scheduled = append(c.scheduled, d)
	return c.add(d, 0, f)
}

func (c *manualClock) Every(d time.Duration, f func()) Timer {
	c.periods = append(c.periods, d)
	return c.add(d, d, f)
}

func (c *manualClock) add(d, every time.Duration, f func()) *manualTimer {
	c.nextID++
	t := &manualTimer{clock: c, id: c.nextID, at: c.now.Add(d), every: every, f: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	if !t.active {
		return false
	}
	t.active = false
	t.clock.stops++
	return true
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if !t.active || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.id < next.id) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.active = false
		}
		next.f()
	}
	c.now = end
}

// Pending counts timers that are still active.
func (c *manualClock) Pending() int {
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

type layerCall struct {
	visible bool
	source  string
}

// recordingSink keeps the latest rendered state and counts renders.
type recordingSink struct {
	layers    map[scene.Layer]layerCall
	subtitles []string
	speaker   string
	index     int
	total     int
	time      *float64
	labels    []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{layers: map[scene.Layer]layerCall{}}
}

func (s *recordingSink) SetLayer(layer scene.Layer, visible bool, source string) {
	s.layers[layer] = layerCall{visible: visible, source: source}
}
func (s *recordingSink) SetSubtitle(text string)         { s.subtitles = append(s.subtitles, text) }
func (s *recordingSink) SetSpeaker(id string)            { s.speaker = id }
func (s *recordingSink) SetProgress(index, total int)    { s.index, s.total = index, total }
func (s *recordingSink) SetCurrentTime(seconds *float64) { s.time = seconds }
func (s *recordingSink) SetModeLabel(label string)       { s.labels = append(s.labels, label) }

func (s *recordingSink) renders() int { return len(s.subtitles) }

func (s *recordingSink) lastLabel() string {
	if len(s.labels) == 0 {
		return ""
	}
	return s.labels[len(s.labels)-1]
}

type recordingTransport struct {
	attached bool
	calls    []string
	seeks    []float64
	failWith error
}

func (t *recordingTransport) Seek(seconds float64) error {
	t.calls = append(t.calls, "seek")
	t.seeks = append(t.seeks, seconds)
	return t.failWith
}

func (t *recordingTransport) Play() error {
	t.calls = append(t.calls, "play")
	return t.failWith
}

func (t *recordingTransport) Pause() error {
	t.calls = append(t.calls, "pause")
	return t.failWith
}

func (t *recordingTransport) Attached() bool { return t.attached }

var errTransport = errors.New("device gone")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(sec float64) *float64 { return &sec }

func timedEvents(starts ...float64) scene.Events {
	events := make(scene.Events, len(starts))
	for i, s := range starts {
		events[i] = scene.Event{Kind: scene.KindScene, Text: "line " + strconv.Itoa(i), Start: at(s)}
	}
	return events
}

type fixture struct {
	clock     *manualClock
	sink      *recordingSink
	transport *recordingTransport
	completed int
	player    *Player
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		clock:     newManualClock(),
		sink:      newRecordingSink(),
		transport: &recordingTransport{attached: true},
	}
	opts.Clock = f.clock
	opts.Sink = f.sink
	if opts.Transport == nil {
		opts.Transport = f.transport
	}
	opts.Logger = quietLogger()
	opts.OnReplayComplete = func() { f.completed++ }
	f.player = New(opts)
	return f
}
