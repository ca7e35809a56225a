package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/sceneplay/cmd/play/player"
	"github.com/gigurra/sceneplay/cmd/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	state  player.State
	calls  []string
	seeks  []int
	speeds []float64
	roots  []string
}

func (c *fakeController) StartReplay()   { c.calls = append(c.calls, "replay") }
func (c *fakeController) StartRealtime() { c.calls = append(c.calls, "realtime") }
func (c *fakeController) Pause()         { c.calls = append(c.calls, "pause") }
func (c *fakeController) Resume()        { c.calls = append(c.calls, "resume") }
func (c *fakeController) Stop()          { c.calls = append(c.calls, "stop") }
func (c *fakeController) SeekTo(i int)   { c.seeks = append(c.seeks, i) }
func (c *fakeController) SetSpeed(speed float64) bool {
	c.speeds = append(c.speeds, speed)
	return true
}
func (c *fakeController) SetAssetRoot(root string) { c.roots = append(c.roots, root) }
func (c *fakeController) State() player.State       { return c.state }

// stepClock fires one-shot callbacks when Advance passes their deadline.
type stepClock struct {
	now    time.Time
	timers []*stepTimer
}

type stepTimer struct {
	at     time.Time
	f      func()
	active bool
}

func (t *stepTimer) Stop() bool {
	was := t.active
	t.active = false
	return was
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) AfterFunc(d time.Duration, f func()) player.Timer {
	t := &stepTimer{at: c.now.Add(d), f: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

func (c *stepClock) Every(d time.Duration, f func()) player.Timer {
	return &stepTimer{}
}

func (c *stepClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	for i := 0; i < len(c.timers); i++ {
		t := c.timers[i]
		if t.active && !t.at.After(c.now) {
			t.active = false
			t.f()
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestScreen_SkipsRedundantSources(t *testing.T) {
	s := NewScreen()

	s.SetLayer(scene.LayerBG, true, "assets/bg/BG_Lab.png")
	s.SetLayer(scene.LayerBG, true, "assets/bg/BG_Lab.png")
	assert.Equal(t, 1, s.Snapshot().Loads)

	s.SetLayer(scene.LayerBG, false, "")
	v := s.Snapshot()
	assert.False(t, v.Layers[0].Visible)
	assert.Equal(t, "assets/bg/BG_Lab.png", v.Layers[0].Source, "hidden layer keeps its last image")
	assert.Equal(t, 1, v.Loads)

	s.SetLayer(scene.LayerBG, true, "assets/bg/BG_Lab.png")
	assert.Equal(t, 1, s.Snapshot().Loads)

	s.SetLayer(scene.LayerBG, true, "assets/bg/BG_Beach.png")
	assert.Equal(t, 2, s.Snapshot().Loads)
}

func TestScreen_SignalsChanges(t *testing.T) {
	s := NewScreen()

	select {
	case <-s.Changes():
		t.Fatal("no change yet")
	default:
	}

	for range 10 {
		s.SetSubtitle("hello")
	}

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals are coalesced")
	default:
	}
}

func TestScreen_SnapshotIsACopy(t *testing.T) {
	s := NewScreen()
	start := 1.5
	s.SetCurrentTime(&start)
	s.SetLayer(scene.LayerCG, true, "assets/cg/CG_Beach.png")

	v := s.Snapshot()
	v.Layers[4].Source = "mutated"
	*v.Time = 99
	start = 42

	again := s.Snapshot()
	assert.Equal(t, "assets/cg/CG_Beach.png", again.Layers[4].Source)
	require.NotNil(t, again.Time)
	assert.Equal(t, 1.5, *again.Time)

	cg, shown := again.CG()
	assert.True(t, shown)
	assert.Equal(t, scene.LayerCG, cg.Layer)
}

func TestScreen_AsPlayerSink(t *testing.T) {
	s := NewScreen()
	p := player.New(player.Options{Sink: s})

	p.Load(scene.Events{{Kind: scene.KindScene, SpeakerID: "alice", Text: "Hi", BG: "BG_Lab", STA: "STA_Alice"}})

	v := s.Snapshot()
	assert.Equal(t, "Hi", v.Subtitle)
	assert.Equal(t, "alice", v.Speaker)
	assert.Equal(t, "idle", v.Label)
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, 2, v.Loads)
	assert.Equal(t, LayerView{Layer: scene.LayerSTA, Visible: true, Source: "assets/sta/STA_Alice.png"}, v.Layers[1])
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name   string
		state  player.State
		keys   []string
		calls  []string
		seeks  []int
		speeds []float64
	}{
		{name: "replay", keys: []string{"r"}, calls: []string{"replay"}},
		{name: "realtime", keys: []string{"t"}, calls: []string{"realtime"}},
		{name: "stop", keys: []string{"s"}, calls: []string{"stop"}},
		{name: "space while playing pauses", state: player.State{Mode: player.ModeReplay, Playing: true}, keys: []string{" "}, calls: []string{"pause"}},
		{name: "space while paused resumes", state: player.State{Mode: player.ModeRealtime}, keys: []string{" "}, calls: []string{"resume"}},
		{name: "space while idle replays", state: player.State{Mode: player.ModeIdle}, keys: []string{" "}, calls: []string{"replay"}},
		{name: "seek", state: player.State{Index: 4, Shown: 3, Total: 10}, keys: []string{"left", "right", "home", "end"}, seeks: []int{2, 4, 0, 9}},
		{name: "left at the first event", state: player.State{Index: 1, Shown: 0, Total: 10}, keys: []string{"left"}},
		{name: "right before any render", state: player.State{Shown: -1, Total: 10}, keys: []string{"right"}, seeks: []int{0}},
		{name: "speed up", state: player.State{Speed: 1}, keys: []string{"+"}, speeds: []float64{2}},
		{name: "slow down", state: player.State{Speed: 1}, keys: []string{"-"}, speeds: []float64{0.5}},
		{name: "speed ceiling", state: player.State{Speed: MaxSpeed}, keys: []string{"+"}},
		{name: "speed floor", state: player.State{Speed: MinSpeed}, keys: []string{"-"}},
		{name: "speed clamps", state: player.State{Speed: 12}, keys: []string{"+"}, speeds: []float64{MaxSpeed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{state: tt.state}
			press(NewModel(ctrl, NewScreen(), "demo"), tt.keys...)

			assert.Equal(t, tt.calls, ctrl.calls)
			assert.Equal(t, tt.seeks, ctrl.seeks)
			assert.Equal(t, tt.speeds, ctrl.speeds)
		})
	}
}

func TestModel_StepsFromTheShownEvent(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	screen := NewScreen()
	p := player.New(player.Options{Clock: clock, Sink: screen})
	p.Load(scene.Events{
		{Kind: scene.KindScene, Text: "a"},
		{Kind: scene.KindScene, Text: "b"},
		{Kind: scene.KindScene, Text: "c"},
		{Kind: scene.KindScene, Text: "d"},
	})
	m := NewModel(p, screen, "demo")

	p.StartReplay()
	require.Equal(t, "a", screen.Snapshot().Subtitle)

	m = press(m, "right")
	assert.Equal(t, "b", screen.Snapshot().Subtitle)

	clock.Advance(time.Second)
	p.Pause()
	require.Equal(t, "b", screen.Snapshot().Subtitle)
	require.Equal(t, 2, p.State().Index)

	m = press(m, "right")
	assert.Equal(t, "c", screen.Snapshot().Subtitle)
	m = press(m, "left", "left")
	assert.Equal(t, "a", screen.Snapshot().Subtitle)
	press(m, "left")
	assert.Equal(t, "a", screen.Snapshot().Subtitle)

	p.Stop()
}

func TestModel_EditAssetRoot(t *testing.T) {
	ctrl := &fakeController{state: player.State{AssetRoot: "assets"}}
	m := press(NewModel(ctrl, NewScreen(), "demo"), "a")
	assert.Contains(t, m.View(), "asset root: assets")

	m = press(m, "backspace", "backspace", "backspace", "backspace", "backspace", "backspace", "c", "d", "n")
	assert.Empty(t, ctrl.calls, "keys go to the input while editing")
	assert.Contains(t, m.View(), "asset root: cdn")

	m = press(m, "enter")
	assert.Equal(t, []string{"cdn"}, ctrl.roots)
	assert.Contains(t, m.View(), "asset root cdn")

	m = press(m, "a", "x", "esc")
	assert.Equal(t, []string{"cdn"}, ctrl.roots)
	assert.NotContains(t, m.View(), "asset root: ")
}

func TestModel_ShowsNotice(t *testing.T) {
	screen := NewScreen()
	m := NewModel(&fakeController{}, screen, "demo")

	screen.SetNotice("notification failed: no dbus")
	next, _ := m.Update(changedMsg{})
	assert.Contains(t, next.(Model).View(), "notification failed: no dbus")
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(&fakeController{}, NewScreen(), "demo")
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_HelpSwallowsNextKey(t *testing.T) {
	ctrl := &fakeController{}
	m := press(NewModel(ctrl, NewScreen(), "demo"), "?")
	assert.Contains(t, m.View(), "KEYS")

	m = press(m, "r")
	assert.Empty(t, ctrl.calls)
	assert.NotContains(t, m.View(), "KEYS")
}

func TestModel_CopySubtitle(t *testing.T) {
	screen := NewScreen()
	var copied []string
	m := NewModel(&fakeController{}, screen, "demo").WithClipboard(func(s string) error {
		copied = append(copied, s)
		return nil
	})

	m = press(m, "c")
	assert.Empty(t, copied)
	assert.Contains(t, m.View(), "nothing to copy")

	screen.SetSubtitle("Hello there")
	next, _ := m.Update(changedMsg{})
	m = press(next.(Model), "c")
	assert.Equal(t, []string{"Hello there"}, copied)
	assert.Contains(t, m.View(), "subtitle copied")

	m = m.WithClipboard(func(string) error { return errors.New("no display") })
	m = press(m, "c")
	assert.Contains(t, m.View(), "copy failed: no display")
}

func TestModel_View(t *testing.T) {
	screen := NewScreen()
	ctrl := &fakeController{state: player.State{Mode: player.ModeReplay, Playing: true, Speed: 2, Index: 1, Total: 4}}
	p := player.New(player.Options{Sink: screen})
	p.Load(scene.Events{
		{Kind: scene.KindScene, Text: "first"},
		{Kind: scene.KindScene, SpeakerID: "bob", Text: "Look!", BG: "BG_Lab", CG: "CG_Beach"},
	})
	p.SeekTo(1)
	screen.SetModeLabel("replay")

	next, _ := NewModel(ctrl, screen, "demo.jsonl").Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	out := next.(Model).View()

	assert.Contains(t, out, "sceneplay · demo.jsonl")
	assert.Contains(t, out, "REPLAY")
	assert.Contains(t, out, "x2")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "Look!")
	assert.Contains(t, out, "CG assets/cg/CG_Beach.png covers the stack")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "t=--")
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		index, total, width int
		filled              int
	}{
		{0, 0, 10, 0},
		{0, 10, 10, 1},
		{4, 10, 10, 5},
		{9, 10, 10, 10},
		{0, 3, 9, 3},
		{-1, 3, 9, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.index, tt.total, tt.width)
		assert.Equal(t, tt.filled, strings.Count(bar, "█"), "%d/%d", tt.index, tt.total)
		assert.Equal(t, tt.width, strings.Count(bar, "█")+strings.Count(bar, "░"))
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "t=--", formatTime(nil))
	v := 12.345
	assert.Equal(t, "t=12.35s", formatTime(&v))
}
