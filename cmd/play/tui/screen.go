// Package tui renders playback in the terminal.
package tui

import (
	"sync"

	"github.com/gigurra/sceneplay/cmd/scene"
)

// LayerView is what one image plane currently shows.
type LayerView struct {
	Layer   scene.Layer
	Visible bool
	Source  string
}

// View is a copy of everything the screen shows.
type View struct {
	Layers   []LayerView // scene.Layers order
	Subtitle string
	Speaker  string
	Index    int
	Total    int
	Time     *float64
	Label    string
	Notice   string

	// Loads counts source changes, i.e. images a graphical frontend would
	// have had to fetch.
	Loads int
}

// CG reports whether the CG layer is covering the stack.
func (v View) CG() (LayerView, bool) {
	for _, l := range v.Layers {
		if l.Layer == scene.LayerCG {
			return l, l.Visible
		}
	}
	return LayerView{Layer: scene.LayerCG}, false
}

// Screen is the player's sink. Calls arrive from timer goroutines, so state
// is guarded and the UI loop is told about changes through Changes.
type Screen struct {
	mu      sync.Mutex
	view    View
	index   map[scene.Layer]int
	changed chan struct{}
}

func NewScreen() *Screen {
	s := &Screen{
		index:   make(map[scene.Layer]int, len(scene.Layers)),
		changed: make(chan struct{}, 1),
	}
	for i, l := range scene.Layers {
		s.index[l] = i
		s.view.Layers = append(s.view.Layers, LayerView{Layer: l})
	}
	return s
}

// Changes delivers at most one pending signal after any update.
func (s *Screen) Changes() <-chan struct{} {
	return s.changed
}

// Snapshot returns a copy of the current view.
func (s *Screen) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view
	v.Layers = append([]LayerView(nil), s.view.Layers...)
	if s.view.Time != nil {
		t := *s.view.Time
		v.Time = &t
	}
	return v
}

func (s *Screen) update(f func(v *View)) {
	s.mu.Lock()
	f(&s.view)
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// SetLayer keeps the previous source when it is unchanged and hidden layers
// keep the last image they showed.
func (s *Screen) SetLayer(layer scene.Layer, visible bool, source string) {
	s.update(func(v *View) {
		i, ok := s.index[layer]
		if !ok {
			return
		}
		l := &v.Layers[i]
		l.Visible = visible
		if visible && source != l.Source {
			l.Source = source
			v.Loads++
		}
	})
}

func (s *Screen) SetSubtitle(text string) {
	s.update(func(v *View) { v.Subtitle = text })
}

func (s *Screen) SetSpeaker(id string) {
	s.update(func(v *View) { v.Speaker = id })
}

func (s *Screen) SetProgress(index, total int) {
	s.update(func(v *View) { v.Index, v.Total = index, total })
}

func (s *Screen) SetCurrentTime(seconds *float64) {
	s.update(func(v *View) {
		if seconds == nil {
			v.Time = nil
			return
		}
		t := *seconds
		v.Time = &t
	})
}

func (s *Screen) SetModeLabel(label string) {
	s.update(func(v *View) { v.Label = label })
}

// SetNotice shows a message that did not come from a key press, such as a
// failed desktop notification.
func (s *Screen) SetNotice(text string) {
	s.update(func(v *View) { v.Notice = text })
}
