package player

import "github.com/gigurra/sceneplay/cmd/scene"

// Sink receives everything the player renders.
type Sink interface {
	SetLayer(layer scene.Layer, visible bool, source string)
	SetSubtitle(text string)
	SetSpeaker(id string) // empty when the event has no speaker
	SetProgress(index, total int)
	SetCurrentTime(seconds *float64)
	SetModeLabel(label string)
}

// Transport is the optional audio track kept in sync with playback.
type Transport interface {
	Seek(seconds float64) error
	Play() error
	Pause() error
	Attached() bool
}

// NopSink discards all output.
type NopSink struct{}

func (NopSink) SetLayer(scene.Layer, bool, string) {}
func (NopSink) SetSubtitle(string)                 {}
func (NopSink) SetSpeaker(string)                  {}
func (NopSink) SetProgress(int, int)               {}
func (NopSink) SetCurrentTime(*float64)            {}
func (NopSink) SetModeLabel(string)                {}
