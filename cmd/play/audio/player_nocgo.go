//go:build !((linux && cgo) || windows || darwin)

package audio

import "time"

// Available reports whether this build can produce sound. Audio output needs
// cgo on linux and is missing on other platforms.
const Available = false

// Player never attaches a track in this build. Scenes still play silently.
type Player struct{}

func NewPlayer() *Player {
	return &Player{}
}

// Open always fails with ErrUnavailable.
func (p *Player) Open(track *Track) error {
	return ErrUnavailable
}

func (p *Player) Attached() bool             { return false }
func (p *Player) Seek(seconds float64) error { return nil }
func (p *Player) Play() error                { return nil }
func (p *Player) Pause() error               { return nil }
func (p *Player) Duration() time.Duration    { return 0 }
func (p *Player) Close() error               { return nil }
