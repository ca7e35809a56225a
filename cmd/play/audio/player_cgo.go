//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Available reports whether this build can produce sound.
const Available = true

const sampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	return speakerErr
}

// Player drives one track through the speaker. The zero value has nothing
// attached and ignores every call.
type Player struct {
	mu sync.Mutex

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	ended    bool
}

// NewPlayer returns a player with no track attached.
func NewPlayer() *Player {
	return &Player{}
}

// Open decodes the track and queues it paused at the start.
func (p *Player) Open(track *Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()

	reader := nopCloser{bytes.NewReader(track.Data)}
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch track.Format {
	case FormatMP3:
		streamer, format, err = mp3.Decode(reader)
	case FormatWAV:
		streamer, format, err = wav.Decode(reader)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, track.Format)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", track.Name, err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return fmt.Errorf("failed to init speaker: %w", err)
	}

	p.streamer = streamer
	p.format = format
	p.startLocked(true)
	return nil
}

// startLocked hands a fresh control to the speaker. The speaker drops a
// streamer once it is drained, so this also revives an ended track.
func (p *Player) startLocked(paused bool) {
	resampled := beep.Resample(4, p.format.SampleRate, sampleRate, p.streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled, Paused: paused}
	p.ended = false
	ctrl := p.ctrl
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		go p.markEnded(ctrl)
	})))
}

func (p *Player) markEnded(ctrl *beep.Ctrl) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == ctrl {
		p.ended = true
	}
}

// Attached reports whether a track is open.
func (p *Player) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamer != nil
}

// Seek moves to an offset in seconds, clamped to the track.
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return nil
	}

	speaker.Lock()
	samples := p.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	samples = min(max(samples, 0), p.streamer.Len())
	err := p.streamer.Seek(samples)
	paused := p.ctrl.Paused
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("failed to seek to %.3fs: %w", seconds, err)
	}

	if p.ended {
		p.startLocked(paused)
	}
	return nil
}

// Play resumes output, restarting from the top if the track had ended.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return nil
	}
	if p.ended {
		speaker.Lock()
		err := p.streamer.Seek(0)
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
		p.startLocked(false)
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause halts output and keeps the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Duration returns the length of the open track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// Close stops output and releases the decoder.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Player) closeLocked() error {
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
	var err error
	if p.streamer != nil {
		err = p.streamer.Close()
	}
	p.streamer = nil
	p.ctrl = nil
	p.ended = false
	return err
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
