// Package scene holds the scene event model and the pure functions the
// player builds on: layer resolution, inter-event timing and ingestion.
package scene

import "strings"

const (
	// KindScene is the record discriminator kept by ingestion.
	KindScene = "scene"

	// NoneSuffix marks a layer code that means "no image".
	NoneSuffix = "_None"

	// NoCG is the CG code that means "no CG".
	NoCG = "CG_None"
)

// Event is one timestamped scene record. Events are never mutated after parsing.
type Event struct {
	Kind      string   `json:"type"`
	Seq       *int     `json:"seq,omitempty"`
	SpeakerID string   `json:"speaker_id,omitempty"`
	Text      string   `json:"text,omitempty"`
	STA       string   `json:"sta,omitempty"`
	EXP       string   `json:"exp,omitempty"`
	ACT       string   `json:"act,omitempty"`
	BG        string   `json:"bg,omitempty"`
	CG        string   `json:"cg,omitempty"`
	Start     *float64 `json:"start,omitempty"` // seconds, nil when untimed
	End       *float64 `json:"end,omitempty"`
}

// HasCG reports whether the event carries a full-scene CG.
func (e Event) HasCG() bool {
	return e.CG != "" && e.CG != NoCG
}

// Code returns the raw code of a layer.
func (e Event) Code(layer Layer) string {
	switch layer {
	case LayerBG:
		return e.BG
	case LayerSTA:
		return e.STA
	case LayerACT:
		return e.ACT
	case LayerEXP:
		return e.EXP
	case LayerCG:
		return e.CG
	}
	return ""
}

// Timed reports whether the event has a start timestamp.
func (e Event) Timed() bool {
	return e.Start != nil
}

// isNone reports whether a normal layer code means "no image".
func isNone(code string) bool {
	return code == "" || strings.HasSuffix(code, NoneSuffix)
}

// Sequence is the read accessor the player walks. Implementations may grow
// between calls but never reorder.
type Sequence interface {
	Len() int
	At(i int) Event
}

// Events is an immutable, already loaded sequence.
type Events []Event

func (e Events) Len() int { return len(e) }

func (e Events) At(i int) Event { return e[i] }
