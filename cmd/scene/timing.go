package scene

import (
	"math"
	"time"
)

const (
	DefaultDelay = time.Second
	MinDelay     = 100 * time.Millisecond
	MaxDelay     = 24 * time.Hour
)

// Delay returns how long to show cur before advancing to next. next is nil
// when cur is the last event. Timestamp deltas drive the pacing when both
// events are timed, floored at MinDelay; otherwise DefaultDelay applies.
// The result is divided by speed, which must be positive (non-positive
// values count as 1), and capped at MaxDelay.
func Delay(cur Event, next *Event, speed float64) time.Duration {
	delay := DefaultDelay
	if next != nil && cur.Start != nil && next.Start != nil {
		delta := toDuration((*next.Start - *cur.Start) * float64(time.Second))
		delay = max(MinDelay, delta)
	}
	if !(speed > 0) {
		speed = 1
	}
	return toDuration(float64(delay) / speed)
}

// toDuration converts nanoseconds to a Duration within [0, MaxDelay].
func toDuration(ns float64) time.Duration {
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= float64(MaxDelay):
		return MaxDelay
	}
	return time.Duration(ns)
}

// DelayAt computes the delay after event i of seq.
func DelayAt(seq Sequence, i int, speed float64) time.Duration {
	cur := seq.At(i)
	if i+1 < seq.Len() {
		next := seq.At(i + 1)
		return Delay(cur, &next, speed)
	}
	return Delay(cur, nil, speed)
}
