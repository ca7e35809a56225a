package common

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns an id like 20260118_153012_9f2c4e1a: the local start
// time followed by 8 random hex digits.
func NewSessionID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.Format("20060102_150405") + "_" + hex[:8]
}
