// Package audio plays the optional soundtrack of a scene and exposes it as a
// seekable transport for the player.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is a supported container.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrUnavailable       = errors.New("audio output not available in this build")
)

// Track is an audio file loaded into memory.
type Track struct {
	Path     string
	Name     string // file name without extension
	Format   Format
	Data     []byte
	LoadedAt time.Time
}

// FormatOf picks the decoder from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return FormatMP3, nil
	case ".wav", ".wave":
		return FormatWAV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads an audio file. Decoding happens when the track is opened.
func Load(path string) (*Track, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio file is empty: %s", path)
	}
	base := filepath.Base(path)
	return &Track{
		Path:     path,
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Format:   format,
		Data:     data,
		LoadedAt: time.Now(),
	}, nil
}
