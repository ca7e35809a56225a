package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"scene.mp3", FormatMP3},
		{"SCENE.MP3", FormatMP3},
		{"dir/take.wav", FormatWAV},
		{"take.wave", FormatWAV},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	for _, path := range []string{"scene.ogg", "scene", "mp3"} {
		_, err := FormatOf(path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, path)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opening.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3fake"), 0644))

	track, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "opening", track.Name)
	assert.Equal(t, FormatMP3, track.Format)
	assert.Equal(t, []byte("ID3fake"), track.Data)
	assert.False(t, track.LoadedAt.IsZero())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.wav")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = Load(empty)
	assert.ErrorContains(t, err, "empty")

	_, err = Load(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPlayer_DetachedIgnoresCalls(t *testing.T) {
	p := NewPlayer()

	assert.False(t, p.Attached())
	assert.NoError(t, p.Seek(12.5))
	assert.NoError(t, p.Play())
	assert.NoError(t, p.Pause())
	assert.Zero(t, p.Duration())
	assert.NoError(t, p.Close())
}
