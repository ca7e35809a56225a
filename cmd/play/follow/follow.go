// Package follow tails a growing events file into a scene.Log.
package follow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gigurra/sceneplay/cmd/scene"
)

// Follower appends scene events written to Path. Only complete lines are
// consumed; a trailing partial line waits for its newline.
type Follower struct {
	Path string
	Log  *scene.Log

	// OnAppend runs after new events were appended, with their count.
	OnAppend func(added int)
	Logger   *slog.Logger

	mu      sync.Mutex
	file    *os.File
	offset  int64
	partial []byte
	stats   scene.ParseStats
}

// New creates a follower for path appending to log.
func New(path string, log *scene.Log, onAppend func(int)) *Follower {
	return &Follower{Path: path, Log: log, OnAppend: onAppend}
}

func (f *Follower) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Stats returns counts over everything consumed so far.
func (f *Follower) Stats() scene.ParseStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// ReadNew consumes whatever was written since the last call and returns the
// number of scene events appended. The first call reads the file from the
// start.
func (f *Follower) ReadNew() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		file, err := os.Open(f.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", f.Path, err)
		}
		f.file = file
		if f.offset > 0 {
			if _, err := f.file.Seek(f.offset, io.SeekStart); err != nil {
				return 0, err
			}
		}
	}

	info, err := f.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", f.Path, err)
	}
	if info.Size() < f.offset {
		f.logger().Warn("events file shrank, reading from the start", "path", f.Path, "size", info.Size(), "offset", f.offset)
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		f.offset = 0
		f.partial = nil
	}

	data, err := io.ReadAll(f.file)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		f.partial = buf
		return 0, nil
	}
	f.partial = append([]byte(nil), buf[end+1:]...)

	var added []scene.Event
	for _, line := range bytes.Split(buf[:end], []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		f.stats.Lines++
		ev, ok, malformed := scene.ParseLine(line)
		switch {
		case ok:
			added = append(added, ev)
			f.stats.Kept++
		case malformed:
			f.stats.Malformed++
		default:
			f.stats.OtherKind++
		}
	}

	if len(added) > 0 {
		f.Log.Append(added...)
	}
	return len(added), nil
}

// Run watches the file until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.Path); err != nil {
		return fmt.Errorf("error watching '%s': %w", f.Path, err)
	}
	defer f.Close()

	f.logger().Info("following events file", "path", f.Path)

	// writes between the initial read and Add
	f.consume()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				f.consume()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger().Warn("watcher error", "error", err)
		}
	}
}

func (f *Follower) consume() {
	n, err := f.ReadNew()
	if err != nil {
		f.logger().Warn("failed to read appended events", "error", err)
		return
	}
	if n == 0 {
		return
	}
	f.logger().Debug("events appended", "added", n, "total", f.Log.Len())
	if f.OnAppend != nil {
		f.OnAppend(n)
	}
}

// Close releases the file handle.
func (f *Follower) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
