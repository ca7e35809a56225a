package scene

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 * 1024 * 1024

// EventsFileName is the entry looked up inside session archives.
const EventsFileName = "events.jsonl"

var (
	ErrNoEventsInArchive = errors.New("no .jsonl entry found in archive")
	ErrNotAnArchive      = errors.New("format does not support extraction")
)

// ParseStats counts what ingestion kept and dropped.
type ParseStats struct {
	Lines     int // non-blank lines seen
	Kept      int
	Malformed int
	OtherKind int
}

// ParseLine decodes one JSONL line. ok is false when the line is blank,
// malformed, or not a scene record.
func ParseLine(line []byte) (ev Event, ok bool, malformed bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false, false
	}
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, false, true
	}
	if ev.Kind != KindScene {
		return Event{}, false, false
	}
	return ev, true, false
}

// Parse reads line-delimited JSON and keeps scene records in order of
// appearance. Malformed lines are skipped; only read errors are returned.
func Parse(r io.Reader) (Events, ParseStats, error) {
	var stats ParseStats
	events := Events{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		stats.Lines++
		ev, ok, malformed := ParseLine(line)
		switch {
		case ok:
			events = append(events, ev)
			stats.Kept++
		case malformed:
			stats.Malformed++
		default:
			stats.OtherKind++
		}
	}
	if err := scanner.Err(); err != nil {
		return events, stats, fmt.Errorf("reading events: %w", err)
	}
	return events, stats, nil
}

// ReadRecords returns every well-formed JSON line regardless of kind.
func ReadRecords(r io.Reader) ([]json.RawMessage, error) {
	var records []json.RawMessage
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// IsPlainEventsFile reports whether path is read directly rather than as an archive.
func IsPlainEventsFile(p string) bool {
	if p == "-" {
		return true
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jsonl", ".ndjson", ".json", ".txt", ".log":
		return true
	}
	return false
}

// LoadFile loads scene events from a JSONL file, stdin ("-") or a session
// archive containing events.jsonl.
func LoadFile(ctx context.Context, p string) (Events, ParseStats, error) {
	if p == "-" {
		return Parse(os.Stdin)
	}
	if IsPlainEventsFile(p) {
		f, err := os.Open(p)
		if err != nil {
			return nil, ParseStats{}, fmt.Errorf("cannot open events file: %w", err)
		}
		defer f.Close()
		return Parse(f)
	}

	var events Events
	var stats ParseStats
	err := OpenArchiveEvents(ctx, p, func(r io.Reader) error {
		var err error
		events, stats, err = Parse(r)
		return err
	})
	return events, stats, err
}

// errFound stops archive extraction once the events entry was handled.
var errFound = errors.New("found")

// OpenArchiveEvents finds the events entry of a session archive and hands
// its contents to handle. events.jsonl is preferred; otherwise the first
// *.jsonl entry is used.
func OpenArchiveEvents(ctx context.Context, archivePath string, handle func(io.Reader) error) error {
	name, err := findArchiveEvents(ctx, archivePath)
	if err != nil {
		return err
	}
	slog.Debug("events found in archive", "archive", archivePath, "entry", name)

	return extractArchive(ctx, archivePath, func(ctx context.Context, f archives.FileInfo) error {
		if f.NameInArchive != name {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("cannot open %s in archive: %w", name, err)
		}
		defer rc.Close()
		if err := handle(rc); err != nil {
			return err
		}
		return errFound
	})
}

func findArchiveEvents(ctx context.Context, archivePath string) (string, error) {
	var first, preferred string
	err := extractArchive(ctx, archivePath, func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() || !strings.EqualFold(path.Ext(f.NameInArchive), ".jsonl") {
			return nil
		}
		if first == "" {
			first = f.NameInArchive
		}
		if path.Base(f.NameInArchive) == EventsFileName {
			preferred = f.NameInArchive
			return errFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if preferred != "" {
		return preferred, nil
	}
	if first != "" {
		return first, nil
	}
	return "", ErrNoEventsInArchive
}

func extractArchive(ctx context.Context, archivePath string, handler archives.FileHandler) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}
	defer archiveFile.Close()

	format, reader, err := archives.Identify(ctx, archivePath, archiveFile)
	if err != nil {
		return fmt.Errorf("cannot identify archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return ErrNotAnArchive
	}

	// zip and 7z need the seekable file, not the identification reader
	var archiveReader io.Reader = reader
	switch format.(type) {
	case archives.Zip, archives.SevenZip:
		if _, err := archiveFile.Seek(0, io.SeekStart); err != nil {
			return err
		}
		archiveReader = archiveFile
	}

	err = extractor.Extract(ctx, archiveReader, handler)
	if errors.Is(err, errFound) {
		return nil
	}
	return err
}
