package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"type":"scene","seq":0,"speaker_id":"alice","text":"Hello","bg":"BG_Lab","start":0.0,"end":1.2}
{"type":"meta","note":"kept in the snapshot"}
broken line
{"type":"scene","seq":1,"speaker_id":"bob","text":"Hi, there","cg":"CG_Beach","start":1.5}
`

func readOutputs(t *testing.T, dir string) (map[string]any, string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, SnapshotFileName))
	require.NoError(t, err)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(data, &snapshot))

	csvData, err := os.ReadFile(filepath.Join(dir, CSVFileName))
	require.NoError(t, err)
	return snapshot, string(csvData)
}

func TestRun_PlainFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(sample), 0644))
	outDir := filepath.Join(dir, "out", "nested")

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &Params{Events: in, Out: outDir}, &out))

	snapshot, csvText := readOutputs(t, outDir)
	assert.Equal(t, float64(3), snapshot["event_count"])
	events := snapshot["events"].([]any)
	require.Len(t, events, 3)
	assert.Equal(t, "meta", events[1].(map[string]any)["type"])

	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "seq,speaker_id,text,sta,exp,act,bg,cg,start,end", lines[0])
	assert.Equal(t, "0,alice,Hello,,,,BG_Lab,,0,1.2", lines[1])
	assert.Equal(t, `1,bob,"Hi, there",,,,,CG_Beach,1.5,`, lines[2])

	assert.Contains(t, out.String(), "(3 records)")
	assert.Contains(t, out.String(), "(2 scene events)")
}

func TestRun_WarnsAboutMalformedLines(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
	var logs bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))

	dir := t.TempDir()
	in := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(sample), 0644))

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &Params{Events: in, Out: dir}, &out))
	assert.Contains(t, logs.String(), `msg="skipped malformed lines"`)
	assert.Contains(t, logs.String(), "malformed=1")
	assert.NotContains(t, logs.String(), "events read")
}

func TestRun_Archive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "session.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("session/events.jsonl")
	require.NoError(t, err)
	_, err = w.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &Params{Events: archivePath, Out: dir}, &out))

	snapshot, csvText := readOutputs(t, dir)
	assert.Equal(t, float64(3), snapshot["event_count"])
	assert.Contains(t, csvText, "CG_Beach")
}

func TestRun_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(in, nil, 0644))

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &Params{Events: in, Out: dir}, &out))

	snapshot, csvText := readOutputs(t, dir)
	assert.Equal(t, float64(0), snapshot["event_count"])
	assert.Equal(t, []any{}, snapshot["events"])
	assert.Equal(t, "seq,speaker_id,text,sta,exp,act,bg,cg,start,end\n", csvText)
}

func TestRun_MissingInput(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), &Params{Events: filepath.Join(t.TempDir(), "nope.jsonl"), Out: t.TempDir()}, &out)
	assert.ErrorContains(t, err, "cannot open events file")
}
