package scene

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// CSVColumns is the column order of the timeline CSV export.
var CSVColumns = []string{"seq", "speaker_id", "text", "sta", "exp", "act", "bg", "cg", "start", "end"}

// Snapshot is the timeline.json document.
type Snapshot struct {
	EventCount int               `json:"event_count"`
	Events     []json.RawMessage `json:"events"`
}

// WriteSnapshot writes every record as an indented JSON snapshot.
func WriteSnapshot(w io.Writer, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Snapshot{EventCount: len(records), Events: records}); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// WriteCSV writes scene events as CSV with a header row.
func WriteCSV(w io.Writer, events Events) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	for _, ev := range events {
		row := []string{
			optInt(ev.Seq),
			ev.SpeakerID,
			ev.Text,
			ev.STA,
			ev.EXP,
			ev.ACT,
			ev.BG,
			ev.CG,
			optFloat(ev.Start),
			optFloat(ev.End),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
