package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/sceneplay/cmd/common"
	"github.com/gigurra/sceneplay/cmd/scene"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type Params struct {
	Events    string  `pos:"true" required:"true" help:"Events file (.jsonl, '-' for stdin) or a session archive containing one."`
	Speed     float64 `short:"x" help:"Speed factor used for the delay column." default:"1"`
	AssetRoot string  `short:"r" help:"Prefix of layer image paths." default:"assets"`
	Speaker   string  `short:"s" optional:"true" help:"Only show events by this speaker."`
	Sources   bool    `optional:"true" help:"Show the image path of every visible layer."`
	JSON      bool    `long:"json" optional:"true" help:"Output as JSON"`
	Verbose   bool    `short:"v" optional:"true" help:"Log debug details to stderr."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "inspect",
		Short:       "List scene events with their layers and replay delays",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			common.SetupStderrLogging(common.VerboseLevel(params.Verbose), "cmd", "inspect")
			if err := Run(cmd.Context(), params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Row describes one event as replay would present it.
type Row struct {
	Index   int           `json:"index"`
	Seq     *int          `json:"seq,omitempty"`
	Start   *float64      `json:"start,omitempty"`
	DelayMS int64         `json:"delay_ms"`
	Delay   time.Duration `json:"-"`
	Speaker string        `json:"speaker_id,omitempty"`
	Layers  string        `json:"layers"`
	Sources []string      `json:"sources"`
	CG      bool          `json:"cg"`
	Text    string        `json:"text"`
}

// BuildRows resolves every event. Delays are computed over the whole
// sequence, so they stay correct when rows are filtered afterwards.
func BuildRows(events scene.Events, assetRoot string, speed float64) []Row {
	rows := make([]Row, len(events))
	for i, ev := range events {
		comp := scene.Resolve(ev, assetRoot)
		delay := scene.DelayAt(events, i, speed)
		sources := []string{}
		for _, st := range comp {
			if st.Visible {
				sources = append(sources, st.Source)
			}
		}
		rows[i] = Row{
			Index:   i,
			Seq:     ev.Seq,
			Start:   ev.Start,
			DelayMS: delay.Milliseconds(),
			Delay:   delay,
			Speaker: ev.SpeakerID,
			Layers:  comp.Summary(),
			Sources: sources,
			CG:      ev.HasCG(),
			Text:    ev.Text,
		}
	}
	return rows
}

// Summary aggregates a set of rows.
type Summary struct {
	Events   int            `json:"events"`
	Shown    int            `json:"shown"`
	CG       int            `json:"cg"`
	Duration time.Duration  `json:"-"`
	Speakers map[string]int `json:"speakers"`
}

func Summarize(all, shown []Row) Summary {
	return Summary{
		Events:   len(all),
		Shown:    len(shown),
		CG:       lo.CountBy(shown, func(r Row) bool { return r.CG }),
		Duration: lo.SumBy(all, func(r Row) time.Duration { return r.Delay }),
		Speakers: lo.CountValuesBy(lo.Filter(shown, func(r Row, _ int) bool { return r.Speaker != "" }), func(r Row) string {
			return r.Speaker
		}),
	}
}

func Run(ctx context.Context, params *Params, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !(params.Speed > 0) || math.IsInf(params.Speed, 1) {
		return fmt.Errorf("speed must be positive, got %v", params.Speed)
	}

	events, stats, err := scene.LoadFile(ctx, params.Events)
	if err != nil {
		return err
	}
	slog.Debug("events read", "path", params.Events, "lines", stats.Lines, "kept", stats.Kept, "malformed", stats.Malformed, "other", stats.OtherKind)

	all := BuildRows(events, params.AssetRoot, params.Speed)
	shown := all
	if params.Speaker != "" {
		shown = lo.Filter(all, func(r Row, _ int) bool { return r.Speaker == params.Speaker })
	}
	summary := Summarize(all, shown)

	if params.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary Summary          `json:"summary"`
			Stats   scene.ParseStats `json:"stats"`
			Rows    []Row            `json:"rows"`
		}{summary, stats, shown})
	}

	if len(shown) == 0 {
		fmt.Fprintln(out, "No scene events found")
		return nil
	}

	RenderTable(out, shown, params.Sources, common.TerminalWidth())

	fmt.Fprintf(out, "\n%d of %d events, %d with CG, replay length %s at x%g\n",
		summary.Shown, summary.Events, summary.CG, summary.Duration.Round(time.Millisecond), params.Speed)
	if len(summary.Speakers) > 0 {
		fmt.Fprintf(out, "speakers: %s\n", formatCounts(summary.Speakers))
	}
	if stats.Malformed > 0 || stats.OtherKind > 0 {
		fmt.Fprintf(out, "skipped %d malformed and %d non-scene lines\n", stats.Malformed, stats.OtherKind)
	}
	return nil
}

// RenderTable writes rows as a go-pretty table no wider than width.
func RenderTable(out io.Writer, rows []Row, sources bool, width int) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)

	header := table.Row{"#", "Seq", "Start", "Delay", "Speaker", "Layers", "Text"}
	if sources {
		header = append(header, "Sources")
	}
	t.AppendHeader(header)

	for _, r := range rows {
		layers := r.Layers
		if r.CG {
			layers = text.FgMagenta.Sprint(layers)
		}
		row := table.Row{
			r.Index,
			optInt(r.Seq),
			optSeconds(r.Start),
			fmt.Sprintf("%dms", r.DelayMS),
			r.Speaker,
			layers,
			common.Truncate(common.OneLine(r.Text), 60),
		}
		if sources {
			row = append(row, strings.Join(r.Sources, "\n"))
		}
		t.AppendRow(row)
	}

	t.Render()
}

func formatCounts(counts map[string]int) string {
	keys := lo.Keys(counts)
	slices.Sort(keys)
	parts := lo.Map(keys, func(k string, _ int) string {
		return fmt.Sprintf("%s=%d", k, counts[k])
	})
	return strings.Join(parts, ", ")
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func optSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fs", *v)
}
