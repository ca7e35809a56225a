package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/sceneplay/cmd/common"
	"github.com/gigurra/sceneplay/cmd/scene"
	"github.com/spf13/cobra"
)

const (
	SnapshotFileName = "timeline.json"
	CSVFileName      = "timeline.csv"
)

type Params struct {
	Events  string `pos:"true" required:"true" help:"Events file (.jsonl, '-' for stdin) or a session archive containing one."`
	Out     string `short:"o" help:"Output directory." default:"."`
	Verbose bool   `short:"v" optional:"true" help:"Log debug details to stderr."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "export",
		Short: "Write timeline.json and timeline.csv for an events file",
		Long: `Write timeline.json and timeline.csv for an events file.

timeline.json holds every well-formed record of the input, whatever its
type, as {"event_count": N, "events": [...]}. timeline.csv holds scene
events only, one row each.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			common.SetupStderrLogging(common.VerboseLevel(params.Verbose), "cmd", "export")
			if err := Run(cmd.Context(), params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "export: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(ctx context.Context, params *Params, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := readSource(ctx, params.Events)
	if err != nil {
		return err
	}

	records, err := scene.ReadRecords(bytes.NewReader(data))
	if err != nil {
		return err
	}
	events, stats, err := scene.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	slog.Debug("events read", "path", params.Events, "bytes", len(data), "records", len(records), "scene", stats.Kept)
	if stats.Malformed > 0 {
		slog.Warn("skipped malformed lines", "path", params.Events, "malformed", stats.Malformed)
	}

	if err := os.MkdirAll(params.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	snapshotPath := filepath.Join(params.Out, SnapshotFileName)
	if err := writeFile(snapshotPath, func(w io.Writer) error {
		return scene.WriteSnapshot(w, records)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d records)\n", snapshotPath, len(records))

	csvPath := filepath.Join(params.Out, CSVFileName)
	if err := writeFile(csvPath, func(w io.Writer) error {
		return scene.WriteCSV(w, events)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d scene events)\n", csvPath, len(events))
	return nil
}

// readSource reads the whole input once so stdin can feed both outputs.
func readSource(ctx context.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	if scene.IsPlainEventsFile(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open events file: %w", err)
		}
		return data, nil
	}

	var data []byte
	err := scene.OpenArchiveEvents(ctx, path, func(r io.Reader) error {
		var err error
		data, err = io.ReadAll(r)
		return err
	})
	return data, err
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
