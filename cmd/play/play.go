package play

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/sceneplay/cmd/common"
	"github.com/gigurra/sceneplay/cmd/common/config"
	"github.com/gigurra/sceneplay/cmd/play/audio"
	"github.com/gigurra/sceneplay/cmd/play/follow"
	"github.com/gigurra/sceneplay/cmd/play/player"
	"github.com/gigurra/sceneplay/cmd/play/tui"
	"github.com/gigurra/sceneplay/cmd/scene"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	Events    string  `pos:"true" required:"true" help:"Events file (.jsonl, '-' for stdin) or a session archive containing one."`
	Audio     string  `short:"a" optional:"true" help:"Audio track (mp3 or wav) kept in sync with playback."`
	AssetRoot string  `short:"r" optional:"true" help:"Prefix of layer image paths. Overrides the config file."`
	Speed     float64 `short:"x" optional:"true" help:"Playback speed factor. Overrides the config file."`
	Mode      string  `short:"m" optional:"true" help:"Mode to start in (auto, idle, replay, realtime). auto is realtime with --follow, idle otherwise." default:"auto" alts:"auto,idle,replay,realtime"`
	Follow    bool    `short:"f" optional:"true" help:"Tail the events file and append new events as they are written."`
	Notify    bool    `short:"n" optional:"true" help:"Show a desktop notification when a replay completes."`
	Config    string  `short:"c" optional:"true" help:"Config file. Defaults to ~/.sceneplay/config.yaml."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "play",
		Short: "Play back a recorded scene in the terminal",
		Long: `Play back a recorded scene in the terminal.

Each scene event shows a subtitle, its speaker and a layered image
composition (bg, sta, act, exp, or a full-screen cg). Replay paces events by
their recorded start times; realtime follows the newest event as the file
grows.

Controls:
  r / t       - Replay from the start / follow the newest event
  SPACE       - Pause or resume
  s           - Stop
  ←/→         - Previous / next event
  +/-         - Double / halve speed
  c           - Copy subtitle to clipboard
  a           - Change the asset root
  ?           - Help
  q           - Quit

The session log is written to ~/.cache/sceneplay/sceneplay.log.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(cmd.Context(), params); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Settings are the params merged over the config file.
type Settings struct {
	AssetRoot string
	Speed     float64
	Notify    bool
	Mode      player.Mode
	LogLevel  slog.Level
}

// Resolve merges params over cfg. Flags win when they were given.
func Resolve(params *Params, cfg *config.Config) (Settings, error) {
	s := Settings{
		AssetRoot: cfg.AssetRoot,
		Speed:     cfg.Speed,
		Notify:    cfg.Notify || params.Notify,
		LogLevel:  common.ParseLevel(cfg.LogLevel),
	}
	if params.AssetRoot != "" {
		s.AssetRoot = params.AssetRoot
	}
	if params.Speed != 0 {
		s.Speed = params.Speed
	}
	if s.Speed <= 0 || math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		return Settings{}, fmt.Errorf("speed must be a positive number, got %v", s.Speed)
	}

	switch params.Mode {
	case "", "auto":
		s.Mode = player.ModeIdle
		if params.Follow {
			s.Mode = player.ModeRealtime
		}
	case string(player.ModeIdle), string(player.ModeReplay), string(player.ModeRealtime):
		s.Mode = player.Mode(params.Mode)
	default:
		return Settings{}, fmt.Errorf("unknown mode %q", params.Mode)
	}

	if params.Follow && !canFollow(params.Events) {
		return Settings{}, fmt.Errorf("--follow needs a plain events file, got %s", params.Events)
	}
	return s, nil
}

func canFollow(path string) bool {
	return path != "-" && scene.IsPlainEventsFile(path)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func Run(ctx context.Context, params *Params) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(params.Config)
	if err != nil {
		return err
	}
	settings, err := Resolve(params, cfg)
	if err != nil {
		return err
	}

	sessionID := common.NewSessionID(time.Now())
	logger, logFile, err := common.SetupFileLogging(common.LogPath(), settings.LogLevel, "session", sessionID)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info("session started",
		"events", params.Events,
		"mode", settings.Mode,
		"speed", settings.Speed,
		"asset_root", settings.AssetRoot,
		"follow", params.Follow,
	)

	// Events
	var (
		seq      scene.Sequence
		follower *follow.Follower
	)
	if params.Follow {
		log := scene.NewLog()
		follower = follow.New(params.Events, log, nil)
		follower.Logger = logger
		if _, err := follower.ReadNew(); err != nil {
			return err
		}
		stats := follower.Stats()
		logger.Info("events read", "kept", stats.Kept, "malformed", stats.Malformed, "other", stats.OtherKind)
		seq = log
	} else {
		events, stats, err := scene.LoadFile(ctx, params.Events)
		if err != nil {
			return err
		}
		logger.Info("events read", "kept", stats.Kept, "malformed", stats.Malformed, "other", stats.OtherKind)
		seq = events
	}

	// Audio
	var transport player.Transport
	if params.Audio != "" {
		track, err := audio.Load(params.Audio)
		if err != nil {
			return err
		}
		out := audio.NewPlayer()
		if err := out.Open(track); err != nil {
			logger.Warn("audio unavailable, playing silently", "track", track.Path, "error", err)
		} else {
			logger.Info("audio attached", "track", track.Path, "duration", out.Duration())
			transport = out
			defer out.Close()
		}
	}

	title := filepath.Base(params.Events)
	screen := tui.NewScreen()
	p := player.New(player.Options{
		Sink:      screen,
		Transport: transport,
		Logger:    logger,
		AssetRoot: settings.AssetRoot,
		Speed:     settings.Speed,
		OnReplayComplete: func() {
			if settings.Notify {
				notifyComplete(logger, screen.SetNotice, title, seq.Len())
			}
		},
	})
	p.Load(seq)
	start(p, settings.Mode)
	defer p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if follower != nil {
		follower.OnAppend = func(int) { p.Refresh() }
		g.Go(func() error {
			return follower.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		program := tea.NewProgram(tui.NewModel(p, screen, title), tea.WithAltScreen(), tea.WithContext(gctx))
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	err = g.Wait()
	logger.Info("session ended", "index", p.State().Index, "error", err)
	return err
}

func start(p *player.Player, mode player.Mode) {
	switch mode {
	case player.ModeReplay:
		p.StartReplay()
	case player.ModeRealtime:
		p.StartRealtime()
	}
}
