package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/sceneplay/cmd/export"
	"github.com/gigurra/sceneplay/cmd/inspect"
	"github.com/gigurra/sceneplay/cmd/play"
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupPlayback = "playback"
	groupData     = "data"
)

// withGroup sets the GroupID on a command and returns it
func withGroup(cmd *cobra.Command, group string) *cobra.Command {
	cmd.GroupID = group
	return cmd
}

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "sceneplay",
		Short:   "Replay recorded scenes: subtitles, layered images and audio",
		Version: appVersion(),
		Groups: []*cobra.Group{
			{ID: groupPlayback, Title: "Playback:"},
			{ID: groupData, Title: "Data:"},
		},
		SubCmds: []*cobra.Command{
			withGroup(play.Cmd(), groupPlayback),

			withGroup(inspect.Cmd(), groupData),
			withGroup(export.Cmd(), groupData),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
