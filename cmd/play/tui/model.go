package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/sceneplay/cmd/common"
	"github.com/gigurra/sceneplay/cmd/play/player"
)

const (
	MinSpeed = 0.125
	MaxSpeed = 16.0
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	visibleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))  // Green
	hiddenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // Gray
	cgStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	speakerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")) // Yellow
)

var labelStyles = map[string]lipgloss.Style{
	string(player.ModeIdle):     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240")),
	string(player.ModeReplay):   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
	string(player.ModeRealtime): lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	player.PausedLabel:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
}

// Controller is the part of the player the keys drive.
type Controller interface {
	StartReplay()
	StartRealtime()
	Pause()
	Resume()
	Stop()
	SeekTo(i int)
	SetSpeed(speed float64) bool
	SetAssetRoot(root string)
	State() player.State
}

type changedMsg struct{}

// Model is the bubbletea program state.
type Model struct {
	ctrl   Controller
	screen *Screen
	title  string
	copy   func(string) error

	view   View
	state  player.State
	width  int
	height int
	help   bool
	status string

	// asset root being typed after "a", nil when not editing
	input *string
}

// NewModel creates a model over an already loaded controller.
func NewModel(ctrl Controller, screen *Screen, title string) Model {
	m := Model{
		ctrl:   ctrl,
		screen: screen,
		title:  title,
		copy:   clipboard.WriteAll,
	}
	return m.refresh()
}

// WithClipboard replaces the clipboard writer.
func (m Model) WithClipboard(write func(string) error) Model {
	m.copy = write
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.screen)
}

func waitForChange(s *Screen) tea.Cmd {
	return func() tea.Msg {
		<-s.Changes()
		return changedMsg{}
	}
}

func (m Model) refresh() Model {
	m.view = m.screen.Snapshot()
	m.state = m.ctrl.State()
	return m
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		return m.refresh(), waitForChange(m.screen)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.help {
			m.help = false
			return m, nil
		}
		if m.input != nil && msg.String() != "ctrl+c" {
			return m.editAssetRoot(msg), nil
		}
		m.status = ""

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.ctrl.StartReplay()
		case "t":
			m.ctrl.StartRealtime()
		case " ":
			m.togglePause()
		case "s":
			m.ctrl.Stop()
		case "left", "h":
			if shown := m.ctrl.State().Shown; shown > 0 {
				m.ctrl.SeekTo(shown - 1)
			}
		case "right", "l":
			m.ctrl.SeekTo(m.ctrl.State().Shown + 1)
		case "home", "g":
			m.ctrl.SeekTo(0)
		case "end", "G":
			m.ctrl.SeekTo(m.state.Total - 1)
		case "+", "=":
			m.setSpeed(min(m.state.Speed*2, MaxSpeed))
		case "-", "_":
			m.setSpeed(max(m.state.Speed/2, MinSpeed))
		case "c":
			m.status = m.copySubtitle()
		case "a":
			root := m.state.AssetRoot
			m.input = &root
		case "?":
			m.help = true
		}
		return m.refresh(), nil
	}

	return m, nil
}

func (m Model) editAssetRoot(msg tea.KeyMsg) Model {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = nil
	case tea.KeyEnter:
		root := strings.TrimSpace(*m.input)
		m.input = nil
		if root == "" {
			m.status = "asset root unchanged"
			break
		}
		m.ctrl.SetAssetRoot(root)
		m.status = "asset root " + root + ", applies from the next event"
	case tea.KeyBackspace:
		r := []rune(*m.input)
		if len(r) > 0 {
			root := string(r[:len(r)-1])
			m.input = &root
		}
	case tea.KeySpace:
		root := *m.input + " "
		m.input = &root
	case tea.KeyRunes:
		root := *m.input + string(msg.Runes)
		m.input = &root
	}
	return m.refresh()
}

func (m Model) togglePause() {
	switch {
	case m.state.Playing:
		m.ctrl.Pause()
	case m.state.Mode == player.ModeIdle:
		m.ctrl.StartReplay()
	default:
		m.ctrl.Resume()
	}
}

func (m Model) setSpeed(speed float64) {
	if speed != m.state.Speed {
		m.ctrl.SetSpeed(speed)
	}
}

func (m Model) copySubtitle() string {
	if m.view.Subtitle == "" {
		return "nothing to copy"
	}
	if err := m.copy(m.view.Subtitle); err != nil {
		return fmt.Sprintf("copy failed: %v", err)
	}
	return "subtitle copied"
}

func (m Model) View() string {
	if m.help {
		return renderHelp()
	}

	width := m.width
	if width < 20 {
		width = 80
	}
	inner := width - 4

	var b strings.Builder

	// Title bar
	label := m.view.Label
	if label == "" {
		label = m.state.Label()
	}
	style, ok := labelStyles[label]
	if !ok {
		style = headerStyle
	}
	right := style.Render(strings.ToUpper(label)) + helpStyle.Render(fmt.Sprintf("  x%.3g", m.state.Speed))
	left := titleStyle.Render(common.Truncate("sceneplay · "+m.title, max(inner-lipgloss.Width(right)-1, 1)))
	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	b.WriteString("\n  " + left + strings.Repeat(" ", gap) + right + "\n\n")

	// Layer stack
	b.WriteString("  " + headerStyle.Render("LAYERS") + "\n")
	cg, cgShown := m.view.CG()
	for _, l := range m.view.Layers {
		b.WriteString("  " + renderLayer(l, inner-8) + "\n")
	}
	if cgShown {
		b.WriteString("  " + cgStyle.Render(common.Truncate("CG "+cg.Source+" covers the stack", inner)) + "\n")
	}
	b.WriteString("\n")

	// Speaker and subtitle
	if m.view.Speaker != "" {
		b.WriteString("  " + speakerStyle.Render(common.Truncate(m.view.Speaker, inner)) + "\n")
	}
	for _, line := range strings.Split(m.view.Subtitle, "\n") {
		b.WriteString("  " + subtitleStyle.Render(common.Truncate(line, inner)) + "\n")
	}
	b.WriteString("\n")

	// Progress
	counter := fmt.Sprintf(" %d/%d  %s", m.view.Index+1, m.view.Total, formatTime(m.view.Time))
	if m.view.Total == 0 {
		counter = " 0/0  " + formatTime(nil)
	}
	barWidth := max(inner-lipgloss.Width(counter), 10)
	b.WriteString("  " + barStyle.Render(progressBar(m.view.Index, m.view.Total, barWidth)) + counter + "\n\n")

	if m.view.Notice != "" {
		b.WriteString("  " + statusStyle.Render(common.Truncate(m.view.Notice, inner)) + "\n")
	}
	if m.status != "" {
		b.WriteString("  " + statusStyle.Render(m.status) + "\n")
	}
	if m.input != nil {
		b.WriteString("  " + headerStyle.Render("asset root: ") + *m.input + "█\n")
		b.WriteString(helpStyle.Render("  enter apply • esc cancel"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(helpStyle.Render("  r replay • t realtime • space pause • s stop • ←/→ seek • +/- speed • a assets • ? help • q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderLayer(l LayerView, width int) string {
	name := fmt.Sprintf("%-4s", l.Layer)
	if !l.Visible {
		return hiddenStyle.Render("○ " + name + "-")
	}
	return visibleStyle.Render("● "+name) + common.TruncateFromStart(l.Source, max(width, 1))
}

// progressBar fills one cell per reached event, scaled to width.
func progressBar(index, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 && index >= 0 {
		filled = min((index+1)*width/total, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatTime(seconds *float64) string {
	if seconds == nil {
		return "t=--"
	}
	return fmt.Sprintf("t=%.2fs", *seconds)
}

var helpKeys = []struct {
	key  string
	desc string
}{
	{"r", "replay from the first event"},
	{"t", "realtime: follow the newest event"},
	{"space", "pause / resume"},
	{"s", "stop and rewind audio"},
	{"←/→ h/l", "previous / next event"},
	{"home/end", "first / last event"},
	{"+/-", fmt.Sprintf("double / halve speed (%.3g..%.3g)", MinSpeed, MaxSpeed)},
	{"c", "copy subtitle to clipboard"},
	{"a", "change the asset root"},
	{"?", "this help"},
	{"q", "quit"},
}

func renderHelp() string {
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("KEYS") + "\n\n")
	for _, k := range helpKeys {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", k.key, k.desc))
	}
	b.WriteString("\n" + helpStyle.Render("  press any key to return") + "\n")
	return b.String()
}
