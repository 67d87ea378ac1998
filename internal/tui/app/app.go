// Package app is the root Bubble Tea model of the scoreboard TUI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/tui/client"
	"github.com/lobbywatch/backend/internal/tui/theme"
)

const (
	nameWidth  = 22
	chatLines  = 8
	columnGap  = 4
	minColumns = 40
)

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time

	keys   KeyMap
	width  int
	height int

	snap     *lobby.Snapshot
	rows     []lobby.Player // selection order
	selected int
	swapped  bool
	showChat bool
	detail   bool

	connected bool
	lastErr   string
}

func New(ws *client.WSClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:       ws,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		keys:     DefaultKeyMap(),
		showChat: true,
	}
}

// Init starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return m.ws.Listen(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnectedMsg:
		m.connected = true
		m.lastErr = ""
		return m, m.ws.ReadLoop(m.ctx)

	case client.DisconnectedMsg:
		m.connected = false
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}
		return m, m.ws.Listen(m.ctx)

	case client.SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		return m, m.ws.ReadLoop(m.ctx)

	case client.ErrorMsg:
		m.lastErr = msg.Message
		return m, m.ws.ReadLoop(m.ctx)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}
	if m.detail {
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Enter) {
			m.detail = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.rows) > 0 {
			m.selected = (m.selected + 1) % len(m.rows)
		}
	case key.Matches(msg, m.keys.Up):
		if len(m.rows) > 0 {
			m.selected = (m.selected - 1 + len(m.rows)) % len(m.rows)
		}
	case key.Matches(msg, m.keys.Enter):
		m.detail = len(m.rows) > 0
	case key.Matches(msg, m.keys.Swap):
		m.swapped = !m.swapped
		m.rebuildRows()
	case key.Matches(msg, m.keys.Chat):
		m.showChat = !m.showChat
	}
	return m, nil
}

// setSnapshot replaces the displayed snapshot, keeping the selection on the
// same player when they are still present.
func (m *Model) setSnapshot(s *lobby.Snapshot) {
	var keep lobby.SteamID
	if p, ok := m.current(); ok {
		keep = p.SteamID
	}
	m.snap = s
	m.rebuildRows()

	m.selected = 0
	for i, p := range m.rows {
		if p.SteamID == keep {
			m.selected = i
			break
		}
	}
	if len(m.rows) == 0 {
		m.detail = false
	}
}

func (m *Model) view() *lobby.Snapshot {
	if m.snap == nil {
		return nil
	}
	if m.swapped {
		return m.snap.SwapTeams()
	}
	return m.snap
}

func (m *Model) rebuildRows() {
	m.rows = nil
	s := m.view()
	if s == nil {
		return
	}
	t := s.Teams()
	for _, group := range [][]lobby.Player{t.Invaders, t.Defenders, t.Spectators, t.Joined} {
		m.rows = append(m.rows, group...)
	}
}

func (m Model) current() (lobby.Player, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return lobby.Player{}, false
	}
	return m.rows[m.selected], true
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.renderStatus()}
	if m.detail {
		if p, ok := m.current(); ok {
			sections = append(sections, m.renderDetail(p))
		}
	} else {
		sections = append(sections, m.renderScoreboard())
		if m.showChat {
			sections = append(sections, m.renderChat())
		}
	}
	sections = append(sections,
		theme.StyleDimmed.Render("  j/k:select  enter:detail  s:swap  c:chat  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	var conn string
	if m.connected {
		conn = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		conn = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	parts := []string{conn}
	if m.snap != nil {
		game := "game not running"
		if m.snap.GameRunning {
			game = "game running"
		}
		parts = append(parts,
			fmt.Sprintf("%d players", len(m.snap.Players)),
			fmt.Sprintf("lobby #%d", m.snap.Generation),
			fmt.Sprintf("seq %d", m.snap.Seq),
			game)
	}
	if m.swapped {
		parts = append(parts, "swapped")
	}
	if m.lastErr != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(m.lastErr))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	return lipgloss.NewStyle().
		Width(max(m.width-2, 40)).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.Join(parts, sep))
}

func (m Model) renderScoreboard() string {
	s := m.view()
	if s == nil {
		return theme.StyleDimmed.Render("  Waiting for the first snapshot")
	}
	if len(s.Players) == 0 {
		return theme.StyleDimmed.Render("  Lobby is empty")
	}

	t := s.Teams()
	index := 0
	column := func(title string, team lobby.Team, players []lobby.Player) string {
		header := lipgloss.NewStyle().Bold(true).Foreground(theme.TeamColor(team)).
			Render(fmt.Sprintf("%s (%d)", title, len(players)))
		lines := []string{header}
		for _, p := range players {
			lines = append(lines, m.renderPlayer(p, index == m.selected, s.Self))
			index++
		}
		return lipgloss.NewStyle().Width(minColumns).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		column("INVADERS", lobby.TeamInvaders, t.Invaders),
		strings.Repeat(" ", columnGap),
		column("DEFENDERS", lobby.TeamDefenders, t.Defenders))

	sections := []string{top}
	if len(t.Spectators) > 0 {
		sections = append(sections, column("SPECTATORS", lobby.TeamSpectator, t.Spectators))
	}
	if len(t.Joined) > 0 {
		sections = append(sections, column("JOINING", lobby.TeamUnknown, t.Joined))
	}
	return theme.StyleBorder.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderPlayer(p lobby.Player, selected bool, self lobby.SteamID) string {
	prefix := "  "
	if selected {
		prefix = "> "
	}
	name := truncate(p.Name, nameWidth)
	style := lipgloss.NewStyle().Foreground(theme.TeamColor(p.Team))
	if p.SteamID == self && !self.IsZero() {
		style = style.Foreground(theme.ColorSelf)
	}
	if selected {
		style = style.Bold(true)
	}
	line := prefix + style.Render(fmt.Sprintf("%-*s", nameWidth, name)) +
		fmt.Sprintf(" %3d/%-3d", p.Kills, p.Deaths)
	if p.Profile.IsNewAccount(m.now()) {
		line += " " + theme.StyleNewAccount.Render("NEW")
	}
	return line
}

func (m Model) renderChat() string {
	s := m.view()
	if s == nil {
		return ""
	}
	lines := s.AttributeChat()
	if len(lines) > chatLines {
		lines = lines[len(lines)-chatLines:]
	}
	out := []string{theme.StyleHeader.Render("Chat")}
	for _, l := range lines {
		name := lipgloss.NewStyle().Foreground(theme.TeamColor(l.Team)).Render(l.Name)
		out = append(out, theme.StyleDimmed.Render(l.Prefix())+name+": "+l.Message)
	}
	if len(lines) == 0 {
		out = append(out, theme.StyleDimmed.Render("  (no messages)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
