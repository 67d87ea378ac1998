package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/tui/theme"
)

const (
	panelWidth = 60
	labelWidth = 16
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)
)

func (m Model) renderDetail(p lobby.Player) string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.TeamColor(p.Team)).Render(p.Name)
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	writeRow(&b, "SteamID", p.SteamID.String())
	writeRow(&b, "Steam3", p.SteamID.Steam3())
	writeRow(&b, "Team", p.Team.String())
	writeRow(&b, "User ID", fmt.Sprintf("%d", p.UserID))
	writeRow(&b, "K / D", fmt.Sprintf("%d / %d", p.Kills, p.Deaths))
	writeRow(&b, "Crits", fmt.Sprintf("%d dealt, %d taken", p.CritKills, p.CritDeaths))
	writeRow(&b, "Last seen", p.LastSeen.Local().Format("15:04:05"))

	created := p.Profile.AccountCreatedString()
	if p.Profile.IsNewAccount(m.now()) {
		created += " " + theme.StyleNewAccount.Render("(new account)")
	}
	writeRow(&b, "Account created", created)
	if p.Profile != nil && p.Profile.Name != "" && p.Profile.Name != p.Name {
		writeRow(&b, "Profile name", p.Profile.Name)
	}

	if weapons := weaponSummary(p.KillsWith); len(weapons) > 0 {
		b.WriteString("\n" + theme.StyleHeader.Render("Kills by weapon") + "\n")
		for _, w := range weapons {
			writeRow(&b, w.weapon, fmt.Sprintf("%d (%d crit)", w.kills, w.crits))
		}
	}

	return stylePanel.Width(panelWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label) + styleValue.Render(value) + "\n")
}

type weaponCount struct {
	weapon string
	kills  int
	crits  int
}

// weaponSummary groups kills by weapon, most used first.
func weaponSummary(kills []lobby.Kill) []weaponCount {
	byWeapon := make(map[string]*weaponCount)
	var order []*weaponCount
	for _, k := range kills {
		wc, ok := byWeapon[k.Weapon]
		if !ok {
			wc = &weaponCount{weapon: k.Weapon}
			byWeapon[k.Weapon] = wc
			order = append(order, wc)
		}
		wc.kills++
		if k.Crit {
			wc.crits++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].kills > order[j].kills })

	out := make([]weaponCount, len(order))
	for i, wc := range order {
		out[i] = *wc
	}
	return out
}
