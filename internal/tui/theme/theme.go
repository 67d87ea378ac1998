// Package theme provides the Lip Gloss palette and shared styles for the
// scoreboard TUI. It is a leaf package.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lobbywatch/backend/internal/lobby"
)

// Team colors.
var (
	ColorInvaders  = lipgloss.Color("#ef4444")
	ColorDefenders = lipgloss.Color("#3b82f6")
	ColorSpectator = lipgloss.Color("#9ca3af")
	ColorUnknown   = lipgloss.Color("#6b7280")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorSelf    = lipgloss.Color("#f59e0b")
)

// TeamColor returns the color used for a team's names and headers.
func TeamColor(t lobby.Team) lipgloss.Color {
	switch t {
	case lobby.TeamInvaders:
		return ColorInvaders
	case lobby.TeamDefenders:
		return ColorDefenders
	case lobby.TeamSpectator:
		return ColorSpectator
	default:
		return ColorUnknown
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleNewAccount = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWarning)
)
