package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// palette is one color scheme, Tokyo Night based.
type palette struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Green, Yellow, Red         lipgloss.Color
}

var darkColors = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
}

var lightColors = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
}

// Active styles, set by InitTheme.
var (
	TitleStyle        lipgloss.Style
	GroupStyle        lipgloss.Style
	GroupEmptyStyle   lipgloss.Style
	SessionStyle      lipgloss.Style
	SelectedStyle     lipgloss.Style
	FavoriteStyle     lipgloss.Style
	StatusStyle       lipgloss.Style
	ErrorStyle        lipgloss.Style
	HelpStyle         lipgloss.Style
	FilterPromptStyle lipgloss.Style
	BorderStyle       lipgloss.Style
)

// InitTheme sets the active palette and rebuilds styles. Must be called
// before any rendering; safe to call again on live theme switches.
func InitTheme(theme string) {
	c := darkColors
	if theme == "light" {
		c = lightColors
	}

	TitleStyle = lipgloss.NewStyle().Foreground(c.Accent).Bold(true)
	GroupStyle = lipgloss.NewStyle().Foreground(c.Text).Bold(true)
	GroupEmptyStyle = lipgloss.NewStyle().Foreground(c.TextDim).Bold(true)
	SessionStyle = lipgloss.NewStyle().Foreground(c.Text)
	SelectedStyle = lipgloss.NewStyle().Foreground(c.Text).Background(c.Surface).Bold(true)
	FavoriteStyle = lipgloss.NewStyle().Foreground(c.Yellow)
	StatusStyle = lipgloss.NewStyle().Foreground(c.Green)
	ErrorStyle = lipgloss.NewStyle().Foreground(c.Red)
	HelpStyle = lipgloss.NewStyle().Foreground(c.TextDim)
	FilterPromptStyle = lipgloss.NewStyle().Foreground(c.Accent)
	BorderStyle = lipgloss.NewStyle().Foreground(c.Border)
}

func init() {
	InitTheme("dark")
}
