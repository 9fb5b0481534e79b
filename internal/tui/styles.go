package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle is used for screen titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	// SelectedItemStyle is used for highlighted items.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true)

	// NormalItemStyle is used for non-selected items.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// SuccessStyle is used for confirmations.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	// DimStyle is used for hints and secondary text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// AccentStyle highlights the focused element.
	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// optionColors maps GitHub's single-select option colors onto terminal colors.
var optionColors = map[string]lipgloss.Color{
	"GRAY":   lipgloss.Color("245"),
	"BLUE":   lipgloss.Color("33"),
	"GREEN":  lipgloss.Color("34"),
	"YELLOW": lipgloss.Color("220"),
	"ORANGE": lipgloss.Color("208"),
	"RED":    lipgloss.Color("196"),
	"PINK":   lipgloss.Color("205"),
	"PURPLE": lipgloss.Color("141"),
}

// optionColor returns the terminal color for an option color name, or the default header color.
func optionColor(name string) lipgloss.Color {
	if c, ok := optionColors[name]; ok {
		return c
	}
	return lipgloss.Color("205")
}
