package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayStyle defines the style for the help overlay container.
var HelpOverlayStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(1, 2).
	MarginTop(1)

// HelpModel renders key bindings as a full overlay or a one-line footer.
type HelpModel struct {
	help   help.Model
	keymap help.KeyMap
}

// NewHelpModel creates a help model for any key map.
func NewHelpModel(keymap help.KeyMap) HelpModel {
	return HelpModel{
		help:   help.New(),
		keymap: keymap,
	}
}

// View renders the full help overlay.
func (m HelpModel) View(width int) string {
	m.help.Width = width - 8 // border and padding
	m.help.ShowAll = true
	return HelpOverlayStyle.Render(TitleStyle.Render("Plan editor keys") + "\n" + m.help.View(m.keymap))
}

// ShortView renders the one-line footer.
func (m HelpModel) ShortView(width int) string {
	m.help.Width = width
	m.help.ShowAll = false
	return m.help.View(m.keymap)
}
