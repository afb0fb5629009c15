package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme_RolesAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.NotEqual(t, theme.Primary, theme.Secondary)
	assert.NotEqual(t, theme.Success, theme.Error)
	assert.NotEmpty(t, string(theme.Bar))
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_UsesTheme(t *testing.T) {
	theme := DefaultTheme()
	theme.Primary = lipgloss.Color("#000000")

	s := NewStyles(theme)

	assert.Same(t, theme, s.Theme())
	assert.Equal(t, lipgloss.Color("#000000"), s.AssistantLabel.GetForeground())
}

func TestStyles_AllStylesInitialised(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"Title":          s.Title,
		"Normal":         s.Normal,
		"Muted":          s.Muted,
		"Error":          s.Error,
		"Success":        s.Success,
		"UserLabel":      s.UserLabel,
		"AssistantLabel": s.AssistantLabel,
		"ToolNote":       s.ToolNote,
		"InputField":     s.InputField,
		"StatusBar":      s.StatusBar,
	} {
		assert.NotEqual(t, lipgloss.Style{}, style, name)
		assert.Contains(t, style.Render("text"), "text", name)
	}
}
