package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Design System Colors - Adaptive based on terminal background
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color
	ColorInfo    lipgloss.Color

	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorTextDim   lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorSurface   lipgloss.Color
)

// initializeColors picks the palette. style is the configured glamour style;
// "light" and "dark" force a palette, anything else detects the background.
func initializeColors(style string) {
	switch style {
	case "light":
		setLightThemeColors()
	case "dark":
		setDarkThemeColors()
	default:
		if lipgloss.HasDarkBackground() {
			setDarkThemeColors()
		} else {
			setLightThemeColors()
		}
	}
	buildStyles()
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205")
	ColorSecondary = lipgloss.Color("33")
	ColorAccent = lipgloss.Color("214")

	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError = lipgloss.Color("9")
	ColorInfo = lipgloss.Color("12")

	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorTextDim = lipgloss.Color("240")
	ColorBorder = lipgloss.Color("238")
	ColorSurface = lipgloss.Color("236")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125")
	ColorSecondary = lipgloss.Color("24")
	ColorAccent = lipgloss.Color("130")

	ColorSuccess = lipgloss.Color("22")
	ColorWarning = lipgloss.Color("136")
	ColorError = lipgloss.Color("160")
	ColorInfo = lipgloss.Color("24")

	ColorText = lipgloss.Color("232")
	ColorTextMuted = lipgloss.Color("240")
	ColorTextDim = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("248")
	ColorSurface = lipgloss.Color("254")
}

// Component Styles
var (
	StyleTitle     lipgloss.Style
	StyleText      lipgloss.Style
	StyleTextMuted lipgloss.Style
	StyleTextDim   lipgloss.Style

	StyleTabActive   lipgloss.Style
	StyleTabInactive lipgloss.Style
	StyleTabEditing  lipgloss.Style

	StyleSection        lipgloss.Style
	StyleSectionFocused lipgloss.Style
	StyleSectionTitle   lipgloss.Style

	StyleFocused    lipgloss.Style
	StyleSelected   lipgloss.Style
	StyleUnselected lipgloss.Style
	StyleDropTarget lipgloss.Style

	StyleSuccess lipgloss.Style
	StyleWarning lipgloss.Style
	StyleError   lipgloss.Style
	StyleInfo    lipgloss.Style

	StyleFormLabel lipgloss.Style
	StyleCode      lipgloss.Style

	StyleScrollIndicator       lipgloss.Style
	StyleScrollIndicatorActive lipgloss.Style
)

// buildStyles derives the component styles from the current palette
func buildStyles() {
	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
	StyleText = lipgloss.NewStyle().Foreground(ColorText)
	StyleTextMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleTextDim = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleTabActive = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(ColorPrimary).
		Bold(true).
		Padding(0, 2)
	StyleTabInactive = lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Background(ColorSurface).
		Padding(0, 2)
	StyleTabEditing = lipgloss.NewStyle().
		Foreground(ColorText).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorAccent).
		Padding(0, 1)

	StyleSection = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	StyleSectionFocused = StyleSection.BorderForeground(ColorSecondary)
	StyleSectionTitle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	StyleFocused = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(ColorSecondary).
		Bold(true).
		Padding(0, 1)
	StyleSelected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(ColorAccent).
		Bold(true).
		Padding(0, 1)
	StyleUnselected = lipgloss.NewStyle().Foreground(ColorTextMuted).Padding(0, 1)
	StyleDropTarget = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(ColorAccent)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true).Padding(0, 1)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Padding(0, 1)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Padding(0, 1)

	StyleFormLabel = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	StyleCode = lipgloss.NewStyle().Foreground(ColorAccent).Background(ColorSurface).Padding(0, 1)

	StyleScrollIndicator = lipgloss.NewStyle().Foreground(ColorTextDim).Align(lipgloss.Center)
	StyleScrollIndicatorActive = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Align(lipgloss.Center)
}

func init() {
	setDarkThemeColors()
	buildStyles()
}

// CreateContextualHelp renders essential keybinds on one row and, when
// expanded, each additional row below it.
func CreateContextualHelp(essential []string, additional []string, showExpanded bool, width int) string {
	firstRowParts := append([]string(nil), essential...)
	if len(additional) > 0 && !showExpanded {
		firstRowParts = append(firstRowParts, "? for more")
	}

	lines := []string{truncate(strings.Join(firstRowParts, " • "), width)}
	if showExpanded {
		for _, row := range additional {
			lines = append(lines, truncate(row, width))
		}
	}
	return StyleTextDim.Render(strings.Join(lines, "\n"))
}

func truncate(text string, width int) string {
	if width > 7 && len([]rune(text)) > width-4 {
		return string([]rune(text)[:width-7]) + "..."
	}
	return text
}

// CreateStatus renders a status line in the style for statusType
func CreateStatus(text string, statusType string) string {
	switch statusType {
	case "success":
		return StyleSuccess.Render(text)
	case "warning":
		return StyleWarning.Render(text)
	case "error":
		return StyleError.Render(text)
	case "info":
		return StyleInfo.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// CreateSwatch renders a color option as a small block of that color
func CreateSwatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

// CreateScrollIndicators returns the markers shown above and below a viewport
func CreateScrollIndicators(canScrollUp, canScrollDown bool) (string, string) {
	indicator := func(active bool) string {
		if active {
			return StyleScrollIndicatorActive.Render("...")
		}
		return StyleScrollIndicator.Render("─────────")
	}
	return indicator(canScrollUp), indicator(canScrollDown)
}

// CenterModal places content in the middle of the screen
func CenterModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// AddMainPadding adds left padding to main content
func AddMainPadding(content string) string {
	return lipgloss.NewStyle().PaddingLeft(1).Render(content)
}
