package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/state"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return CenterModal(m.renderHelp(), m.width, m.height)
	}
	if m.editor != nil {
		return m.renderEditor()
	}
	if m.methodSelect != nil {
		box := StyleSectionFocused.Render(m.methodSelect.View())
		return CenterModal(box, m.width, m.height)
	}

	parts := []string{
		m.renderTabs(),
		m.renderConfig(),
		m.renderSegments(),
		m.renderForm(),
		m.renderOutput(),
	}
	if m.input != nil {
		parts = append(parts, StyleSectionFocused.Width(m.width-4).Render(m.input.View()))
	}
	parts = append(parts, m.renderFooter())

	return AddMainPadding(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) sectionBox(s section, title, body string) string {
	style := StyleSection
	heading := StyleTextMuted.Render(title)
	if m.focus == s {
		style = StyleSectionFocused
		heading = StyleSectionTitle.Render(title)
	}
	return style.Width(m.width - 4).Render(heading + "\n" + body)
}

func (m Model) renderTabs() string {
	var tabs []string
	for i, tmpl := range m.st.Templates {
		name := tmpl.Name
		if name == "" {
			name = StyleTextDim.Render("(untitled)")
		}
		switch {
		case m.st.EditingTab != nil && *m.st.EditingTab == i:
			tabs = append(tabs, StyleTabEditing.Render(m.st.EditingName+"▏"))
		case i == m.st.ActiveTab:
			tabs = append(tabs, StyleTabActive.Render(name))
		default:
			tabs = append(tabs, StyleTabInactive.Render(name))
		}
	}

	title := StyleTitle.Render("Pocket Forms") + StyleTextDim.Render(m.activeLabel())
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.sectionBox(sectionTabs, "Templates", title+"\n"+row)
}

func (m Model) renderConfig() string {
	tmpl := m.st.Active()

	status := StyleWarning.Render("not submittable")
	if tmpl.HasSubmitConfig() {
		status = StyleSuccess.Render(string(tmpl.APIMethod) + " " + tmpl.APIURL)
	}
	if !m.st.ConfigExpanded {
		return m.sectionBox(sectionConfig, "Configuration ▸", status)
	}

	jsonPreview := compact(string(tmpl.JSONData), m.width-30)
	rows := []struct {
		label string
		value string
	}{
		{"JSON file", tmpl.JSONFileName},
		{"JSON data", jsonPreview},
		{"JSON path", tmpl.JSONPath},
		{"API URL", tmpl.APIURL},
		{"Method", string(tmpl.APIMethod)},
	}

	lines := []string{status}
	for i, row := range rows {
		value := row.value
		if value == "" {
			value = StyleTextDim.Render("(not set)")
		}
		label := fmt.Sprintf("%-10s", row.label)
		line := "  " + StyleFormLabel.Render(label) + " " + value
		if m.focus == sectionConfig && configItem(i) == m.configCursor {
			line = "▶ " + StyleFormLabel.Render(label) + " " + value
		}
		lines = append(lines, line)
	}
	return m.sectionBox(sectionConfig, "Configuration ▾", strings.Join(lines, "\n"))
}

func (m Model) renderSegments() string {
	segments := m.st.Active().Segments
	title := fmt.Sprintf("Segments (%d)", len(segments))
	if !m.st.SegmentsExpanded {
		return m.sectionBox(sectionSegments, title+" ▸", StyleTextDim.Render("collapsed"))
	}

	var lines []string
	for i, seg := range segments {
		name := seg.Title()
		if m.st.EditingSegmentID == seg.ID {
			name = StyleTabEditing.Render(m.st.EditingSegmentName + "▏")
		}

		fields := ""
		if n := len(seg.Fields); n > 0 {
			fields = StyleTextDim.Render(fmt.Sprintf(" [%d fields]", n))
		}
		line := name + fields + "  " + StyleTextMuted.Render(seg.Description())

		switch {
		case m.st.Drag.DraggedID == seg.ID:
			line = StyleSelected.Render("≡ " + seg.Title())
		case m.st.Drag.OverID == seg.ID:
			line = StyleDropTarget.Render("→ " + line)
		case m.focus == sectionSegments && i == m.segmentCursor:
			line = "▶ " + line
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return m.sectionBox(sectionSegments, title+" ▾", strings.Join(lines, "\n"))
}

func (m Model) renderForm() string {
	fields := state.ActiveFields(m.st)
	if len(fields) == 0 {
		return m.sectionBox(sectionForm, "Form", StyleTextDim.Render("No fields. Add [Label: option, option] to a segment."))
	}

	var lines []string
	for i, field := range fields {
		lines = append(lines, m.renderField(field, m.focus == sectionForm && i == m.fieldCursor))
	}
	return m.sectionBox(sectionForm, "Form", strings.Join(lines, "\n"))
}

func (m Model) renderField(field models.FieldDefinition, focused bool) string {
	current := m.st.Values[field.Name]

	var opts []string
	for _, opt := range field.Options {
		label := opt
		if colors := parser.OptionColors(opt); len(colors) > 0 {
			swatches := make([]string, len(colors))
			for i, c := range colors {
				swatches[i] = CreateSwatch(c)
			}
			label = strings.Join(swatches, "") + " " + opt
		}
		if opt == current {
			if focused {
				opts = append(opts, StyleFocused.Render(label))
			} else {
				opts = append(opts, StyleSelected.Render(label))
			}
			continue
		}
		opts = append(opts, StyleUnselected.Render(label))
	}

	prefix := "  "
	if focused {
		prefix = "▶ "
	}
	label := fmt.Sprintf("%-14s", field.Label)
	return prefix + StyleFormLabel.Render(label) + " " + lipgloss.JoinHorizontal(lipgloss.Top, opts...)
}

func (m Model) renderOutput() string {
	top, bottom := CreateScrollIndicators(!m.viewport.AtTop(), !m.viewport.AtBottom())
	body := top + "\n" + m.viewport.View() + "\n" + bottom

	if last := m.st.Active().LastSuccessfulRequest; last != nil {
		body += "\n" + StyleTextMuted.Render("Last response: ") + compact(string(last.Response), m.width-24)
	} else if m.lastResult != nil {
		body += "\n" + StyleTextMuted.Render(fmt.Sprintf("Last status: %d", m.lastResult.StatusCode))
	}
	return m.sectionBox(sectionOutput, "Prompt", body)
}

func (m Model) renderEditor() string {
	title := StyleSectionTitle.Render("Edit segment")
	help := StyleTextDim.Render("Ctrl+S save • Esc discard • Alt+↑/↓ jump")
	return AddMainPadding(lipgloss.JoinVertical(lipgloss.Left,
		title,
		StyleSectionFocused.Render(m.editor.View()),
		help,
	))
}

func (m Model) renderHelp() string {
	m.help.ShowAll = true
	content := StyleSectionTitle.Render("Keyboard shortcuts") + "\n\n" + m.help.View(m.keys)
	return StyleSectionFocused.Render(content + "\n\n" + StyleTextDim.Render("Press ? or Esc to close"))
}

func (m Model) renderFooter() string {
	var essential []string
	switch {
	case m.st.Drag.DraggedID != "":
		essential = []string{"↑/↓ choose position", "m/Enter drop", "Esc cancel"}
	case m.input != nil:
		essential = []string{"Enter save", "Esc cancel"}
	default:
		essential = []string{"Tab section", "[/] template", "c copy", "s submit", "q quit"}
	}

	var additional []string
	switch m.focus {
	case sectionTabs:
		additional = []string{"n new • d delete • r/Enter rename"}
	case sectionConfig:
		additional = []string{"Enter edit • Space collapse • p copy from previous"}
	case sectionSegments:
		additional = []string{"Enter edit • n new • d delete • r rename • K/J move • m pick up • Space collapse"}
	case sectionForm:
		additional = []string{"←/→ change option • 0 reset"}
	case sectionOutput:
		additional = []string{"↑/↓ scroll"}
	}

	footer := CreateContextualHelp(essential, additional, true, m.width)
	if m.submitting {
		footer = CreateStatus("Submitting...", "info") + "\n" + footer
	} else if m.statusMsg != "" {
		footer = CreateStatus(m.statusMsg, m.statusType) + "\n" + footer
	}
	return footer
}

// compact collapses a value onto one line and cuts it to width
func compact(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, width)
}
