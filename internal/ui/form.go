package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SegmentEditor edits the text of one segment
type SegmentEditor struct {
	SegmentID string
	textarea  textarea.Model
	submitted bool
	cancelled bool
}

// NewSegmentEditor opens an editor on a segment's current text
func NewSegmentEditor(segmentID, text string, width, height int) *SegmentEditor {
	ta := textarea.New()
	ta.Placeholder = "Write the prompt. [Label: option one, option two] becomes a form field."
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.SetValue(text)
	ta.Focus()

	e := &SegmentEditor{SegmentID: segmentID, textarea: ta}
	e.Resize(width, height)
	return e
}

// Update handles editor keys. Ctrl+S saves and Esc discards.
func (e *SegmentEditor) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+s":
			e.submitted = true
			return nil
		case "esc":
			e.cancelled = true
			return nil
		case "alt+up":
			var cmd tea.Cmd
			e.textarea, cmd = e.textarea.Update(tea.KeyMsg{Type: tea.KeyCtrlHome})
			return cmd
		case "alt+down":
			var cmd tea.Cmd
			e.textarea, cmd = e.textarea.Update(tea.KeyMsg{Type: tea.KeyCtrlEnd})
			return cmd
		}
	}

	var cmd tea.Cmd
	e.textarea, cmd = e.textarea.Update(msg)
	return cmd
}

// Resize fits the editor into the available area
func (e *SegmentEditor) Resize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 5 {
		height = 5
	}
	e.textarea.SetWidth(width)
	e.textarea.SetHeight(height)
}

func (e *SegmentEditor) Value() string {
	return e.textarea.Value()
}

func (e *SegmentEditor) View() string {
	return e.textarea.View()
}

func (e *SegmentEditor) IsSubmitted() bool {
	return e.submitted
}

func (e *SegmentEditor) IsCancelled() bool {
	return e.cancelled
}

// LineInput is a single-line prompt used for renames and config values
type LineInput struct {
	Label     string
	input     textinput.Model
	submitted bool
	cancelled bool
	// alternate is set when the value was confirmed with Ctrl+R
	alternate bool
}

// NewLineInput creates a focused input holding value
func NewLineInput(label, value, placeholder string, width int) *LineInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 0
	if width > 10 {
		ti.Width = width - 4
	}
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &LineInput{Label: label, input: ti}
}

// Update handles input keys. Enter confirms, Ctrl+R confirms with the
// alternate action and Esc cancels.
func (f *LineInput) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			f.submitted = true
			return nil
		case "ctrl+r":
			f.submitted, f.alternate = true, true
			return nil
		case "esc":
			f.cancelled = true
			return nil
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

func (f *LineInput) Value() string {
	return f.input.Value()
}

func (f *LineInput) View() string {
	return StyleFormLabel.Render(f.Label) + "\n" + f.input.View()
}

func (f *LineInput) IsSubmitted() bool {
	return f.submitted
}

func (f *LineInput) IsCancelled() bool {
	return f.cancelled
}

func (f *LineInput) Alternate() bool {
	return f.alternate
}

// SelectForm handles selection from a list of options
type SelectForm struct {
	Title     string
	options   []SelectOption
	selected  int
	submitted bool
	cancelled bool
}

// SelectOption represents an option in the select form
type SelectOption struct {
	Label       string
	Description string
	Value       interface{}
}

// NewSelectForm creates a select form with the option matching current preselected
func NewSelectForm(title string, options []SelectOption, current interface{}) *SelectForm {
	f := &SelectForm{Title: title, options: options}
	for i, opt := range options {
		if opt.Value == current {
			f.selected = i
		}
	}
	return f
}

// Update handles select form updates
func (f *SelectForm) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if f.selected > 0 {
				f.selected--
			} else {
				f.selected = len(f.options) - 1
			}
		case "down", "j":
			if f.selected < len(f.options)-1 {
				f.selected++
			} else {
				f.selected = 0
			}
		case "enter":
			f.submitted = true
		case "esc":
			f.cancelled = true
		}
	}
	return nil
}

// GetSelected returns the selected option
func (f *SelectForm) GetSelected() *SelectOption {
	if f.selected >= 0 && f.selected < len(f.options) {
		return &f.options[f.selected]
	}
	return nil
}

func (f *SelectForm) View() string {
	lines := []string{StyleFormLabel.Render(f.Title)}
	for i, opt := range f.options {
		label := "  " + opt.Label
		style := StyleUnselected
		if i == f.selected {
			label = "▶ " + opt.Label
			style = StyleFocused
		}
		line := style.Render(label)
		if opt.Description != "" {
			line += " " + StyleTextDim.Render(opt.Description)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (f *SelectForm) IsSubmitted() bool {
	return f.submitted
}

func (f *SelectForm) IsCancelled() bool {
	return f.cancelled
}
