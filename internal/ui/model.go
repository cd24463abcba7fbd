package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/clipboard"
	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/state"
)

// createGlamourRenderer creates a glamour renderer for the output panel.
// style "auto" (or empty) picks light or dark from the terminal background.
func createGlamourRenderer(style string, wordWrap int) (*glamour.TermRenderer, error) {
	if style != "" && style != "auto" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()
	var styleOption glamour.TermRendererOption
	switch {
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// section is the focusable area of the screen
type section int

const (
	sectionTabs section = iota
	sectionConfig
	sectionSegments
	sectionForm
	sectionOutput
	sectionCount
)

func (s section) String() string {
	switch s {
	case sectionTabs:
		return "Templates"
	case sectionConfig:
		return "Configuration"
	case sectionSegments:
		return "Segments"
	case sectionForm:
		return "Form"
	default:
		return "Output"
	}
}

// configItem is a row of the configuration panel
type configItem int

const (
	configJSONFile configItem = iota
	configJSONData
	configJSONPath
	configAPIURL
	configAPIMethod
	configItemCount
)

// inputTarget says what a submitted LineInput applies to
type inputTarget int

const (
	inputNone inputTarget = iota
	inputRenameTab
	inputRenameSegment
	inputJSONFile
	inputJSONData
	inputJSONPath
	inputAPIURL
)

// Messages
type (
	reloadedMsg   struct{}
	submitDoneMsg struct {
		result *service.SubmitResult
		err    error
	}
	jsonFileMsg struct {
		name string
		data []byte
		err  error
	}
	tickMsg time.Time
)

// Options configures the TUI
type Options struct {
	GlamourStyle string
	WordWrap     int
	// LogDir receives the error log; empty disables it
	LogDir string
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	NextSection key.Binding
	PrevSection key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Enter       key.Binding
	Back        key.Binding
	Quit        key.Binding
	Help        key.Binding
	New         key.Binding
	Delete      key.Binding
	Rename      key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Drag        key.Binding
	Toggle      key.Binding
	CopyPrev    key.Binding
	Reset       key.Binding
	Copy        key.Binding
	Submit      key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextSection, k.Copy, k.Submit, k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.NextSection, k.PrevSection, k.NextTab, k.PrevTab},
		{k.Enter, k.New, k.Delete, k.Rename},
		{k.MoveUp, k.MoveDown, k.Drag, k.Toggle},
		{k.CopyPrev, k.Reset, k.Copy, k.Submit},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous option")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
	NextSection: key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "next section")),
	PrevSection: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("Shift+Tab", "previous section")),
	NextTab:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next template")),
	PrevTab:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous template")),
	Enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "edit")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "cancel")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	New:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new template/segment")),
	Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Rename:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	MoveUp:      key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move segment up")),
	MoveDown:    key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move segment down")),
	Drag:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up / drop segment")),
	Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("Space", "collapse/expand")),
	CopyPrev:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "copy config from previous")),
	Reset:       key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset form")),
	Copy:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy prompt")),
	Submit:      key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "submit")),
}

// Model represents the TUI application state
type Model struct {
	service *service.Service
	opts    Options
	keys    KeyMap
	help    help.Model

	// st mirrors the service state after the last dispatch
	st state.State

	focus         section
	segmentCursor int
	fieldCursor   int
	configCursor  configItem

	editor        *SegmentEditor
	input         *LineInput
	target        inputTarget
	methodSelect  *SelectForm
	confirmBlank  bool
	deleteConfirm bool

	viewport        viewport.Model
	glamourRenderer *glamour.TermRenderer
	renderedFor     string
	renderedContent string

	submitting bool
	lastResult *service.SubmitResult

	width  int
	height int

	statusMsg     string
	statusType    string
	statusTimeout int

	showHelp     bool
	errorHandler *apperrors.TUIErrorHandler
}

// NewModel creates a new TUI model
func NewModel(svc *service.Service, opts Options) (*Model, error) {
	initializeColors(opts.GlamourStyle)

	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}
	renderer, err := createGlamourRenderer(opts.GlamourStyle, opts.WordWrap)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	vp := viewport.New(80, 10)
	vp.Style = lipgloss.NewStyle()

	m := &Model{
		service:         svc,
		opts:            opts,
		keys:            keys,
		help:            help.New(),
		st:              svc.State(),
		focus:           sectionForm,
		viewport:        vp,
		glamourRenderer: renderer,
		errorHandler:    apperrors.NewTUIErrorHandler(false, opts.LogDir),
	}
	m.refreshOutput()
	return m, nil
}

// Run starts the TUI and blocks until the user quits. External store
// changes picked up by the service are redrawn as they arrive.
func Run(svc *service.Service, opts Options) error {
	m, err := NewModel(svc, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	svc.OnReload(func() { p.Send(reloadedMsg{}) })
	defer svc.OnReload(nil)

	_, err = p.Run()
	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// clearStatusCmd ticks until the status message expires
func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) setStatus(text, kind string) tea.Cmd {
	m.statusMsg = text
	m.statusType = kind
	m.statusTimeout = 4
	return clearStatusCmd()
}

func (m *Model) setError(err error) tea.Cmd {
	m.errorHandler.HandleError(err)
	icon, _ := m.errorHandler.GetErrorStyle(err)
	return m.setStatus(icon+" "+m.errorHandler.FormatError(err), "error")
}

// dispatch applies an action through the service and mirrors the result
func (m *Model) dispatch(a state.Action) error {
	next, err := m.service.Dispatch(a)
	if err != nil {
		logging.Debug("action rejected", zap.String("action", state.Name(a)), zap.Error(err))
		return err
	}
	m.st = next
	m.clampCursors()
	m.refreshOutput()
	return nil
}

func (m *Model) clampCursors() {
	segments := len(m.st.Active().Segments)
	if m.segmentCursor >= segments {
		m.segmentCursor = segments - 1
	}
	if m.segmentCursor < 0 {
		m.segmentCursor = 0
	}
	fields := len(state.ActiveFields(m.st))
	if m.fieldCursor >= fields {
		m.fieldCursor = fields - 1
	}
	if m.fieldCursor < 0 {
		m.fieldCursor = 0
	}
}

// refreshOutput re-renders the generated prompt when it has changed
func (m *Model) refreshOutput() {
	prompt := state.Generate(m.st)
	if prompt == m.renderedFor && m.renderedContent != "" {
		return
	}
	m.renderedFor = prompt

	rendered, err := m.glamourRenderer.Render(prompt)
	if err != nil {
		logging.Warn("failed to render prompt", zap.Error(err))
		rendered = prompt
	}
	m.renderedContent = rendered
	m.viewport.SetContent(rendered)
}

func (m *Model) resize() {
	outputHeight := m.height / 3
	if outputHeight < 4 {
		outputHeight = 4
	}
	m.viewport.Width = m.width - 6
	m.viewport.Height = outputHeight

	wrap := m.width - 8
	if wrap > m.opts.WordWrap {
		wrap = m.opts.WordWrap
	}
	if wrap > 20 {
		if renderer, err := createGlamourRenderer(m.opts.GlamourStyle, wrap); err == nil {
			m.glamourRenderer = renderer
			m.renderedContent = ""
			m.refreshOutput()
		}
	}
	if m.editor != nil {
		m.editor.Resize(m.width-6, m.height-12)
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
			} else {
				return m, clearStatusCmd()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case reloadedMsg:
		m.st = m.service.State()
		m.clampCursors()
		m.refreshOutput()
		cmd := m.setStatus("Templates changed on disk and were reloaded", "info")
		return m, cmd

	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		m.lastResult = msg.result
		m.st = m.service.State()
		kind := "success"
		if msg.result.StatusCode >= 400 {
			kind = "warning"
		}
		cmd := m.setStatus(fmt.Sprintf("Submitted, endpoint returned %d", msg.result.StatusCode), kind)
		return m, cmd

	case jsonFileMsg:
		if msg.err != nil {
			cmd := m.setError(apperrors.Wrap(msg.err, apperrors.ErrCodeNotFound, "Could not read JSON file"))
			return m, cmd
		}
		if err := m.dispatch(state.SetJSONData{Raw: string(msg.data)}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		if err := m.dispatch(state.SetJSONFileName{Name: msg.name}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Loaded "+msg.name, "success")
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editor != nil {
		return m, m.editor.Update(msg)
	}
	if m.input != nil {
		return m, m.input.Update(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.editor != nil:
		return m.updateEditor(msg)
	case m.input != nil:
		return m.updateInput(msg)
	case m.methodSelect != nil:
		return m.updateMethodSelect(msg)
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) || msg.String() == "q" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.deleteConfirm {
		m.deleteConfirm = false
		if msg.String() == "y" {
			if err := m.dispatch(state.RemoveTab{Index: m.st.ActiveTab}); err != nil {
				cmd := m.setError(err)
				return m, cmd
			}
			cmd := m.setStatus("Template deleted", "success")
			return m, cmd
		}
		cmd := m.setStatus("Delete cancelled", "info")
		return m, cmd
	}

	// Segment being carried: arrows pick the drop target
	if m.st.Drag.DraggedID != "" {
		return m.updateDrag(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.NextSection):
		m.focus = (m.focus + 1) % sectionCount
		return m, nil
	case key.Matches(msg, m.keys.PrevSection):
		m.focus = (m.focus + sectionCount - 1) % sectionCount
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		cmd := m.selectTab(m.st.ActiveTab + 1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevTab):
		cmd := m.selectTab(m.st.ActiveTab - 1)
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyPrompt()
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		cmd := m.submit()
		return m, cmd
	}

	switch m.focus {
	case sectionTabs:
		return m.updateTabs(msg)
	case sectionConfig:
		return m.updateConfig(msg)
	case sectionSegments:
		return m.updateSegments(msg)
	case sectionForm:
		return m.updateForm(msg)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

func (m *Model) selectTab(index int) tea.Cmd {
	count := len(m.st.Templates)
	index = (index + count) % count
	if index == m.st.ActiveTab {
		return nil
	}
	if err := m.dispatch(state.SelectTab{Index: index}); err != nil {
		return m.setError(err)
	}
	m.segmentCursor, m.fieldCursor = 0, 0
	return nil
}

func (m Model) updateTabs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Up):
		cmd := m.selectTab(m.st.ActiveTab - 1)
		return m, cmd
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Down):
		cmd := m.selectTab(m.st.ActiveTab + 1)
		return m, cmd
	case key.Matches(msg, m.keys.New):
		if err := m.dispatch(state.AddTab{SegmentID: models.NewSegmentID()}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.segmentCursor, m.fieldCursor = 0, 0
		cmd := m.setStatus("Template added", "success")
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		if len(m.st.Templates) <= 1 {
			cmd := m.setStatus("The last template cannot be deleted", "warning")
			return m, cmd
		}
		m.deleteConfirm = true
		cmd := m.setStatus(fmt.Sprintf("Delete '%s'? y to confirm", m.st.Active().Name), "warning")
		return m, cmd
	case key.Matches(msg, m.keys.Rename), key.Matches(msg, m.keys.Enter):
		if err := m.dispatch(state.StartRenameTab{Index: m.st.ActiveTab}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.openInput(inputRenameTab, "Template name", m.st.EditingName, "")
		return m, nil
	}
	return m, nil
}

func (m Model) updateSegments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	segments := m.st.Active().Segments

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if err := m.dispatch(state.ToggleSegments{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.segmentCursor > 0 {
			m.segmentCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.segmentCursor < len(segments)-1 {
			m.segmentCursor++
		}
	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		to := m.segmentCursor - 1
		if key.Matches(msg, m.keys.MoveDown) {
			to = m.segmentCursor + 1
		}
		if to < 0 || to >= len(segments) {
			return m, nil
		}
		if err := m.dispatch(state.MoveSegment{FromID: segments[m.segmentCursor].ID, ToID: segments[to].ID}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.segmentCursor = to
	case key.Matches(msg, m.keys.Drag):
		if err := m.dispatch(state.DragStart{ID: segments[m.segmentCursor].ID}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Moving segment: choose a position and press m or Enter to drop", "info")
		return m, cmd
	case key.Matches(msg, m.keys.New):
		if err := m.dispatch(state.AddSegment{ID: models.NewSegmentID()}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.segmentCursor = len(m.st.Active().Segments) - 1
		cmd := m.setStatus("Segment added", "success")
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		seg := segments[m.segmentCursor]
		if err := m.dispatch(state.RemoveSegment{ID: seg.ID, ReplacementID: models.NewSegmentID()}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("Removed '%s'", seg.Title()), "success")
		return m, cmd
	case key.Matches(msg, m.keys.Rename):
		seg := segments[m.segmentCursor]
		if err := m.dispatch(state.StartRenameSegment{ID: seg.ID}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.openInput(inputRenameSegment, "Segment name", m.st.EditingSegmentName, "")
	case key.Matches(msg, m.keys.Enter):
		seg := segments[m.segmentCursor]
		m.editor = NewSegmentEditor(seg.ID, seg.Text, m.width-6, m.height-12)
	}
	return m, nil
}

func (m Model) updateDrag(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	segments := m.st.Active().Segments
	dragged := m.st.Drag.DraggedID

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		if key.Matches(msg, m.keys.Up) && m.segmentCursor > 0 {
			m.segmentCursor--
		}
		if key.Matches(msg, m.keys.Down) && m.segmentCursor < len(segments)-1 {
			m.segmentCursor++
		}
		if err := m.dispatch(state.DragOver{ID: segments[m.segmentCursor].ID}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
	case key.Matches(msg, m.keys.Drag), key.Matches(msg, m.keys.Enter):
		if err := m.dispatch(state.DragEnd{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		m.segmentCursor = m.st.SegmentIndex(dragged)
		m.clampCursors()
		cmd := m.setStatus("Segment moved", "success")
		return m, cmd
	case key.Matches(msg, m.keys.Back):
		// Restarting the drag clears the drop target, so ending it is a no-op
		_ = m.dispatch(state.DragStart{ID: dragged})
		if err := m.dispatch(state.DragEnd{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Move cancelled", "info")
		return m, cmd
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := state.ActiveFields(m.st)
	if len(fields) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		step := 1
		if key.Matches(msg, m.keys.Left) {
			step = -1
		}
		field := fields[m.fieldCursor]
		next := cycleOption(field.Options, m.st.Values[field.Name], step)
		if err := m.dispatch(state.SetValue{Field: field.Name, Value: next}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
	case key.Matches(msg, m.keys.Reset):
		if err := m.dispatch(state.ResetValues{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Form reset to defaults", "info")
		return m, cmd
	}
	return m, nil
}

// cycleOption returns the option step places away from current, wrapping
func cycleOption(options []string, current string, step int) string {
	if len(options) == 0 {
		return current
	}
	index := 0
	for i, opt := range options {
		if opt == current {
			index = i
			break
		}
	}
	index = (index + step + len(options)) % len(options)
	return options[index]
}

func (m Model) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tmpl := m.st.Active()

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if err := m.dispatch(state.ToggleConfig{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.CopyPrev):
		if err := m.dispatch(state.CopyConfigFromPrevious{}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Copied configuration from the previous template", "success")
		return m, cmd
	}

	if !m.st.ConfigExpanded {
		if key.Matches(msg, m.keys.Enter) {
			_ = m.dispatch(state.ToggleConfig{})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.configCursor > 0 {
			m.configCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.configCursor < configItemCount-1 {
			m.configCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		switch m.configCursor {
		case configJSONFile:
			m.openInput(inputJSONFile, "Load JSON from file", tmpl.JSONFileName, "path/to/request.json")
		case configJSONData:
			m.openInput(inputJSONData, "JSON data (Enter saves, Ctrl+R repairs and saves)", string(tmpl.JSONData), `{"messages":[{"role":"user","content":""}]}`)
		case configJSONPath:
			m.openInput(inputJSONPath, "JSON path", tmpl.JSONPath, "messages.0.content")
		case configAPIURL:
			m.openInput(inputAPIURL, "API URL", tmpl.APIURL, "api.example.com/v1/prompts")
		case configAPIMethod:
			m.methodSelect = NewSelectForm("HTTP method", []SelectOption{
				{Label: "POST", Description: "send the document as the request body", Value: models.MethodPOST},
				{Label: "GET", Description: "send the document as the request body of a GET", Value: models.MethodGET},
			}, tmpl.APIMethod)
		}
	}
	return m, nil
}

func (m *Model) openInput(target inputTarget, label, value, placeholder string) {
	m.target = target
	m.confirmBlank = false
	m.input = NewLineInput(label, value, placeholder, m.width)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	wasSubmitted := m.input.IsSubmitted()
	cmd := m.input.Update(msg)

	switch {
	case m.input.IsCancelled():
		switch m.target {
		case inputRenameTab:
			_ = m.dispatch(state.CancelRenameTab{})
		case inputRenameSegment:
			_ = m.dispatch(state.CancelRenameSegment{})
		}
		m.input, m.target = nil, inputNone
		return m, nil
	case m.input.IsSubmitted() && !wasSubmitted:
		cmd := m.commitInput()
		return m, cmd
	}

	// Live rename: mirror keystrokes into the editing name
	switch m.target {
	case inputRenameTab:
		_ = m.dispatch(state.SetEditingName{Name: m.input.Value()})
	case inputRenameSegment:
		_ = m.dispatch(state.SetEditingSegmentName{Name: m.input.Value()})
	}
	return m, cmd
}

func (m *Model) commitInput() tea.Cmd {
	value := m.input.Value()
	target := m.target
	var err error

	switch target {
	case inputRenameTab:
		if err = m.dispatch(state.CommitRenameTab{Force: m.confirmBlank}); err == nil && m.st.EditingTab != nil {
			// Blank names need a second Enter
			m.confirmBlank = true
			m.input.submitted = false
			return m.setStatus("The name is empty. Press Enter again to keep it, Esc to cancel", "warning")
		}
	case inputRenameSegment:
		err = m.dispatch(state.CommitRenameSegment{})
	case inputJSONFile:
		m.input, m.target = nil, inputNone
		return loadJSONFileCmd(value)
	case inputJSONData:
		err = m.dispatch(state.SetJSONData{Raw: value, Repair: m.input.Alternate()})
	case inputJSONPath:
		err = m.dispatch(state.SetJSONPath{Path: value})
	case inputAPIURL:
		err = m.dispatch(state.SetAPIURL{URL: value})
	}

	if err != nil {
		// Keep the input open so the value can be corrected
		m.input.submitted = false
		return m.setError(err)
	}
	m.input, m.target = nil, inputNone
	return m.setStatus("Saved", "success")
}

func (m Model) updateMethodSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.methodSelect.Update(msg)
	switch {
	case m.methodSelect.IsCancelled():
		m.methodSelect = nil
	case m.methodSelect.IsSubmitted():
		method := m.methodSelect.GetSelected().Value.(models.HTTPMethod)
		m.methodSelect = nil
		if err := m.dispatch(state.SetAPIMethod{Method: method}); err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		cmd := m.setStatus("Method set to "+string(method), "success")
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd := m.editor.Update(msg)
	switch {
	case m.editor.IsCancelled():
		m.editor = nil
		cmd := m.setStatus("Edit discarded", "info")
		return m, cmd
	case m.editor.IsSubmitted():
		if err := m.dispatch(state.UpdateSegmentText{ID: m.editor.SegmentID, Text: m.editor.Value()}); err != nil {
			m.editor = nil
			cmd := m.setError(err)
			return m, cmd
		}
		m.editor = nil
		fields := len(state.ActiveFields(m.st))
		cmd := m.setStatus(fmt.Sprintf("Segment saved (%d fields)", fields), "success")
		return m, cmd
	}
	return m, cmd
}

func (m *Model) copyPrompt() tea.Cmd {
	prompt := state.Generate(m.st)
	msg, err := clipboard.CopyWithFallback(prompt)
	if err != nil {
		return m.setStatus(err.Error(), "error")
	}
	return m.setStatus(msg, "success")
}

func (m *Model) submit() tea.Cmd {
	if m.submitting {
		return m.setStatus("A submission is already in progress", "warning")
	}
	if !m.st.Active().HasSubmitConfig() {
		m.focus = sectionConfig
		if !m.st.ConfigExpanded {
			_ = m.dispatch(state.ToggleConfig{})
		}
		return m.setStatus("Set JSON data, a JSON path and an API URL to submit", "warning")
	}

	m.submitting = true
	svc := m.service
	index := m.st.ActiveTab
	values := make(map[string]string, len(m.st.Values))
	for k, v := range m.st.Values {
		values[k] = v
	}
	return tea.Batch(
		m.setStatus("Submitting...", "info"),
		func() tea.Msg {
			result, err := svc.Submit(context.Background(), index, values)
			return submitDoneMsg{result: result, err: err}
		},
	)
}

// loadJSONFileCmd reads a request document from disk
func loadJSONFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return jsonFileMsg{err: fmt.Errorf("no file given")}
		}
		if len(path) > 1 && path[:2] == "~/" {
			if home, err := os.UserHomeDir(); err == nil {
				path = filepath.Join(home, path[2:])
			}
		}
		data, err := os.ReadFile(path)
		return jsonFileMsg{name: filepath.Base(path), data: data, err: err}
	}
}

// activeLabel names the active template for the header
func (m Model) activeLabel() string {
	return strconv.Itoa(m.st.ActiveTab+1) + "/" + strconv.Itoa(len(m.st.Templates))
}
