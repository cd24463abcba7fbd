package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/storage"
)

func newTestModel(t *testing.T, segments ...models.Segment) Model {
	t.Helper()
	kv, err := storage.Open(storage.Options{Dir: t.TempDir(), Backend: storage.BackendFile})
	require.NoError(t, err)
	store := storage.NewTemplateStore(kv)

	tmpl := models.NewTemplate("Review", "seg-a")
	tmpl.Segments[0].Name = "Intro"
	tmpl.Segments[0].Text = "Review this [Level: quick, thorough] change"
	tmpl.Segments = append(tmpl.Segments, segments...)
	require.NoError(t, store.Save([]models.Template{tmpl}))

	svc, err := service.NewService(store, service.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	m, err := NewModel(svc, Options{GlamourStyle: "notty", WordWrap: 60})
	require.NoError(t, err)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter     = tea.KeyMsg{Type: tea.KeyEnter}
	esc       = tea.KeyMsg{Type: tea.KeyEsc}
	up        = tea.KeyMsg{Type: tea.KeyUp}
	down      = tea.KeyMsg{Type: tea.KeyDown}
	left      = tea.KeyMsg{Type: tea.KeyLeft}
	right     = tea.KeyMsg{Type: tea.KeyRight}
	clearLine = tea.KeyMsg{Type: tea.KeyCtrlU}
	ctrlS     = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func press(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func segmentIDs(m Model) []string {
	var ids []string
	for _, seg := range m.service.State().Active().Segments {
		ids = append(ids, seg.ID)
	}
	return ids
}

func TestTabs_AddSelectRename(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionTabs

	m = press(m, runes("n"))
	require.Len(t, m.service.ListTemplates(), 2)
	assert.Equal(t, 1, m.st.ActiveTab)

	m = press(m, runes("["))
	assert.Equal(t, 0, m.st.ActiveTab)

	m = press(m, runes("r"), clearLine, runes("Release notes"), enter)
	assert.Nil(t, m.input)
	assert.Nil(t, m.st.EditingTab)
	assert.Equal(t, "Release notes", m.service.ListTemplates()[0].Name)
}

func TestTabs_BlankRenameNeedsConfirmation(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionTabs

	m = press(m, runes("r"), clearLine, enter)
	require.NotNil(t, m.input)
	require.NotNil(t, m.st.EditingTab)
	assert.Equal(t, "warning", m.statusType)
	assert.Equal(t, "Review", m.service.ListTemplates()[0].Name)

	m = press(m, enter)
	assert.Nil(t, m.input)
	assert.Nil(t, m.st.EditingTab)
	assert.Equal(t, "", m.service.ListTemplates()[0].Name)
}

func TestTabs_RenameCancel(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionTabs

	m = press(m, runes("r"), runes(" v2"), esc)
	assert.Nil(t, m.input)
	assert.Nil(t, m.st.EditingTab)
	assert.Equal(t, "Review", m.service.ListTemplates()[0].Name)
}

func TestTabs_DeleteConfirm(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionTabs

	m = press(m, runes("d"))
	assert.False(t, m.deleteConfirm, "last template cannot be deleted")

	m = press(m, runes("n"), runes("d"), runes("x"))
	assert.Len(t, m.service.ListTemplates(), 2)

	m = press(m, runes("d"), runes("y"))
	assert.Len(t, m.service.ListTemplates(), 1)
}

func TestSegments_MoveWithKeys(t *testing.T) {
	m := newTestModel(t,
		models.NewSegment("seg-b", "Body"),
		models.NewSegment("seg-c", "Outro"),
	)
	m.focus = sectionSegments

	m = press(m, runes("J"))
	assert.Equal(t, []string{"seg-b", "seg-a", "seg-c"}, segmentIDs(m))
	assert.Equal(t, 1, m.segmentCursor)

	m = press(m, runes("K"), runes("K"))
	assert.Equal(t, []string{"seg-a", "seg-b", "seg-c"}, segmentIDs(m))
	assert.Equal(t, 0, m.segmentCursor)
}

func TestSegments_Drag(t *testing.T) {
	m := newTestModel(t,
		models.NewSegment("seg-b", "Body"),
		models.NewSegment("seg-c", "Outro"),
	)
	m.focus = sectionSegments

	m = press(m, runes("m"))
	assert.Equal(t, "seg-a", m.st.Drag.DraggedID)

	m = press(m, down, down)
	assert.Equal(t, "seg-c", m.st.Drag.OverID)

	m = press(m, enter)
	assert.Equal(t, []string{"seg-b", "seg-c", "seg-a"}, segmentIDs(m))
	assert.Empty(t, m.st.Drag.DraggedID)
	assert.Equal(t, 2, m.segmentCursor)
}

func TestSegments_DragCancel(t *testing.T) {
	m := newTestModel(t, models.NewSegment("seg-b", "Body"))
	m.focus = sectionSegments

	m = press(m, runes("m"), down, esc)
	assert.Equal(t, []string{"seg-a", "seg-b"}, segmentIDs(m))
	assert.Empty(t, m.st.Drag.DraggedID)
	assert.Empty(t, m.st.Drag.OverID)
}

func TestSegments_AddRemoveRename(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionSegments

	m = press(m, runes("n"))
	require.Len(t, m.st.Active().Segments, 2)
	assert.Equal(t, 1, m.segmentCursor)

	m = press(m, runes("r"), clearLine, runes("Closing"), enter)
	assert.Equal(t, "Closing", m.service.State().Active().Segments[1].Name)

	m = press(m, runes("d"))
	assert.Equal(t, []string{"seg-a"}, segmentIDs(m))
	assert.Equal(t, 0, m.segmentCursor)

	// Removing the only segment leaves a fresh one in its place
	m = press(m, runes("d"))
	ids := segmentIDs(m)
	require.Len(t, ids, 1)
	assert.NotEqual(t, "seg-a", ids[0])
}

func TestSegments_EditText(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionSegments

	m = press(m, enter)
	require.NotNil(t, m.editor)

	m = press(m, runes(" in a [Tone: calm, blunt] voice"), ctrlS)
	assert.Nil(t, m.editor)

	seg := m.service.State().Active().Segments[0]
	assert.Equal(t, "Review this [Level: quick, thorough] change in a [Tone: calm, blunt] voice", seg.Text)
	require.Len(t, seg.Fields, 2)
	assert.Equal(t, "calm", m.st.Values["tone"])
	assert.Contains(t, m.statusMsg, "2 fields")
}

func TestSegments_EditDiscard(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionSegments

	m = press(m, enter, runes(" and more"), esc)
	assert.Nil(t, m.editor)
	assert.Equal(t, "Review this [Level: quick, thorough] change", m.service.State().Active().Segments[0].Text)
}

func TestForm_CycleOptions(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, sectionForm, m.focus)
	assert.Equal(t, "quick", m.st.Values["level"])

	m = press(m, right)
	assert.Equal(t, "thorough", m.st.Values["level"])
	assert.Equal(t, "Review this thorough change", m.service.GenerateActive())

	m = press(m, right)
	assert.Equal(t, "quick", m.st.Values["level"])

	m = press(m, left, runes("0"))
	assert.Equal(t, "quick", m.st.Values["level"])
}

func TestCycleOption(t *testing.T) {
	opts := []string{"a", "b", "c"}
	assert.Equal(t, "b", cycleOption(opts, "a", 1))
	assert.Equal(t, "a", cycleOption(opts, "c", 1))
	assert.Equal(t, "c", cycleOption(opts, "a", -1))
	assert.Equal(t, "b", cycleOption(opts, "missing", 1))
	assert.Equal(t, "x", cycleOption(nil, "x", 1))
}

func TestConfig_EditValues(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionConfig

	m = press(m, enter)
	require.True(t, m.st.ConfigExpanded)

	// URL
	m = press(m, down, down, down, enter, runes("example.com/api"), enter)
	assert.Nil(t, m.input)
	assert.Equal(t, "http://example.com/api", m.service.State().Active().APIURL)

	// Method
	m = press(m, down, enter)
	require.NotNil(t, m.methodSelect)
	m = press(m, down, enter)
	assert.Nil(t, m.methodSelect)
	assert.Equal(t, models.MethodGET, m.service.State().Active().APIMethod)

	// JSON path
	m = press(m, up, up, enter, runes("input.text"), enter)
	assert.Equal(t, "input.text", m.service.State().Active().JSONPath)
}

func TestConfig_InvalidJSONKeepsInputOpen(t *testing.T) {
	m := newTestModel(t)
	m.focus = sectionConfig

	m = press(m, enter, down, enter, runes(`{"a":`), enter)
	require.NotNil(t, m.input, "input stays open so the value can be fixed")
	assert.Equal(t, "error", m.statusType)
	assert.Empty(t, m.service.State().Active().JSONData)

	m = press(m, runes(`1}`), enter)
	assert.Nil(t, m.input)
	assert.JSONEq(t, `{"a":1}`, string(m.service.State().Active().JSONData))
}

func TestSubmit_WithoutConfigFocusesConfig(t *testing.T) {
	m := newTestModel(t)

	m = press(m, runes("s"))
	assert.False(t, m.submitting)
	assert.Equal(t, sectionConfig, m.focus)
	assert.True(t, m.st.ConfigExpanded)
	assert.Equal(t, "warning", m.statusType)
}

func TestSubmitDone(t *testing.T) {
	m := newTestModel(t)
	m.submitting = true

	m = press(m, submitDoneMsg{result: &service.SubmitResult{StatusCode: 502}})
	assert.False(t, m.submitting)
	assert.Equal(t, "warning", m.statusType)
	assert.Contains(t, m.statusMsg, "502")
}

func TestReloadedMsg(t *testing.T) {
	m := newTestModel(t)

	_, err := m.service.AddTemplate()
	require.NoError(t, err)
	assert.Len(t, m.st.Templates, 1)

	m = press(m, reloadedMsg{})
	assert.Len(t, m.st.Templates, 2)
	assert.Equal(t, "info", m.statusType)
}

func TestStatusExpires(t *testing.T) {
	m := newTestModel(t)
	m.setStatus("hello", "info")

	for i := 0; i < 4; i++ {
		m = press(m, tickMsg{})
	}
	assert.Empty(t, m.statusMsg)
}

func TestView(t *testing.T) {
	m := newTestModel(t, models.NewSegment("seg-b", "Body"))

	view := m.View()
	assert.Contains(t, view, "Review")
	assert.Contains(t, view, "Intro")
	assert.Contains(t, view, "Body")
	assert.Contains(t, view, "thorough")

	m = press(m, runes("?"))
	assert.True(t, strings.Contains(m.View(), "Keyboard shortcuts"))
	m = press(m, esc)
	assert.False(t, m.showHelp)
}

func TestRenderField_PaletteSwatches(t *testing.T) {
	m := newTestModel(t)
	field := models.FieldDefinition{
		Name:    "palette",
		Label:   "Palette",
		Options: []string{"#112233 #445566", "#000000", "plain"},
	}

	out := m.renderField(field, false)
	assert.Contains(t, out, CreateSwatch("#112233")+CreateSwatch("#445566")+" #112233 #445566")
	assert.Contains(t, out, CreateSwatch("#000000")+" #000000")
	assert.Contains(t, out, "plain")
}
