package state

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
)

func newTestState(t *testing.T) State {
	t.Helper()
	tmpl := models.NewTemplate("Prompt 1", "s1")
	tmpl.Segments[0].Text = "Hello [Name: Ann, Bob]"
	return New([]models.Template{tmpl})
}

func mustReduce(t *testing.T, s State, actions ...Action) State {
	t.Helper()
	for _, a := range actions {
		var err error
		s, err = Reduce(s, a)
		require.NoError(t, err, "action %s", Name(a))
	}
	return s
}

func segmentIDs(s State) []string {
	var ids []string
	for _, seg := range s.Active().Segments {
		ids = append(ids, seg.ID)
	}
	return ids
}

func TestNew_SeedsDefaultTemplate(t *testing.T) {
	s := New(nil)
	require.Len(t, s.Templates, 1)
	assert.Equal(t, "Prompt 1", s.Templates[0].Name)
	require.Len(t, s.Templates[0].Segments, 1)
	assert.NotEmpty(t, s.Templates[0].Segments[0].ID)
	assert.Equal(t, models.MethodPOST, s.Templates[0].APIMethod)
	assert.True(t, s.SegmentsExpanded)
}

func TestNew_DefaultValues(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, map[string]string{"name": "Ann"}, s.Values)
	assert.Equal(t, "Hello Ann", Generate(s))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := newTestState(t)
	before := s.Clone()

	_ = mustReduce(t, s,
		UpdateSegmentText{ID: "s1", Text: "changed [X: 1]"},
		RenameTab{Index: 0, Name: "renamed"},
		AddSegment{ID: "s2"},
	)

	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("input state mutated (-before +after):\n%s", diff)
	}
}

func TestAddTab(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddTab{SegmentID: "t2s1"})
	require.Len(t, s.Templates, 2)
	assert.Equal(t, 1, s.ActiveTab)
	assert.Equal(t, "Prompt 2", s.Templates[1].Name)
	assert.Equal(t, []string{"t2s1"}, segmentIDs(s))
	assert.Empty(t, s.Values)

	_, err := Reduce(s, AddTab{})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))
}

func TestRemoveTab(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddTab{SegmentID: "b"}, AddTab{SegmentID: "c"})
	require.Len(t, s.Templates, 3)

	s = mustReduce(t, s, RemoveTab{Index: 2})
	assert.Len(t, s.Templates, 2)
	assert.Equal(t, 1, s.ActiveTab)

	s = mustReduce(t, s, RemoveTab{Index: 0})
	assert.Len(t, s.Templates, 1)
	assert.Equal(t, 0, s.ActiveTab)
	assert.Equal(t, "Prompt 2", s.Templates[0].Name)

	_, err := Reduce(s, RemoveTab{Index: 0})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation), "got %v", err)

	_, err = Reduce(s, RemoveTab{Index: 7})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound), "got %v", err)
}

func TestSelectTab(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddTab{SegmentID: "b"}, SelectTab{Index: 0})
	assert.Equal(t, 0, s.ActiveTab)
	assert.Equal(t, map[string]string{"name": "Ann"}, s.Values)

	_, err := Reduce(s, SelectTab{Index: -1})
	assert.Error(t, err)
}

func TestInlineTabRename(t *testing.T) {
	s := mustReduce(t, newTestState(t), StartRenameTab{Index: 0})
	require.NotNil(t, s.EditingTab)
	assert.Equal(t, "Prompt 1", s.EditingName)

	// A blank name is ignored unless forced.
	s = mustReduce(t, s, SetEditingName{Name: "   "}, CommitRenameTab{})
	assert.NotNil(t, s.EditingTab)
	assert.Equal(t, "Prompt 1", s.Templates[0].Name)

	s = mustReduce(t, s, CommitRenameTab{Force: true})
	assert.Nil(t, s.EditingTab)
	assert.Equal(t, "   ", s.Templates[0].Name)

	s = mustReduce(t, s, StartRenameTab{Index: 0}, SetEditingName{Name: "Emails"}, CommitRenameTab{})
	assert.Equal(t, "Emails", s.Templates[0].Name)

	s = mustReduce(t, s, StartRenameTab{Index: 0}, SetEditingName{Name: "nope"}, CancelRenameTab{})
	assert.Equal(t, "Emails", s.Templates[0].Name)
	assert.Nil(t, s.EditingTab)
}

func TestSegments_AddRemove(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddSegment{ID: "s2"})
	assert.Equal(t, []string{"s1", "s2"}, segmentIDs(s))
	assert.Equal(t, "Prompt 2", s.Active().Segments[1].Name)

	s = mustReduce(t, s, RemoveSegment{ID: "s1"})
	assert.Equal(t, []string{"s2"}, segmentIDs(s))

	// Removing the last segment leaves one fresh empty segment.
	s = mustReduce(t, s, RemoveSegment{ID: "s2", ReplacementID: "fresh"})
	require.Len(t, s.Active().Segments, 1)
	assert.Equal(t, "fresh", s.Active().Segments[0].ID)
	assert.Equal(t, "", s.Active().Segments[0].Text)

	_, err := Reduce(s, RemoveSegment{ID: "fresh"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))

	_, err = Reduce(s, RemoveSegment{ID: "ghost", ReplacementID: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestUpdateSegmentText_ReconcilesValues(t *testing.T) {
	s := mustReduce(t, newTestState(t), SetValue{Field: "name", Value: "Bob"})
	assert.Equal(t, "Hello Bob", Generate(s))

	// Bob is still an option, so the selection survives.
	s = mustReduce(t, s, UpdateSegmentText{ID: "s1", Text: "Hi [Name: Bob, Cid] [Tone: warm]"})
	assert.Equal(t, map[string]string{"name": "Bob", "tone": "warm"}, s.Values)
	require.Len(t, s.Active().Segments[0].Fields, 2)

	// Bob disappears and the value resets to the new default.
	s = mustReduce(t, s, UpdateSegmentText{ID: "s1", Text: "Hi [Name: Cid, Dee]"})
	assert.Equal(t, map[string]string{"name": "Cid"}, s.Values)
}

func TestSetValue_Validation(t *testing.T) {
	s := newTestState(t)

	_, err := Reduce(s, SetValue{Field: "name", Value: "Zed"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	_, err = Reduce(s, SetValue{Field: "unknown", Value: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	s = mustReduce(t, s, SetValue{Field: "name", Value: "Bob"}, ResetValues{})
	assert.Equal(t, "Ann", s.Values["name"])
}

func TestSharedFieldAcrossSegments(t *testing.T) {
	s := mustReduce(t, newTestState(t),
		UpdateSegmentText{ID: "s1", Text: "Hello [Name]"},
		AddSegment{ID: "s2"},
		UpdateSegmentText{ID: "s2", Text: "Bye [Name]"},
		SetValue{Field: "name", Value: "Option 2"},
	)

	fields := ActiveFields(s)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, "Hello Option 2\nBye Option 2", Generate(s))
}

func TestMoveSegment(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddSegment{ID: "s2"}, AddSegment{ID: "s3"})

	moved := mustReduce(t, s, MoveSegment{FromID: "s1", ToID: "s3"})
	assert.Equal(t, []string{"s2", "s3", "s1"}, segmentIDs(moved))

	moved = mustReduce(t, s, MoveSegment{FromID: "s3", ToID: "s1"})
	assert.Equal(t, []string{"s3", "s1", "s2"}, segmentIDs(moved))

	moved = mustReduce(t, s, MoveSegment{FromID: "s2", ToID: "s2"})
	assert.Equal(t, []string{"s1", "s2", "s3"}, segmentIDs(moved))

	_, err := Reduce(s, MoveSegment{FromID: "s1", ToID: "nope"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestDragLifecycle(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddSegment{ID: "s2"}, AddSegment{ID: "s3"})

	s = mustReduce(t, s, DragStart{ID: "s3"}, DragOver{ID: "s3"})
	assert.Equal(t, DragState{DraggedID: "s3"}, s.Drag)

	s = mustReduce(t, s, DragOver{ID: "s1"}, DragEnd{})
	assert.Equal(t, DragState{}, s.Drag)
	assert.Equal(t, []string{"s3", "s1", "s2"}, segmentIDs(s))

	// Ending a drag without a target changes nothing.
	s = mustReduce(t, s, DragStart{ID: "s1"}, DragEnd{})
	assert.Equal(t, []string{"s3", "s1", "s2"}, segmentIDs(s))
}

func TestInlineSegmentRename(t *testing.T) {
	s := mustReduce(t, newTestState(t), StartRenameSegment{ID: "s1"})
	assert.Equal(t, "s1", s.EditingSegmentID)
	assert.Equal(t, "Prompt 1", s.EditingSegmentName)

	s = mustReduce(t, s, SetEditingSegmentName{Name: "Greeting"}, CommitRenameSegment{})
	assert.Equal(t, "Greeting", s.Active().Segments[0].Name)
	assert.Empty(t, s.EditingSegmentID)

	s = mustReduce(t, s, RenameSegment{ID: "s1", Name: "Intro"})
	assert.Equal(t, "Intro", s.Active().Segments[0].Name)
}

func TestConfigActions(t *testing.T) {
	s := mustReduce(t, newTestState(t),
		SetJSONData{Raw: `{"input": {"text": ""}}`},
		SetJSONPath{Path: " input.text "},
		SetAPIURL{URL: "example.com/api"},
		SetAPIMethod{Method: "get"},
		SetJSONFileName{Name: "body.json"},
	)

	active := s.Active()
	assert.JSONEq(t, `{"input": {"text": ""}}`, string(active.JSONData))
	assert.Equal(t, "input.text", active.JSONPath)
	assert.Equal(t, "http://example.com/api", active.APIURL)
	assert.Equal(t, models.MethodGET, active.APIMethod)
	assert.Equal(t, "body.json", active.JSONFileName)
	assert.True(t, active.HasSubmitConfig())
}

func TestSetJSONData_InvalidKeepsPrevious(t *testing.T) {
	s := mustReduce(t, newTestState(t), SetJSONData{Raw: `{"a": 1}`})

	next, err := Reduce(s, SetJSONData{Raw: `{"a": `})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJSONParse))
	assert.JSONEq(t, `{"a": 1}`, string(next.Active().JSONData))

	repaired := mustReduce(t, s, SetJSONData{Raw: `{'a': 2,}`, Repair: true})
	assert.JSONEq(t, `{"a": 2}`, string(repaired.Active().JSONData))

	cleared := mustReduce(t, s, SetJSONData{Raw: "  "})
	assert.Nil(t, cleared.Active().JSONData)
}

func TestSetAPIURL_InvalidLeavesState(t *testing.T) {
	s := mustReduce(t, newTestState(t), SetAPIURL{URL: "https://good.test"})

	next, err := Reduce(s, SetAPIURL{URL: "ftp://bad.test"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidURL))
	assert.Equal(t, "https://good.test", next.Active().APIURL)

	_, err = Reduce(s, SetAPIMethod{Method: "DELETE"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}

func TestCopyConfigFromPrevious(t *testing.T) {
	s := mustReduce(t, newTestState(t),
		SetJSONData{Raw: `{"p": ""}`},
		SetJSONPath{Path: "p"},
		SetAPIURL{URL: "http://x.test"},
		SetAPIMethod{Method: models.MethodGET},
	)

	_, err := Reduce(s, CopyConfigFromPrevious{})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	s = mustReduce(t, s, AddTab{SegmentID: "b1"}, CopyConfigFromPrevious{})
	active := s.Active()
	assert.JSONEq(t, `{"p": ""}`, string(active.JSONData))
	assert.Equal(t, "p", active.JSONPath)
	assert.Equal(t, "http://x.test", active.APIURL)
	assert.Equal(t, models.MethodGET, active.APIMethod)
}

func TestOnTab(t *testing.T) {
	s := mustReduce(t, newTestState(t), AddTab{SegmentID: "b1"})
	require.Equal(t, 1, s.ActiveTab)

	s = mustReduce(t, s, OnTab{Index: 0, Action: SetJSONPath{Path: "a.b"}})
	assert.Equal(t, "a.b", s.Templates[0].JSONPath)
	assert.Equal(t, "", s.Templates[1].JSONPath)
	assert.Equal(t, 1, s.ActiveTab)

	_, err := Reduce(s, OnTab{Index: 0, Action: SetValue{Field: "name", Value: "Bob"}})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	_, err = Reduce(s, OnTab{Index: 5, Action: SetJSONPath{Path: "x"}})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestRecordLastRequest(t *testing.T) {
	s := mustReduce(t, newTestState(t), RecordLastRequest{
		Prompt:   "Hello Ann",
		FullJSON: json.RawMessage(`{"q":"Hello Ann"}`),
		Response: json.RawMessage(`{"ok":true}`),
	})

	lr := s.Active().LastSuccessfulRequest
	require.NotNil(t, lr)
	assert.Equal(t, "Hello Ann", lr.Prompt)
	assert.JSONEq(t, `{"ok":true}`, string(lr.Response))
}

func TestToggles(t *testing.T) {
	s := mustReduce(t, newTestState(t), ToggleConfig{}, ToggleSegments{})
	assert.True(t, s.ConfigExpanded)
	assert.False(t, s.SegmentsExpanded)
}

func TestChangesTemplates(t *testing.T) {
	assert.False(t, ChangesTemplates(SelectTab{}))
	assert.False(t, ChangesTemplates(SetValue{}))
	assert.True(t, ChangesTemplates(AddSegment{}))
	assert.True(t, ChangesTemplates(OnTab{Action: SetAPIURL{}}))
	assert.False(t, ChangesTemplates(OnTab{Action: ToggleConfig{}}))
}
