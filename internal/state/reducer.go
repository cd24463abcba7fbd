package state

import (
	"fmt"
	"strings"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/submit"
)

// Reduce returns the state that results from applying a to s. s is never
// modified; on error the returned state is s unchanged.
func Reduce(s State, a Action) (State, error) {
	if a == nil {
		return s, apperrors.ValidationError("action is required")
	}
	if len(s.Templates) == 0 {
		return s, apperrors.InternalError("state has no templates")
	}

	next := s.Clone()
	if err := apply(&next, next.ActiveTab, a); err != nil {
		return s, err
	}

	next.Values = parser.ReconcileValues(ActiveFields(next), next.Values)
	return next, nil
}

func apply(s *State, tab int, a Action) error {
	switch a := a.(type) {
	case AddTab:
		return addTab(s, a)
	case RemoveTab:
		return removeTab(s, a.Index)
	case SelectTab:
		if err := checkTab(s, a.Index); err != nil {
			return err
		}
		s.ActiveTab = a.Index
		s.Drag = DragState{}
		s.EditingSegmentID, s.EditingSegmentName = "", ""
		return nil
	case RenameTab:
		if err := checkTab(s, a.Index); err != nil {
			return err
		}
		s.Templates[a.Index].Name = a.Name
		return nil
	case StartRenameTab:
		if err := checkTab(s, a.Index); err != nil {
			return err
		}
		idx := a.Index
		s.EditingTab = &idx
		s.EditingName = s.Templates[idx].Name
		return nil
	case SetEditingName:
		s.EditingName = a.Name
		return nil
	case CommitRenameTab:
		if s.EditingTab == nil {
			return nil
		}
		// A blank name without Force leaves the editor open.
		if !a.Force && strings.TrimSpace(s.EditingName) == "" {
			return nil
		}
		if err := checkTab(s, *s.EditingTab); err != nil {
			return err
		}
		s.Templates[*s.EditingTab].Name = s.EditingName
		s.EditingTab = nil
		s.EditingName = ""
		return nil
	case CancelRenameTab:
		s.EditingTab = nil
		s.EditingName = ""
		return nil

	case StartRenameSegment:
		seg, err := findSegment(s, tab, a.ID)
		if err != nil {
			return err
		}
		s.EditingSegmentID = seg.ID
		s.EditingSegmentName = seg.Name
		return nil
	case SetEditingSegmentName:
		s.EditingSegmentName = a.Name
		return nil
	case CommitRenameSegment:
		if s.EditingSegmentID == "" {
			return nil
		}
		if err := renameSegment(s, tab, s.EditingSegmentID, s.EditingSegmentName); err != nil {
			return err
		}
		s.EditingSegmentID, s.EditingSegmentName = "", ""
		return nil
	case CancelRenameSegment:
		s.EditingSegmentID, s.EditingSegmentName = "", ""
		return nil

	case DragStart:
		if _, err := findSegment(s, tab, a.ID); err != nil {
			return err
		}
		s.Drag = DragState{DraggedID: a.ID}
		return nil
	case DragOver:
		if s.Drag.DraggedID != "" && a.ID != s.Drag.DraggedID {
			s.Drag.OverID = a.ID
		}
		return nil
	case DragEnd:
		drag := s.Drag
		s.Drag = DragState{}
		if drag.DraggedID == "" || drag.OverID == "" {
			return nil
		}
		// Either segment may have vanished mid-drag; dropping is then a no-op.
		_ = moveSegment(s, tab, drag.DraggedID, drag.OverID)
		return nil

	case ToggleConfig:
		s.ConfigExpanded = !s.ConfigExpanded
		return nil
	case ToggleSegments:
		s.SegmentsExpanded = !s.SegmentsExpanded
		return nil

	case SetValue:
		return setValue(s, a)
	case ResetValues:
		s.Values = parser.DefaultValues(ActiveFields(*s))
		return nil

	case OnTab:
		if err := checkTab(s, a.Index); err != nil {
			return err
		}
		if !templateScoped(a.Action) {
			return apperrors.ValidationError(fmt.Sprintf("action %q cannot target a specific template", Name(a.Action)))
		}
		return apply(s, a.Index, a.Action)
	}

	if templateScoped(a) {
		return applyToTemplate(s, tab, a)
	}
	return apperrors.InternalError(fmt.Sprintf("unhandled action %T", a))
}

// templateScoped actions only touch a single template
func templateScoped(a Action) bool {
	switch a.(type) {
	case AddSegment, RemoveSegment, UpdateSegmentText, RenameSegment, MoveSegment,
		SetJSONData, SetJSONFileName, SetJSONPath, SetAPIURL, SetAPIMethod,
		CopyConfigFromPrevious, RecordLastRequest:
		return true
	default:
		return false
	}
}

func applyToTemplate(s *State, tab int, a Action) error {
	t := &s.Templates[tab]

	switch a := a.(type) {
	case AddSegment:
		if a.ID == "" {
			return apperrors.MissingFieldError("id")
		}
		if segmentIndex(t.Segments, a.ID) >= 0 {
			return apperrors.ValidationError(fmt.Sprintf("segment %s already exists", a.ID))
		}
		t.Segments = append(t.Segments, models.NewSegment(a.ID, models.DefaultName(len(t.Segments)+1)))
		return nil

	case RemoveSegment:
		i := segmentIndex(t.Segments, a.ID)
		if i < 0 {
			return apperrors.NotFoundError(fmt.Sprintf("Segment %s", a.ID))
		}
		if len(t.Segments) == 1 && a.ReplacementID == "" {
			return apperrors.MissingFieldError("replacementId")
		}
		t.Segments = append(t.Segments[:i], t.Segments[i+1:]...)
		if len(t.Segments) == 0 {
			t.Segments = []models.Segment{models.NewSegment(a.ReplacementID, models.DefaultName(1))}
		}
		if s.EditingSegmentID == a.ID {
			s.EditingSegmentID, s.EditingSegmentName = "", ""
		}
		if s.Drag.DraggedID == a.ID || s.Drag.OverID == a.ID {
			s.Drag = DragState{}
		}
		return nil

	case UpdateSegmentText:
		i := segmentIndex(t.Segments, a.ID)
		if i < 0 {
			return apperrors.NotFoundError(fmt.Sprintf("Segment %s", a.ID))
		}
		fields := a.Fields
		if fields == nil {
			fields = parser.Parse(a.Text)
		}
		t.Segments[i].Text = a.Text
		t.Segments[i].Fields = fields
		return nil

	case RenameSegment:
		return renameSegment(s, tab, a.ID, a.Name)

	case MoveSegment:
		return moveSegment(s, tab, a.FromID, a.ToID)

	case SetJSONData:
		if strings.TrimSpace(a.Raw) == "" {
			t.JSONData = nil
			return nil
		}
		_, canonical, err := submit.ParseDocument([]byte(a.Raw), a.Repair)
		if err != nil {
			return err
		}
		t.JSONData = canonical
		return nil

	case SetJSONFileName:
		t.JSONFileName = a.Name
		return nil

	case SetJSONPath:
		t.JSONPath = strings.TrimSpace(a.Path)
		return nil

	case SetAPIURL:
		if strings.TrimSpace(a.URL) == "" {
			t.APIURL = ""
			return nil
		}
		normalized, err := submit.NormalizeURL(a.URL)
		if err != nil {
			return err
		}
		t.APIURL = normalized
		return nil

	case SetAPIMethod:
		method, err := models.ParseMethod(string(a.Method))
		if err != nil {
			return apperrors.ValidationError(err.Error())
		}
		t.APIMethod = method
		return nil

	case CopyConfigFromPrevious:
		if tab == 0 {
			return apperrors.ValidationError("the first template has no previous template to copy from")
		}
		prev := s.Templates[tab-1].Clone()
		t.JSONData = prev.JSONData
		t.JSONPath = prev.JSONPath
		t.APIURL = prev.APIURL
		t.APIMethod = prev.APIMethod
		return nil

	case RecordLastRequest:
		t.LastSuccessfulRequest = &models.LastRequest{
			Prompt:   a.Prompt,
			FullJSON: append([]byte(nil), a.FullJSON...),
			Response: append([]byte(nil), a.Response...),
		}
		return nil
	}

	return apperrors.InternalError(fmt.Sprintf("unhandled template action %T", a))
}

func addTab(s *State, a AddTab) error {
	if a.SegmentID == "" {
		return apperrors.MissingFieldError("segmentId")
	}
	s.Templates = append(s.Templates, models.NewTemplate(models.DefaultName(len(s.Templates)+1), a.SegmentID))
	s.ActiveTab = len(s.Templates) - 1
	s.Drag = DragState{}
	return nil
}

func removeTab(s *State, index int) error {
	if err := checkTab(s, index); err != nil {
		return err
	}
	if len(s.Templates) <= 1 {
		return apperrors.ValidationError("cannot remove the only template")
	}

	s.Templates = append(s.Templates[:index], s.Templates[index+1:]...)

	s.ActiveTab = index
	if s.ActiveTab >= len(s.Templates) {
		s.ActiveTab = len(s.Templates) - 1
	}

	if s.EditingTab != nil {
		s.EditingTab = nil
		s.EditingName = ""
	}
	s.Drag = DragState{}
	s.EditingSegmentID, s.EditingSegmentName = "", ""
	return nil
}

func renameSegment(s *State, tab int, id, name string) error {
	t := &s.Templates[tab]
	i := segmentIndex(t.Segments, id)
	if i < 0 {
		return apperrors.NotFoundError(fmt.Sprintf("Segment %s", id))
	}
	t.Segments[i].Name = name
	return nil
}

// moveSegment removes the dragged segment and inserts it at the index the
// drop target held before removal.
func moveSegment(s *State, tab int, fromID, toID string) error {
	segments := s.Templates[tab].Segments
	from := segmentIndex(segments, fromID)
	if from < 0 {
		return apperrors.NotFoundError(fmt.Sprintf("Segment %s", fromID))
	}
	to := segmentIndex(segments, toID)
	if to < 0 {
		return apperrors.NotFoundError(fmt.Sprintf("Segment %s", toID))
	}
	if from == to {
		return nil
	}

	moved := segments[from]
	rest := append(append([]models.Segment{}, segments[:from]...), segments[from+1:]...)

	out := make([]models.Segment, 0, len(segments))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)

	s.Templates[tab].Segments = out
	return nil
}

func setValue(s *State, a SetValue) error {
	for _, f := range ActiveFields(*s) {
		if f.Name != a.Field {
			continue
		}
		for _, opt := range f.Options {
			if opt == a.Value {
				s.Values[a.Field] = a.Value
				return nil
			}
		}
		return apperrors.ValidationError(fmt.Sprintf("%q is not an option of field %s", a.Value, a.Field)).
			WithContext("options", f.Options)
	}
	return apperrors.NotFoundError(fmt.Sprintf("Field %s", a.Field))
}

func checkTab(s *State, index int) error {
	if index < 0 || index >= len(s.Templates) {
		return apperrors.NotFoundError(fmt.Sprintf("Template %d", index))
	}
	return nil
}

func findSegment(s *State, tab int, id string) (models.Segment, error) {
	segments := s.Templates[tab].Segments
	i := segmentIndex(segments, id)
	if i < 0 {
		return models.Segment{}, apperrors.NotFoundError(fmt.Sprintf("Segment %s", id))
	}
	return segments[i], nil
}
