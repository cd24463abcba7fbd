package service

import (
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/state"
)

// AddTemplate appends a new template, selects it and returns its index
func (s *Service) AddTemplate() (int, error) {
	next, err := s.Dispatch(state.AddTab{SegmentID: models.NewSegmentID()})
	if err != nil {
		return 0, err
	}
	return next.ActiveTab, nil
}

// RemoveTemplate deletes the template at index
func (s *Service) RemoveTemplate(index int) error {
	_, err := s.Dispatch(state.RemoveTab{Index: index})
	return err
}

// RenameTemplate renames the template at index
func (s *Service) RenameTemplate(index int, name string) error {
	_, err := s.Dispatch(state.RenameTab{Index: index, Name: name})
	return err
}

// AddSegment appends an empty segment to the template at index and returns its id
func (s *Service) AddSegment(index int) (string, error) {
	id := models.NewSegmentID()
	if _, err := s.Dispatch(state.OnTab{Index: index, Action: state.AddSegment{ID: id}}); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveSegment deletes a segment. Removing the last one leaves a fresh empty segment.
func (s *Service) RemoveSegment(index int, id string) error {
	_, err := s.Dispatch(state.OnTab{Index: index, Action: state.RemoveSegment{
		ID:            id,
		ReplacementID: models.NewSegmentID(),
	}})
	return err
}

// UpdateSegment replaces a segment's text. Fields are parsed through the cache.
func (s *Service) UpdateSegment(index int, id, text string) error {
	_, err := s.Dispatch(state.OnTab{Index: index, Action: state.UpdateSegmentText{
		ID:     id,
		Text:   text,
		Fields: s.cache.Fields(text),
	}})
	return err
}

// RenameSegment renames a segment
func (s *Service) RenameSegment(index int, id, name string) error {
	_, err := s.Dispatch(state.OnTab{Index: index, Action: state.RenameSegment{ID: id, Name: name}})
	return err
}

// MoveSegment moves fromID to the position held by toID
func (s *Service) MoveSegment(index int, fromID, toID string) error {
	_, err := s.Dispatch(state.OnTab{Index: index, Action: state.MoveSegment{FromID: fromID, ToID: toID}})
	return err
}

// Configure applies submit configuration to the template at index. Nil
// fields are left unchanged. The update is all or nothing: the first invalid
// value aborts it before anything is saved.
func (s *Service) Configure(index int, cfg ConfigUpdate) error {
	var actions []state.Action
	if cfg.JSONData != nil {
		actions = append(actions, state.SetJSONData{Raw: *cfg.JSONData, Repair: cfg.Repair})
	}
	if cfg.JSONFileName != nil {
		actions = append(actions, state.SetJSONFileName{Name: *cfg.JSONFileName})
	}
	if cfg.JSONPath != nil {
		actions = append(actions, state.SetJSONPath{Path: *cfg.JSONPath})
	}
	if cfg.APIURL != nil {
		actions = append(actions, state.SetAPIURL{URL: *cfg.APIURL})
	}
	if cfg.APIMethod != nil {
		method, err := models.ParseMethod(*cfg.APIMethod)
		if err != nil {
			return err
		}
		actions = append(actions, state.SetAPIMethod{Method: method})
	}

	scoped := make([]state.Action, len(actions))
	for i, a := range actions {
		scoped[i] = state.OnTab{Index: index, Action: a}
	}
	return s.dispatchAll(scoped)
}

// CopyConfigFromPrevious copies JSON data, path, URL and method from the
// template before index.
func (s *Service) CopyConfigFromPrevious(index int) error {
	_, err := s.Dispatch(state.OnTab{Index: index, Action: state.CopyConfigFromPrevious{}})
	return err
}

// ConfigUpdate is a partial update of a template's submit configuration
type ConfigUpdate struct {
	JSONData     *string `json:"jsonData,omitempty"`
	Repair       bool    `json:"repair,omitempty"`
	JSONFileName *string `json:"jsonFileName,omitempty"`
	JSONPath     *string `json:"jsonPath,omitempty"`
	APIURL       *string `json:"apiUrl,omitempty"`
	APIMethod    *string `json:"apiMethod,omitempty"`
}
