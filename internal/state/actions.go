package state

import (
	"encoding/json"

	"github.com/dpshade/pocket-forms/internal/models"
)

// Action is a state transition request. Anything random (segment ids) is
// carried on the action so Reduce stays deterministic.
type Action interface {
	actionName() string
}

// Tabs

type AddTab struct {
	SegmentID string
}

type RemoveTab struct {
	Index int
}

type SelectTab struct {
	Index int
}

// RenameTab renames a template directly, without the inline editing flow
type RenameTab struct {
	Index int
	Name  string
}

type StartRenameTab struct {
	Index int
}

type SetEditingName struct {
	Name string
}

// CommitRenameTab applies EditingName. A blank name is only accepted when Force is set.
type CommitRenameTab struct {
	Force bool
}

type CancelRenameTab struct{}

// Segments

type AddSegment struct {
	ID string
}

// RemoveSegment deletes a segment. ReplacementID names the empty segment
// created when the last one is removed.
type RemoveSegment struct {
	ID            string
	ReplacementID string
}

// UpdateSegmentText replaces a segment's text. Fields, when nil, are parsed from Text.
type UpdateSegmentText struct {
	ID     string
	Text   string
	Fields []models.FieldDefinition
}

type RenameSegment struct {
	ID   string
	Name string
}

type StartRenameSegment struct {
	ID string
}

type SetEditingSegmentName struct {
	Name string
}

type CommitRenameSegment struct{}

type CancelRenameSegment struct{}

// MoveSegment moves FromID to the position currently held by ToID
type MoveSegment struct {
	FromID string
	ToID   string
}

type DragStart struct {
	ID string
}

type DragOver struct {
	ID string
}

type DragEnd struct{}

// Configuration

// SetJSONData replaces the JSON document. An empty Raw clears it.
type SetJSONData struct {
	Raw    string
	Repair bool
}

type SetJSONFileName struct {
	Name string
}

type SetJSONPath struct {
	Path string
}

// SetAPIURL normalizes and stores the endpoint. An empty URL clears it.
type SetAPIURL struct {
	URL string
}

type SetAPIMethod struct {
	Method models.HTTPMethod
}

type CopyConfigFromPrevious struct{}

type ToggleConfig struct{}

type ToggleSegments struct{}

// Form

type SetValue struct {
	Field string
	Value string
}

type ResetValues struct{}

// RecordLastRequest stores the outcome of a completed submission
type RecordLastRequest struct {
	Prompt   string
	FullJSON json.RawMessage
	Response json.RawMessage
}

// OnTab applies a template-scoped action to the template at Index without
// changing the active tab.
type OnTab struct {
	Index  int
	Action Action
}

func (AddTab) actionName() string                 { return "add-tab" }
func (RemoveTab) actionName() string              { return "remove-tab" }
func (SelectTab) actionName() string              { return "select-tab" }
func (RenameTab) actionName() string              { return "rename-tab" }
func (StartRenameTab) actionName() string         { return "start-rename-tab" }
func (SetEditingName) actionName() string         { return "set-editing-name" }
func (CommitRenameTab) actionName() string        { return "commit-rename-tab" }
func (CancelRenameTab) actionName() string        { return "cancel-rename-tab" }
func (AddSegment) actionName() string             { return "add-segment" }
func (RemoveSegment) actionName() string          { return "remove-segment" }
func (UpdateSegmentText) actionName() string      { return "update-segment-text" }
func (RenameSegment) actionName() string          { return "rename-segment" }
func (StartRenameSegment) actionName() string     { return "start-rename-segment" }
func (SetEditingSegmentName) actionName() string  { return "set-editing-segment-name" }
func (CommitRenameSegment) actionName() string    { return "commit-rename-segment" }
func (CancelRenameSegment) actionName() string    { return "cancel-rename-segment" }
func (MoveSegment) actionName() string            { return "move-segment" }
func (DragStart) actionName() string              { return "drag-start" }
func (DragOver) actionName() string               { return "drag-over" }
func (DragEnd) actionName() string                { return "drag-end" }
func (SetJSONData) actionName() string            { return "set-json-data" }
func (SetJSONFileName) actionName() string        { return "set-json-file-name" }
func (SetJSONPath) actionName() string            { return "set-json-path" }
func (SetAPIURL) actionName() string              { return "set-api-url" }
func (SetAPIMethod) actionName() string           { return "set-api-method" }
func (CopyConfigFromPrevious) actionName() string { return "copy-config-from-previous" }
func (ToggleConfig) actionName() string           { return "toggle-config" }
func (ToggleSegments) actionName() string         { return "toggle-segments" }
func (SetValue) actionName() string               { return "set-value" }
func (ResetValues) actionName() string            { return "reset-values" }
func (RecordLastRequest) actionName() string      { return "record-last-request" }
func (OnTab) actionName() string                  { return "on-tab" }

// Name returns a stable identifier for logging
func Name(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// ChangesTemplates reports whether a successful reduction of a can modify the
// persisted template list.
func ChangesTemplates(a Action) bool {
	switch a := a.(type) {
	case SelectTab, StartRenameTab, SetEditingName, CancelRenameTab,
		StartRenameSegment, SetEditingSegmentName, CancelRenameSegment,
		DragStart, DragOver, ToggleConfig, ToggleSegments, SetValue, ResetValues:
		return false
	case OnTab:
		return ChangesTemplates(a.Action)
	default:
		return true
	}
}
