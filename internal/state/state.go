// Package state holds the editor state as a plain value and the pure
// transitions that produce a new state from an action.
package state

import (
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/renderer"
)

// DragState tracks an in-progress segment reorder
type DragState struct {
	DraggedID string `json:"draggedId,omitempty"`
	OverID    string `json:"overId,omitempty"`
}

// State is the complete, serializable editor state
type State struct {
	Templates []models.Template `json:"templates"`
	ActiveTab int               `json:"activeTab"`

	// Inline tab rename
	EditingTab  *int   `json:"editingTab,omitempty"`
	EditingName string `json:"editingName,omitempty"`

	// Inline segment rename
	EditingSegmentID   string `json:"editingSegmentId,omitempty"`
	EditingSegmentName string `json:"editingSegmentName,omitempty"`

	ConfigExpanded   bool      `json:"configExpanded"`
	SegmentsExpanded bool      `json:"segmentsExpanded"`
	Drag             DragState `json:"drag"`

	// Values holds the form selection for the active template
	Values map[string]string `json:"values"`
}

// New builds a state around templates. An empty list is replaced with one
// default template so the list is never empty. Segment field caches are
// rebuilt from their text.
func New(templates []models.Template) State {
	if len(templates) == 0 {
		templates = models.DefaultTemplates()
	}
	s := State{
		Templates:        cloneTemplates(templates),
		SegmentsExpanded: true,
	}
	for i := range s.Templates {
		ensureSegment(&s.Templates[i])
		for j := range s.Templates[i].Segments {
			seg := &s.Templates[i].Segments[j]
			seg.Fields = parser.Parse(seg.Text)
		}
	}
	s.Values = parser.DefaultValues(ActiveFields(s))
	return s
}

// Clone returns a deep copy of s
func (s State) Clone() State {
	c := s
	c.Templates = cloneTemplates(s.Templates)
	if s.EditingTab != nil {
		idx := *s.EditingTab
		c.EditingTab = &idx
	}
	c.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = v
	}
	return c
}

// Active returns the active template
func (s State) Active() models.Template {
	return s.Templates[s.ActiveTab]
}

// ActiveFields returns the aggregated fields of the active template
func ActiveFields(s State) []models.FieldDefinition {
	if len(s.Templates) == 0 {
		return nil
	}
	return parser.Aggregate(s.Active().Segments)
}

// Generate renders the active template with the current form values
func Generate(s State) string {
	if len(s.Templates) == 0 {
		return ""
	}
	return renderer.Generate(s.Active().Segments, ActiveFields(s), s.Values)
}

// SegmentIndex returns the position of the segment with id in the active template, or -1
func (s State) SegmentIndex(id string) int {
	return segmentIndex(s.Active().Segments, id)
}

func segmentIndex(segments []models.Segment, id string) int {
	for i, seg := range segments {
		if seg.ID == id {
			return i
		}
	}
	return -1
}

func cloneTemplates(templates []models.Template) []models.Template {
	out := make([]models.Template, len(templates))
	for i, t := range templates {
		out[i] = t.Clone()
	}
	return out
}

func ensureSegment(t *models.Template) {
	if len(t.Segments) == 0 {
		t.Segments = []models.Segment{models.NewSegment(models.NewSegmentID(), models.DefaultName(1))}
	}
}
