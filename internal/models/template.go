package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HTTPMethod is the verb used when submitting a generated prompt
type HTTPMethod string

const (
	MethodGET  HTTPMethod = "GET"
	MethodPOST HTTPMethod = "POST"
)

// ParseMethod normalizes a user supplied method name
func ParseMethod(s string) (HTTPMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return MethodGET, nil
	case "POST", "":
		return MethodPOST, nil
	default:
		return "", fmt.Errorf("unsupported method %q (want GET or POST)", s)
	}
}

// Template is a named collection of segments plus optional remote submission settings
type Template struct {
	Name                  string          `json:"name" yaml:"name"`
	Segments              []Segment       `json:"segments" yaml:"segments"`
	JSONData              json.RawMessage `json:"jsonData,omitempty" yaml:"-"`
	JSONPath              string          `json:"jsonPath,omitempty" yaml:"json_path,omitempty"`
	APIURL                string          `json:"apiUrl,omitempty" yaml:"api_url,omitempty"`
	APIMethod             HTTPMethod      `json:"apiMethod" yaml:"api_method"`
	JSONFileName          string          `json:"jsonFileName,omitempty" yaml:"json_file_name,omitempty"`
	LastSuccessfulRequest *LastRequest    `json:"lastSuccessfulRequest,omitempty" yaml:"-"`
}

// Segment is one independently editable block of template text.
// Fields caches the parse of Text and may be stale until re-parsed.
type Segment struct {
	ID     string            `json:"id" yaml:"id"`
	Name   string            `json:"name" yaml:"name"`
	Text   string            `json:"text" yaml:"text"`
	Fields []FieldDefinition `json:"fields" yaml:"-"`
}

// FieldDefinition is the form-facing description of a bracket token
type FieldDefinition struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label" yaml:"label"`
	Options []string `json:"options" yaml:"options"`
	Start   int      `json:"start" yaml:"start"`
	End     int      `json:"end" yaml:"end"`
}

// LastRequest records the most recent submission that completed without a transport error
type LastRequest struct {
	Prompt   string          `json:"prompt"`
	FullJSON json.RawMessage `json:"fullJson"`
	Response json.RawMessage `json:"response"`
}

// DefaultName returns the placeholder name for the n-th (1-based) template or segment
func DefaultName(n int) string {
	return fmt.Sprintf("Prompt %d", n)
}

// NewSegmentID returns a fresh immutable segment identifier
func NewSegmentID() string {
	return uuid.NewString()
}

// NewSegment creates an empty segment
func NewSegment(id, name string) Segment {
	return Segment{
		ID:     id,
		Name:   name,
		Fields: []FieldDefinition{},
	}
}

// NewTemplate creates a template holding a single empty segment
func NewTemplate(name, segmentID string) Template {
	return Template{
		Name:      name,
		Segments:  []Segment{NewSegment(segmentID, DefaultName(1))},
		APIMethod: MethodPOST,
	}
}

// DefaultTemplates is the list seeded on first load
func DefaultTemplates() []Template {
	return []Template{NewTemplate(DefaultName(1), NewSegmentID())}
}

// HasSubmitConfig reports whether the template can be sent to a remote endpoint
func (t Template) HasSubmitConfig() bool {
	return len(t.JSONData) > 0 && string(t.JSONData) != "null" && t.JSONPath != "" && t.APIURL != ""
}

// Clone returns a deep copy of the template
func (t Template) Clone() Template {
	c := t
	c.Segments = make([]Segment, len(t.Segments))
	for i, s := range t.Segments {
		c.Segments[i] = s.Clone()
	}
	if t.JSONData != nil {
		c.JSONData = append(json.RawMessage(nil), t.JSONData...)
	}
	if t.LastSuccessfulRequest != nil {
		lr := *t.LastSuccessfulRequest
		lr.FullJSON = append(json.RawMessage(nil), lr.FullJSON...)
		lr.Response = append(json.RawMessage(nil), lr.Response...)
		c.LastSuccessfulRequest = &lr
	}
	return c
}

// Clone returns a deep copy of the segment
func (s Segment) Clone() Segment {
	c := s
	c.Fields = make([]FieldDefinition, len(s.Fields))
	for i, f := range s.Fields {
		f.Options = append([]string(nil), f.Options...)
		c.Fields[i] = f
	}
	return c
}

// UnmarshalJSON accepts the legacy "contents" key as an alias of "segments"
func (t *Template) UnmarshalJSON(data []byte) error {
	type plain Template
	var aux struct {
		plain
		Contents []Segment `json:"contents"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Template(aux.plain)
	if len(t.Segments) == 0 && len(aux.Contents) > 0 {
		t.Segments = aux.Contents
	}
	if t.APIMethod == "" {
		t.APIMethod = MethodPOST
	}
	return nil
}

// Display helpers for single-line segment listings

// Title is the segment name, or its id when unnamed
func (s Segment) Title() string {
	if s.Name != "" {
		return cleanString(s.Name)
	}
	return s.ID
}

// Description is a one-line preview of the segment text
func (s Segment) Description() string {
	text := cleanString(s.Text)
	if text == "" {
		return "(empty)"
	}
	const maxLen = 60
	if runes := []rune(text); len(runes) > maxLen {
		text = string(runes[:maxLen-3]) + "..."
	}
	return text
}

// cleanString removes characters that break single-line rendering
func cleanString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
