package renderer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
)

// Generate substitutes the selected value of every field into each segment
// and joins the results with newlines. Every token whose label matches a field
// label is replaced, whatever options it declares. Fields without a value
// render as the empty string.
func Generate(segments []models.Segment, fields []models.FieldDefinition, values map[string]string) string {
	patterns := make([]*regexp.Regexp, len(fields))
	for i, f := range fields {
		patterns[i] = tokenPatternFor(f.Label)
	}

	out := make([]string, len(segments))
	for i, seg := range segments {
		text := seg.Text
		for j, f := range fields {
			// Literal replacement: values may contain '$'.
			text = patterns[j].ReplaceAllLiteralString(text, values[f.Name])
		}
		out[i] = text
	}

	return strings.Join(out, "\n")
}

// tokenPatternFor matches "[label]" and "[label: ...]" for a specific label.
// The label is quoted so characters like '.' or '(' match literally.
func tokenPatternFor(label string) *regexp.Regexp {
	return regexp.MustCompile(`\[\s*` + regexp.QuoteMeta(label) + `\s*(?::\s*[\s\S]*?)?\]`)
}

// Renderer handles prompt rendering for a single template
type Renderer struct {
	template *models.Template
	fields   []models.FieldDefinition
}

// NewRenderer creates a new renderer instance. When fields is nil they are
// aggregated from the template segments.
func NewRenderer(tmpl *models.Template, fields []models.FieldDefinition) *Renderer {
	if fields == nil {
		fields = parser.Aggregate(tmpl.Segments)
	}
	return &Renderer{
		template: tmpl,
		fields:   fields,
	}
}

// Fields returns the fields the renderer substitutes
func (r *Renderer) Fields() []models.FieldDefinition {
	return r.fields
}

// RenderText renders the template as plain text. Missing values fall back to
// each field's first option.
func (r *Renderer) RenderText(values map[string]string) string {
	merged := parser.DefaultValues(r.fields)
	for k, v := range values {
		merged[k] = v
	}
	return Generate(r.template.Segments, r.fields, merged)
}

// RenderMessages renders the prompt as a JSON message array for LLM APIs
func (r *Renderer) RenderMessages(values map[string]string) (string, error) {
	messages := []Message{
		{
			Role:    "user",
			Content: r.RenderText(values),
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
