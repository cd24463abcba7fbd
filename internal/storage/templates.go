package storage

import (
	"bytes"
	"encoding/json"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
)

// TemplatesKey is the key holding the JSON array of templates
const TemplatesKey = "promptTemplates"

// TemplateStore persists the whole template list under TemplatesKey
type TemplateStore struct {
	kv KV
}

// NewTemplateStore wraps kv
func NewTemplateStore(kv KV) *TemplateStore {
	return &TemplateStore{kv: kv}
}

// KV returns the underlying store
func (s *TemplateStore) KV() KV {
	return s.kv
}

// Load returns the stored templates. When nothing is stored yet, the default
// single-template list is returned and written back. A stored value that does
// not decode is reported as FILE_CORRUPTED rather than silently replaced.
func (s *TemplateStore) Load() ([]models.Template, error) {
	data, ok, err := s.kv.Get(TemplatesKey)
	if err != nil {
		return nil, apperrors.StorageError("load templates", err)
	}

	if !ok || len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		templates := models.DefaultTemplates()
		if err := s.Save(templates); err != nil {
			return nil, err
		}
		return templates, nil
	}

	templates, err := DecodeTemplates(data)
	if err != nil {
		return nil, apperrors.CorruptedDataError(TemplatesKey, err)
	}
	if len(templates) == 0 {
		templates = models.DefaultTemplates()
	}

	return templates, nil
}

// Save rewrites the whole template list
func (s *TemplateStore) Save(templates []models.Template) error {
	data, err := json.Marshal(templates)
	if err != nil {
		return apperrors.StorageError("encode templates", err)
	}
	if err := s.kv.Set(TemplatesKey, data); err != nil {
		return apperrors.StorageError("save templates", err)
	}
	return nil
}

// DecodeTemplates parses a stored template list, accepting the legacy
// "contents" segment key. Templates without segments get an empty one.
// Each segment's field cache is rebuilt from its text; stored caches may be stale.
func DecodeTemplates(data []byte) ([]models.Template, error) {
	var templates []models.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, err
	}
	for i := range templates {
		t := &templates[i]
		if len(t.Segments) == 0 {
			t.Segments = []models.Segment{models.NewSegment(models.NewSegmentID(), models.DefaultName(1))}
		}
		for j := range t.Segments {
			if t.Segments[j].ID == "" {
				t.Segments[j].ID = models.NewSegmentID()
			}
			t.Segments[j].Fields = parser.Parse(t.Segments[j].Text)
		}
	}
	return templates, nil
}
