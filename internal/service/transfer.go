package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/state"
	"github.com/dpshade/pocket-forms/internal/submit"
)

// exportFile is the YAML layout used for sharing templates between machines.
// Segment ids and cached fields are not exported; they are rebuilt on import.
type exportFile struct {
	Version   int              `yaml:"version"`
	Templates []exportTemplate `yaml:"templates"`
}

type exportTemplate struct {
	Name         string          `yaml:"name"`
	Segments     []exportSegment `yaml:"segments"`
	JSONData     string          `yaml:"json_data,omitempty"`
	JSONFileName string          `yaml:"json_file_name,omitempty"`
	JSONPath     string          `yaml:"json_path,omitempty"`
	APIURL       string          `yaml:"api_url,omitempty"`
	APIMethod    string          `yaml:"api_method,omitempty"`
}

type exportSegment struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

const exportVersion = 1

// Export writes the templates at indices (all when empty) as YAML
func (s *Service) Export(w io.Writer, indices ...int) error {
	templates := s.ListTemplates()

	selected := templates
	if len(indices) > 0 {
		selected = make([]models.Template, 0, len(indices))
		for _, i := range indices {
			if i < 0 || i >= len(templates) {
				return apperrors.NotFoundError(fmt.Sprintf("Template %d", i))
			}
			selected = append(selected, templates[i])
		}
	}

	out := exportFile{Version: exportVersion}
	for _, t := range selected {
		et := exportTemplate{
			Name:         t.Name,
			JSONFileName: t.JSONFileName,
			JSONPath:     t.JSONPath,
			APIURL:       t.APIURL,
			APIMethod:    string(t.APIMethod),
		}
		if len(t.JSONData) > 0 {
			var buf bytes.Buffer
			if err := json.Indent(&buf, t.JSONData, "", "  "); err != nil {
				et.JSONData = string(t.JSONData)
			} else {
				et.JSONData = buf.String()
			}
		}
		for _, seg := range t.Segments {
			et.Segments = append(et.Segments, exportSegment{Name: seg.Name, Text: seg.Text})
		}
		out.Templates = append(out.Templates, et)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode templates: %w", err)
	}
	return enc.Close()
}

// Import reads templates written by Export and appends them, or replaces the
// current list when replace is set. It returns the number imported.
func (s *Service) Import(r io.Reader, replace bool) (int, error) {
	var in exportFile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		if err == io.EOF {
			return 0, apperrors.ValidationError("import file is empty")
		}
		return 0, apperrors.ValidationError(fmt.Sprintf("invalid import file: %v", err))
	}
	if in.Version > exportVersion {
		return 0, apperrors.ValidationError(fmt.Sprintf("unsupported export version %d", in.Version))
	}
	if len(in.Templates) == 0 {
		return 0, apperrors.ValidationError("import file contains no templates")
	}

	imported := make([]models.Template, 0, len(in.Templates))
	for i, et := range in.Templates {
		t, err := s.templateFromExport(et, i)
		if err != nil {
			return 0, err
		}
		imported = append(imported, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	templates := imported
	if !replace {
		templates = append(append([]models.Template{}, s.state.Templates...), imported...)
	}

	next := state.New(templates)
	if !replace && s.state.ActiveTab < len(next.Templates) {
		next.ActiveTab = s.state.ActiveTab
		next.Values = s.state.Values
	}
	next.SegmentsExpanded = s.state.SegmentsExpanded
	next.ConfigExpanded = s.state.ConfigExpanded
	next.Values = parser.ReconcileValues(state.ActiveFields(next), next.Values)

	if err := s.store.Save(next.Templates); err != nil {
		return 0, err
	}
	s.state = next

	logging.Info("templates imported", zap.Int("count", len(imported)), zap.Bool("replace", replace))
	return len(imported), nil
}

func (s *Service) templateFromExport(et exportTemplate, position int) (models.Template, error) {
	name := et.Name
	if strings.TrimSpace(name) == "" {
		name = models.DefaultName(position + 1)
	}

	method, err := models.ParseMethod(et.APIMethod)
	if err != nil {
		return models.Template{}, apperrors.ValidationError(fmt.Sprintf("template '%s': %v", name, err))
	}

	t := models.Template{
		Name:         name,
		JSONFileName: et.JSONFileName,
		JSONPath:     et.JSONPath,
		APIMethod:    method,
	}

	if et.APIURL != "" {
		u, err := submit.NormalizeURL(et.APIURL)
		if err != nil {
			return models.Template{}, err
		}
		t.APIURL = u
	}

	if strings.TrimSpace(et.JSONData) != "" {
		_, canonical, err := submit.ParseDocument([]byte(et.JSONData), false)
		if err != nil {
			return models.Template{}, err
		}
		t.JSONData = canonical
	}

	for j, es := range et.Segments {
		segName := es.Name
		if segName == "" {
			segName = models.DefaultName(j + 1)
		}
		seg := models.NewSegment(models.NewSegmentID(), segName)
		seg.Text = es.Text
		seg.Fields = s.cache.Fields(es.Text)
		t.Segments = append(t.Segments, seg)
	}
	if len(t.Segments) == 0 {
		t.Segments = []models.Segment{models.NewSegment(models.NewSegmentID(), models.DefaultName(1))}
	}

	return t, nil
}
