package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/renderer"
	"github.com/dpshade/pocket-forms/internal/state"
	"github.com/dpshade/pocket-forms/internal/storage"
	"github.com/dpshade/pocket-forms/internal/submit"
)

// Service provides business logic for template management. It owns the
// editor state and is safe for concurrent use by the API, MCP server and TUI.
type Service struct {
	mu      sync.Mutex
	state   state.State
	store   *storage.TemplateStore
	cache   *parser.FieldCache
	client  *submit.Client
	watcher *storage.Watcher

	// onReload is notified after templates are replaced from disk
	onReload func()
}

// Options configures a Service
type Options struct {
	// SubmitTimeout bounds outbound submissions (submit.DefaultTimeout when zero)
	SubmitTimeout time.Duration
	// CacheSize bounds the parsed-field cache
	CacheSize int
	// Client overrides the submit client, mainly for tests
	Client *submit.Client
}

// SubmitResult describes a completed submission
type SubmitResult struct {
	Prompt     string          `json:"prompt"`
	StatusCode int             `json:"statusCode"`
	Response   interface{}     `json:"response"`
	FullJSON   json.RawMessage `json:"fullJson"`
}

// NewService loads templates from store and builds the initial state
func NewService(store *storage.TemplateStore, opts Options) (*Service, error) {
	templates, err := store.Load()
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = submit.NewClient(opts.SubmitTimeout)
	}

	return &Service{
		state:  state.New(templates),
		store:  store,
		cache:  parser.NewFieldCache(opts.CacheSize),
		client: client,
	}, nil
}

// Close stops the watcher, if any, and closes the store
func (s *Service) Close() error {
	s.StopWatching()
	return s.store.KV().Close()
}

// State returns a copy of the current state
func (s *Service) State() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies an action and persists the template list when it changed.
// If saving fails the in-memory state is left as it was.
func (s *Service) Dispatch(a state.Action) (state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(a)
}

func (s *Service) dispatchLocked(a state.Action) (state.State, error) {
	next, err := state.Reduce(s.state, a)
	if err != nil {
		logging.Debug("action rejected", zap.String("action", state.Name(a)), zap.Error(err))
		return s.state.Clone(), err
	}

	if state.ChangesTemplates(a) {
		if err := s.store.Save(next.Templates); err != nil {
			logging.Error("failed to persist templates", zap.String("action", state.Name(a)), zap.Error(err))
			return s.state.Clone(), err
		}
	}

	s.state = next
	logging.Debug("action applied", zap.String("action", state.Name(a)))
	return s.state.Clone(), nil
}

// dispatchAll applies actions in order and persists once. If any action
// fails nothing is applied or saved.
func (s *Service) dispatchAll(actions []state.Action) error {
	if len(actions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	for _, a := range actions {
		reduced, err := state.Reduce(next, a)
		if err != nil {
			logging.Debug("action rejected", zap.String("action", state.Name(a)), zap.Error(err))
			return err
		}
		next = reduced
	}

	if err := s.store.Save(next.Templates); err != nil {
		logging.Error("failed to persist templates", zap.Int("actions", len(actions)), zap.Error(err))
		return err
	}
	s.state = next
	return nil
}

// ListTemplates returns all templates in order
func (s *Service) ListTemplates() []models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Template, len(s.state.Templates))
	for i, t := range s.state.Templates {
		out[i] = t.Clone()
	}
	return out
}

// GetTemplate returns the template at index
func (s *Service) GetTemplate(index int) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.templateLocked(index)
	if err != nil {
		return models.Template{}, err
	}
	return t.Clone(), nil
}

func (s *Service) templateLocked(index int) (models.Template, error) {
	if index < 0 || index >= len(s.state.Templates) {
		return models.Template{}, apperrors.NotFoundError(fmt.Sprintf("Template %d", index))
	}
	return s.state.Templates[index], nil
}

// FindTemplate resolves a user reference to a template index. The reference
// is either a 0-based index or a name, matched exactly (case-insensitive)
// before falling back to fuzzy matching.
func (s *Service) FindTemplate(ref string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.state.ActiveTab, nil
	}

	if i, err := strconv.Atoi(ref); err == nil {
		if _, err := s.templateLocked(i); err != nil {
			return 0, err
		}
		return i, nil
	}

	names := make([]string, len(s.state.Templates))
	for i, t := range s.state.Templates {
		if strings.EqualFold(t.Name, ref) {
			return i, nil
		}
		names[i] = t.Name
	}

	matches := fuzzy.Find(ref, names)
	if len(matches) == 0 {
		return 0, apperrors.NotFoundError(fmt.Sprintf("Template matching '%s'", ref))
	}
	return matches[0].Index, nil
}

// Fields returns the aggregated fields of the template at index
func (s *Service) Fields(index int) ([]models.FieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.templateLocked(index)
	if err != nil {
		return nil, err
	}
	return s.cache.Aggregate(t.Segments), nil
}

// Generate renders the template at index. Fields without a supplied value
// use their first option. Unknown field names are rejected.
func (s *Service) Generate(index int, values map[string]string) (string, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateLocked(index, values)
}

func (s *Service) generateLocked(index int, values map[string]string) (string, map[string]string, error) {
	t, err := s.templateLocked(index)
	if err != nil {
		return "", nil, err
	}

	fields := s.cache.Aggregate(t.Segments)
	resolved := parser.DefaultValues(fields)

	var unknown []string
	for name, v := range values {
		if _, ok := resolved[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		resolved[name] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", nil, apperrors.ValidationError(fmt.Sprintf("unknown field(s): %s", strings.Join(unknown, ", "))).
			WithContext("fields", fieldNames(fields))
	}

	return renderer.Generate(t.Segments, fields, resolved), resolved, nil
}

// GenerateActive renders the active template with the form values held in state
func (s *Service) GenerateActive() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return state.Generate(s.state)
}

// RenderMessages renders the template at index as a chat message array
func (s *Service) RenderMessages(index int, values map[string]string) (string, error) {
	s.mu.Lock()
	t, err := s.templateLocked(index)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	t = t.Clone()
	fields := s.cache.Aggregate(t.Segments)
	s.mu.Unlock()

	if _, _, err := s.Generate(index, values); err != nil {
		return "", err
	}
	return renderer.NewRenderer(&t, fields).RenderMessages(values)
}

// Submit generates the prompt for the template at index and sends it to the
// configured endpoint. A successful call is recorded as the template's last
// successful request. The lock is not held while the request is in flight.
func (s *Service) Submit(ctx context.Context, index int, values map[string]string) (*SubmitResult, error) {
	s.mu.Lock()
	t, err := s.templateLocked(index)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	prompt, _, err := s.generateLocked(index, values)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if missing := missingSubmitConfig(t); len(missing) > 0 {
		return nil, apperrors.ValidationError(fmt.Sprintf("template '%s' is missing submit configuration: %s", t.Name, strings.Join(missing, ", ")))
	}

	doc, _, err := submit.ParseDocument(t.JSONData, false)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Submit(ctx, submit.Request{
		Prompt:   prompt,
		Document: doc,
		Path:     t.JSONPath,
		URL:      t.APIURL,
		Method:   t.APIMethod,
	})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		Prompt:     prompt,
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
		FullJSON:   resp.FullJSON,
	}

	s.recordLastRequest(index, t, state.RecordLastRequest{
		Prompt:   prompt,
		FullJSON: resp.FullJSON,
		Response: resp.RawBody(),
	})

	return result, nil
}

// recordLastRequest stores a completed submission on the template it was
// sent from. Tabs may have been added or removed while the request was in
// flight, so the template is found again by its segment ids.
func (s *Service) recordLastRequest(sentIndex int, sent models.Template, record state.RecordLastRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := indexOfTemplate(s.state.Templates, sent, sentIndex)
	if index < 0 {
		logging.Warn("template removed before the response arrived; last request not recorded",
			zap.String("template", sent.Name))
		return
	}

	if _, err := s.dispatchLocked(state.OnTab{Index: index, Action: record}); err != nil {
		// The request went out; failing to record it should not hide the response.
		logging.Warn("failed to record last request", zap.Int("template", index), zap.Error(err))
	}
}

// indexOfTemplate returns the index of the template sharing a segment id
// with t, preferring hint, or -1 if none does
func indexOfTemplate(templates []models.Template, t models.Template, hint int) int {
	ids := make(map[string]bool, len(t.Segments))
	for _, seg := range t.Segments {
		ids[seg.ID] = true
	}
	shares := func(candidate models.Template) bool {
		for _, seg := range candidate.Segments {
			if ids[seg.ID] {
				return true
			}
		}
		return false
	}

	if hint >= 0 && hint < len(templates) && shares(templates[hint]) {
		return hint
	}
	for i, candidate := range templates {
		if shares(candidate) {
			return i
		}
	}
	return -1
}

func missingSubmitConfig(t models.Template) []string {
	var missing []string
	if len(t.JSONData) == 0 || string(t.JSONData) == "null" {
		missing = append(missing, "jsonData")
	}
	if t.JSONPath == "" {
		missing = append(missing, "jsonPath")
	}
	if t.APIURL == "" {
		missing = append(missing, "apiUrl")
	}
	return missing
}

func fieldNames(fields []models.FieldDefinition) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
