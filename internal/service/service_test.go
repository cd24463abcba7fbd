package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/state"
	"github.com/dpshade/pocket-forms/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, backend string) (*Service, *storage.TemplateStore) {
	t.Helper()
	kv, err := storage.Open(storage.Options{Dir: t.TempDir(), Backend: backend})
	require.NoError(t, err)

	store := storage.NewTemplateStore(kv)
	tmpl := models.NewTemplate("Greeting", "s1")
	tmpl.Segments[0].Text = "Hello [Name: Ann, Bob], [Tone: warm, dry]"
	require.NoError(t, store.Save([]models.Template{tmpl}))

	svc, err := NewService(store, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, store
}

func strPtr(s string) *string { return &s }

func TestGenerate_DefaultsAndOverrides(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	text, values, err := svc.Generate(0, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann, warm", text)
	assert.Equal(t, map[string]string{"name": "Ann", "tone": "warm"}, values)

	text, _, err = svc.Generate(0, map[string]string{"tone": "dry"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann, dry", text)
}

func TestGenerate_UnknownField(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	_, _, err := svc.Generate(0, map[string]string{"mood": "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation), "got %v", err)
}

func TestGenerate_UnknownTemplate(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	_, _, err := svc.Generate(3, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound), "got %v", err)
}

func TestEditsArePersisted(t *testing.T) {
	for _, backend := range []string{storage.BackendFile, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			svc, store := newTestService(t, backend)

			idx, err := svc.AddTemplate()
			require.NoError(t, err)
			assert.Equal(t, 1, idx)

			tmpl, err := svc.GetTemplate(idx)
			require.NoError(t, err)
			require.NoError(t, svc.UpdateSegment(idx, tmpl.Segments[0].ID, "Pick [Color: #ff0000, #00ff00]"))
			require.NoError(t, svc.RenameTemplate(idx, "Colors"))

			stored, err := store.Load()
			require.NoError(t, err)
			require.Len(t, stored, 2)
			assert.Equal(t, "Colors", stored[1].Name)
			assert.Equal(t, "Pick [Color: #ff0000, #00ff00]", stored[1].Segments[0].Text)
			require.Len(t, stored[1].Segments[0].Fields, 1)
			assert.Equal(t, []string{"#ff0000", "#00ff00"}, stored[1].Segments[0].Fields[0].Options)
		})
	}
}

func TestRemoveLastSegmentLeavesEmptyOne(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	require.NoError(t, svc.RemoveSegment(0, "s1"))

	tmpl, err := svc.GetTemplate(0)
	require.NoError(t, err)
	require.Len(t, tmpl.Segments, 1)
	assert.NotEqual(t, "s1", tmpl.Segments[0].ID)
	assert.Empty(t, tmpl.Segments[0].Text)
}

func TestFindTemplate(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)
	idx, err := svc.AddTemplate()
	require.NoError(t, err)
	require.NoError(t, svc.RenameTemplate(idx, "Release Notes"))

	cases := map[string]int{
		"0":             0,
		"1":             1,
		"greeting":      0,
		"Release Notes": 1,
		"RelNot":        1,
	}
	for ref, want := range cases {
		got, err := svc.FindTemplate(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, got, ref)
	}

	_, err = svc.FindTemplate("zzzz")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	_, err = svc.FindTemplate("7")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestConfigure_InvalidURLLeavesTemplate(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	require.NoError(t, svc.Configure(0, ConfigUpdate{APIURL: strPtr("localhost:9000/run")}))
	tmpl, _ := svc.GetTemplate(0)
	assert.Equal(t, "http://localhost:9000/run", tmpl.APIURL)

	err := svc.Configure(0, ConfigUpdate{APIURL: strPtr("ftp://example.com")})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidURL), "got %v", err)

	tmpl, _ = svc.GetTemplate(0)
	assert.Equal(t, "http://localhost:9000/run", tmpl.APIURL)
}

func TestConfigure_InvalidValueSavesNothing(t *testing.T) {
	svc, store := newTestService(t, storage.BackendFile)

	err := svc.Configure(0, ConfigUpdate{
		JSONData: strPtr(`{"a":""}`),
		JSONPath: strPtr("a"),
		APIURL:   strPtr("http://"),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidURL), "got %v", err)

	tmpl, err := svc.GetTemplate(0)
	require.NoError(t, err)
	assert.Empty(t, tmpl.JSONData)
	assert.Empty(t, tmpl.JSONPath)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored[0].JSONData)
	assert.Empty(t, stored[0].JSONPath)
}

func TestSubmit_Success(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	svc, store := newTestService(t, storage.BackendFile)
	require.NoError(t, svc.Configure(0, ConfigUpdate{
		JSONData: strPtr(`{"input":{"text":""},"model":"m"}`),
		JSONPath: strPtr("input.text"),
		APIURL:   strPtr(server.URL),
	}))

	result, err := svc.Submit(context.Background(), 0, map[string]string{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "Hello Bob, warm", result.Prompt)
	assert.Equal(t, map[string]interface{}{"text": "Hello Bob, warm"}, received["input"])

	stored, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored[0].LastSuccessfulRequest)
	assert.Equal(t, "Hello Bob, warm", stored[0].LastSuccessfulRequest.Prompt)
	assert.JSONEq(t, `{"ok":true}`, string(stored[0].LastSuccessfulRequest.Response))
}

func TestSubmit_PathNotFoundSendsNothing(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	svc, _ := newTestService(t, storage.BackendFile)
	require.NoError(t, svc.Configure(0, ConfigUpdate{
		JSONData: strPtr(`{"input":{}}`),
		JSONPath: strPtr("input.text"),
		APIURL:   strPtr(server.URL),
	}))

	_, err := svc.Submit(context.Background(), 0, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodePathNotFound), "got %v", err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	tmpl, _ := svc.GetTemplate(0)
	assert.Nil(t, tmpl.LastSuccessfulRequest)
}

func TestSubmit_RecordsOnSubmittedTemplateAfterRemoval(t *testing.T) {
	var svc *Service
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the tab before the submitted one goes away mid-request
		_ = svc.RemoveTemplate(0)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	svc, store := newTestService(t, storage.BackendFile)
	idx, err := svc.AddTemplate()
	require.NoError(t, err)
	require.NoError(t, svc.RenameTemplate(idx, "Submitted"))
	require.NoError(t, svc.Configure(idx, ConfigUpdate{
		JSONData: strPtr(`{"text":""}`),
		JSONPath: strPtr("text"),
		APIURL:   strPtr(server.URL),
	}))

	_, err = svc.Submit(context.Background(), idx, nil)
	require.NoError(t, err)

	templates := svc.ListTemplates()
	require.Len(t, templates, 1)
	assert.Equal(t, "Submitted", templates[0].Name)
	require.NotNil(t, templates[0].LastSuccessfulRequest)
	assert.JSONEq(t, `{"ok":true}`, string(templates[0].LastSuccessfulRequest.Response))

	stored, err := store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].LastSuccessfulRequest)
}

func TestSubmit_TemplateRemovedDuringRequest(t *testing.T) {
	var svc *Service
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = svc.RemoveTemplate(1)
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	svc, _ = newTestService(t, storage.BackendFile)
	idx, err := svc.AddTemplate()
	require.NoError(t, err)
	require.NoError(t, svc.Configure(idx, ConfigUpdate{
		JSONData: strPtr(`{"text":""}`),
		JSONPath: strPtr("text"),
		APIURL:   strPtr(server.URL),
	}))

	result, err := svc.Submit(context.Background(), idx, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	templates := svc.ListTemplates()
	require.Len(t, templates, 1)
	assert.Equal(t, "Greeting", templates[0].Name)
	assert.Nil(t, templates[0].LastSuccessfulRequest)
}

func TestSubmit_MissingConfig(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	_, err := svc.Submit(context.Background(), 0, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "jsonData")
}

func TestExportImport(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)
	require.NoError(t, svc.Configure(0, ConfigUpdate{
		JSONData:  strPtr(`{"prompt":""}`),
		JSONPath:  strPtr("prompt"),
		APIURL:    strPtr("example.com/api"),
		APIMethod: strPtr("get"),
	}))

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf))
	assert.Contains(t, buf.String(), "name: Greeting")
	assert.Contains(t, buf.String(), "api_method: GET")

	other, _ := newTestService(t, storage.BackendSQLite)
	n, err := other.Import(strings.NewReader(buf.String()), false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	templates := other.ListTemplates()
	require.Len(t, templates, 2)
	imported := templates[1]
	assert.Equal(t, "Greeting", imported.Name)
	assert.Equal(t, "http://example.com/api", imported.APIURL)
	assert.Equal(t, models.MethodGET, imported.APIMethod)
	assert.JSONEq(t, `{"prompt":""}`, string(imported.JSONData))
	require.Len(t, imported.Segments[0].Fields, 2)
	assert.NotEqual(t, "s1", imported.Segments[0].ID)

	n, err = other.Import(strings.NewReader(buf.String()), true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, other.ListTemplates(), 1)
}

func TestImport_Invalid(t *testing.T) {
	svc, _ := newTestService(t, storage.BackendFile)

	_, err := svc.Import(strings.NewReader(""), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	_, err = svc.Import(strings.NewReader("version: 1\ntemplates: []\n"), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))

	_, err = svc.Import(strings.NewReader("templates:\n  - name: x\n    json_data: '{bad'\n"), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJSONParse))
}

func TestReload(t *testing.T) {
	svc, store := newTestService(t, storage.BackendFile)

	changed, err := svc.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	notified := false
	svc.OnReload(func() { notified = true })

	external := models.NewTemplate("From elsewhere", "x1")
	external.Segments[0].Text = "[Mood: calm]"
	require.NoError(t, store.Save([]models.Template{external}))

	changed, err = svc.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, notified)

	st := svc.State()
	require.Len(t, st.Templates, 1)
	assert.Equal(t, "From elsewhere", st.Templates[0].Name)
	assert.Equal(t, map[string]string{"mood": "calm"}, st.Values)
}

func TestReload_OwnWriteKeepsEditorState(t *testing.T) {
	for _, backend := range []string{storage.BackendFile, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			svc, _ := newTestService(t, backend)
			require.NoError(t, svc.Configure(0, ConfigUpdate{JSONData: strPtr(`{"a":""}`)}))
			_, err := svc.Dispatch(state.StartRenameTab{Index: 0})
			require.NoError(t, err)

			changed, err := svc.Reload()
			require.NoError(t, err)
			assert.False(t, changed)
			assert.NotNil(t, svc.State().EditingTab)
		})
	}
}

func TestNewService_RebuildsStaleFieldCache(t *testing.T) {
	kv, err := storage.Open(storage.Options{Dir: t.TempDir(), Backend: storage.BackendFile})
	require.NoError(t, err)
	store := storage.NewTemplateStore(kv)

	tmpl := models.NewTemplate("Stale", "s1")
	tmpl.Segments[0].Text = "Hi [Name: Ann, Bob]"
	tmpl.Segments[0].Fields = parser.Parse("[Old: x, y]")
	require.NoError(t, store.Save([]models.Template{tmpl}))

	svc, err := NewService(store, Options{})
	require.NoError(t, err)
	defer svc.Close()

	fields, err := svc.Fields(0)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Name)

	active := state.ActiveFields(svc.State())
	require.Len(t, active, 1)
	assert.Equal(t, "name", active[0].Name)

	assert.Equal(t, "Hi Ann", svc.GenerateActive())
	text, _, err := svc.Generate(0, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", text)
}
