package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/storage"
)

func newExecutor(t *testing.T) *CommandExecutor {
	t.Helper()
	kv, err := storage.Open(storage.Options{Dir: t.TempDir(), Backend: storage.BackendFile})
	require.NoError(t, err)
	store := storage.NewTemplateStore(kv)

	tmpl := models.NewTemplate("Review", "seg-1")
	tmpl.Segments[0].Text = "Review this [Language: Go, Rust] code [Depth: quick, thorough]"
	require.NoError(t, store.Save([]models.Template{tmpl}))

	svc, err := service.NewService(store, service.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return NewCommandExecutor(svc)
}

func run(t *testing.T, e *CommandExecutor, name string, params map[string]interface{}) *CommandResult {
	t.Helper()
	result, err := e.Execute(context.Background(), name, params)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestExecute_UnknownCommand(t *testing.T) {
	result := run(t, newExecutor(t), "explode", nil)
	assert.False(t, result.Success)
	assert.Equal(t, string(errors.ErrCodeCommandNotFound), result.Error.Code)
}

func TestExecute_ValidationFailure(t *testing.T) {
	result := run(t, newExecutor(t), "fields", map[string]interface{}{})
	assert.False(t, result.Success)
	assert.Equal(t, string(errors.ErrCodeValidation), result.Error.Code)
}

func TestExecute_TemplateNotFound(t *testing.T) {
	result := run(t, newExecutor(t), "fields", map[string]interface{}{"template": "42"})
	assert.False(t, result.Success)
	assert.Equal(t, string(errors.ErrCodeNotFound), result.Error.Code)
	assert.Equal(t, http.StatusNotFound, errors.StatusCode(result.Error.AppError()))
}

func TestListTemplates(t *testing.T) {
	result := run(t, newExecutor(t), "list-templates", nil)
	require.True(t, result.Success)

	summaries := result.Data.([]TemplateSummary)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Review", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].Fields)
	assert.True(t, summaries[0].Active)
	assert.False(t, summaries[0].HasSubmitConfig)
}

func TestFieldsByName(t *testing.T) {
	result := run(t, newExecutor(t), "fields", map[string]interface{}{"template": "review"})
	require.True(t, result.Success, "%+v", result.Error)

	fields := result.Data.([]models.FieldDefinition)
	require.Len(t, fields, 2)
	assert.Equal(t, "language", fields[0].Name)
	assert.Equal(t, []string{"quick", "thorough"}, fields[1].Options)
}

func TestGenerate(t *testing.T) {
	e := newExecutor(t)

	result := run(t, e, "generate", map[string]interface{}{
		"template": "0",
		"values":   map[string]interface{}{"depth": "thorough"},
	})
	require.True(t, result.Success, "%+v", result.Error)
	out := result.Data.(GenerateResult)
	assert.Equal(t, "Review this Go code thorough", out.Prompt)
	assert.Nil(t, out.Messages)

	result = run(t, e, "generate", map[string]interface{}{
		"template": "0",
		"values":   []string{"language=Rust"},
		"format":   "messages",
	})
	require.True(t, result.Success, "%+v", result.Error)
	out = result.Data.(GenerateResult)
	assert.JSONEq(t, `[{"role":"user","content":"Review this Rust code quick"}]`, string(out.Messages))
}

func TestTemplateLifecycle(t *testing.T) {
	e := newExecutor(t)

	result := run(t, e, "create-template", map[string]interface{}{"name": "Summaries"})
	require.True(t, result.Success, "%+v", result.Error)
	created := result.Data.(*TemplateDetail)
	assert.Equal(t, 1, created.Index)
	segID := created.Template.Segments[0].ID

	result = run(t, e, "update-segment", map[string]interface{}{
		"template": "Summaries",
		"id":       segID,
		"text":     "Summarize in [Length: 1, 3, 5] sentences",
	})
	require.True(t, result.Success, "%+v", result.Error)
	assert.Len(t, result.Data.(*TemplateDetail).Fields, 1)

	result = run(t, e, "add-segment", map[string]interface{}{"template": "1"})
	require.True(t, result.Success, "%+v", result.Error)
	newID := result.Data.(map[string]interface{})["segmentId"].(string)

	result = run(t, e, "move-segment", map[string]interface{}{"template": "1", "from": newID, "to": segID})
	require.True(t, result.Success, "%+v", result.Error)
	segments := result.Data.(*TemplateDetail).Template.Segments
	assert.Equal(t, newID, segments[0].ID)

	result = run(t, e, "rename-segment", map[string]interface{}{"template": "1", "id": newID, "name": "Intro"})
	require.True(t, result.Success, "%+v", result.Error)

	result = run(t, e, "remove-segment", map[string]interface{}{"template": "1", "id": newID})
	require.True(t, result.Success, "%+v", result.Error)
	assert.Len(t, result.Data.(*TemplateDetail).Template.Segments, 1)

	result = run(t, e, "delete-template", map[string]interface{}{"template": "1"})
	require.True(t, result.Success, "%+v", result.Error)

	result = run(t, e, "delete-template", map[string]interface{}{"template": "0"})
	assert.False(t, result.Success)
	assert.Equal(t, string(errors.ErrCodeValidation), result.Error.Code)
}

func TestSetConfigAndSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"queued":true}`))
	}))
	defer server.Close()

	e := newExecutor(t)

	result := run(t, e, "set-config", map[string]interface{}{
		"template":   "0",
		"json_data":  `{"messages":[{"content":""}]}`,
		"json_path":  "messages.0.content",
		"api_url":    server.URL,
		"api_method": "post",
	})
	require.True(t, result.Success, "%+v", result.Error)
	assert.True(t, result.Data.(*TemplateDetail).Template.HasSubmitConfig())

	result = run(t, e, "submit", map[string]interface{}{"template": "0"})
	require.True(t, result.Success, "%+v", result.Error)
	out := result.Data.(*service.SubmitResult)
	assert.Equal(t, http.StatusAccepted, out.StatusCode)
	assert.JSONEq(t, `{"messages":[{"content":"Review this Go code quick"}]}`, string(out.FullJSON))
}

func TestSetConfig_InvalidJSON(t *testing.T) {
	result := run(t, newExecutor(t), "set-config", map[string]interface{}{
		"template":  "0",
		"json_data": "{nope",
	})
	assert.False(t, result.Success)
	assert.Equal(t, string(errors.ErrCodeJSONParse), result.Error.Code)
}

func TestCopyConfig_FirstTemplate(t *testing.T) {
	result := run(t, newExecutor(t), "copy-config", map[string]interface{}{"template": "0"})
	assert.False(t, result.Success)
}

func TestHealth(t *testing.T) {
	result := run(t, newExecutor(t), "health", nil)
	require.True(t, result.Success)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
}

func TestDescribe(t *testing.T) {
	desc := newExecutor(t).Describe()
	for _, name := range []string{
		"list-templates", "get-template", "create-template", "delete-template", "rename-template",
		"add-segment", "update-segment", "rename-segment", "remove-segment", "move-segment",
		"fields", "generate", "submit", "set-config", "copy-config", "health",
	} {
		assert.NotEmpty(t, desc[name], name)
	}
}
