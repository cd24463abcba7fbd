package submit

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
)

func mustParse(t *testing.T, raw string) Document {
	t.Helper()
	doc, _, err := ParseDocument([]byte(raw), false)
	require.NoError(t, err)
	return doc
}

func TestParseDocument_Strict(t *testing.T) {
	doc, canonical, err := ParseDocument([]byte(` {"a": {"b": 1}} `), false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":1}}`, string(canonical))
	assert.NotNil(t, doc)

	_, _, err = ParseDocument([]byte(`{"a": 1,}`), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJSONParse), "got %v", err)

	_, _, err = ParseDocument([]byte(`{} {}`), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJSONParse), "got %v", err)

	_, _, err = ParseDocument([]byte("   "), false)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeJSONParse), "got %v", err)
}

func TestParseDocument_Repair(t *testing.T) {
	_, canonical, err := ParseDocument([]byte(`{"model": "x", "messages": [1, 2,],}`), true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"x","messages":[1,2]}`, string(canonical))
}

func TestParseDocument_PreservesLargeNumbers(t *testing.T) {
	_, canonical, err := ParseDocument([]byte(`{"id": 12345678901234567890}`), false)
	require.NoError(t, err)
	assert.Equal(t, `{"id":12345678901234567890}`, string(canonical))
}

func TestSetAtPath(t *testing.T) {
	doc := mustParse(t, `{"data": {"prompt": "", "n": 1}, "top": null}`)

	out, err := SetAtPath(doc, "data.prompt", "hello")
	require.NoError(t, err)

	got, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": {"prompt": "hello", "n": 1}, "top": null}`, string(got))

	// The input document is untouched.
	orig, _ := json.Marshal(doc)
	assert.JSONEq(t, `{"data": {"prompt": "", "n": 1}, "top": null}`, string(orig))
}

func TestSetAtPath_NullFinalKeyExists(t *testing.T) {
	doc := mustParse(t, `{"top": null}`)
	out, err := SetAtPath(doc, "top", "x")
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]interface{}{"top": "x"}, out); diff != "" {
		t.Errorf("SetAtPath mismatch (-want +got):\n%s", diff)
	}
}

func TestSetAtPath_ArrayIndex(t *testing.T) {
	doc := mustParse(t, `{"messages": [{"role": "user", "content": ""}]}`)
	out, err := SetAtPath(doc, "messages.0.content", "hi")
	require.NoError(t, err)

	got, _ := json.Marshal(out)
	assert.JSONEq(t, `{"messages": [{"role": "user", "content": "hi"}]}`, string(got))
}

func TestSetAtPath_Failures(t *testing.T) {
	doc := mustParse(t, `{"a": {"b": ""}, "zero": 0, "empty": "", "list": [1], "obj": {}}`)

	paths := []string{
		"",          // empty path
		"missing",   // final key absent
		"a.c",       // final key absent in nested object
		"x.b",       // intermediate missing
		"zero.b",    // falsy intermediate
		"empty.b",   // falsy intermediate
		"list.5",    // index out of range
		"list.x",    // non-numeric index
		"a.b.c",     // intermediate is a falsy string
		"obj.inner", // final key absent on empty object
	}
	for _, p := range paths {
		_, err := SetAtPath(doc, p, "v")
		if !apperrors.Is(err, apperrors.ErrCodePathNotFound) {
			t.Errorf("SetAtPath(%q) error = %v, want PATH_NOT_FOUND", p, err)
		}
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Document
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{json.Number("0"), false},
		{json.Number("0.5"), true},
		{map[string]interface{}{}, true},
		{[]interface{}{}, true},
	}
	for _, tc := range cases {
		if got := truthy(tc.v); got != tc.want {
			t.Errorf("truthy(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"example.com/api":           "http://example.com/api",
		"localhost:8080/v1":         "http://localhost:8080/v1",
		"https://api.example.com/x": "https://api.example.com/x",
		"  http://a.test  ":         "http://a.test",
	}
	for in, want := range cases {
		got, err := NormalizeURL(in)
		if err != nil {
			t.Errorf("NormalizeURL(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "ftp://files.test", "http://", "http://[::1"} {
		if _, err := NormalizeURL(bad); !apperrors.Is(err, apperrors.ErrCodeInvalidURL) {
			t.Errorf("NormalizeURL(%q) error = %v, want INVALID_URL", bad, err)
		}
	}
}
