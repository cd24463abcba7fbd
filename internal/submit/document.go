package submit

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
)

// Document is a decoded JSON value: map[string]interface{}, []interface{},
// string, json.Number, bool or nil.
type Document = interface{}

// ParseDocument decodes raw JSON. With repair set, malformed input (trailing
// commas, single quotes, unquoted keys) is first passed through jsonrepair.
// The returned bytes are the canonical form that was decoded.
func ParseDocument(raw []byte, repair bool) (Document, json.RawMessage, error) {
	input := bytes.TrimSpace(raw)
	if len(input) == 0 {
		return nil, nil, apperrors.JSONParseError(nil).WithDetails("document is empty")
	}

	doc, err := decode(input)
	if err != nil && repair {
		repaired, repairErr := jsonrepair.JSONRepair(string(input))
		if repairErr != nil {
			return nil, nil, apperrors.JSONParseError(err)
		}
		input = []byte(repaired)
		doc, err = decode(input)
	}
	if err != nil {
		return nil, nil, apperrors.JSONParseError(err)
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, apperrors.JSONParseError(err)
	}
	return doc, canonical, nil
}

func decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	// Reject trailing content such as `{} {}`.
	if dec.More() {
		return nil, &json.SyntaxError{Offset: dec.InputOffset()}
	}
	return doc, nil
}

// SetAtPath returns a deep copy of doc with the value at the dot-separated
// path replaced. Every intermediate key must exist and hold a truthy value,
// and the final key must already exist (a null value counts as existing).
// Numeric segments index into arrays. doc itself is never modified.
func SetAtPath(doc Document, path string, value interface{}) (Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.PathNotFoundError(path, path)
	}

	clone := deepCopy(doc)
	parts := strings.Split(path, ".")

	current := clone
	for _, part := range parts[:len(parts)-1] {
		next, ok := child(current, part)
		if !ok || !truthy(next) {
			return nil, apperrors.PathNotFoundError(path, part)
		}
		current = next
	}

	last := parts[len(parts)-1]
	switch node := current.(type) {
	case map[string]interface{}:
		if _, ok := node[last]; !ok {
			return nil, apperrors.PathNotFoundError(path, last)
		}
		node[last] = value
	case []interface{}:
		i, ok := arrayIndex(node, last)
		if !ok {
			return nil, apperrors.PathNotFoundError(path, last)
		}
		node[i] = value
	default:
		return nil, apperrors.PathNotFoundError(path, last)
	}

	return clone, nil
}

func child(node Document, key string) (Document, bool) {
	switch n := node.(type) {
	case map[string]interface{}:
		v, ok := n[key]
		return v, ok
	case []interface{}:
		i, ok := arrayIndex(n, key)
		if !ok {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

func arrayIndex(arr []interface{}, key string) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(arr) {
		return 0, false
	}
	return i, true
}

// truthy follows JavaScript semantics: false, 0, "" and null are falsy.
// Empty objects and arrays are truthy.
func truthy(v Document) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func deepCopy(v Document) Document {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return t
	}
}
