// Package validation/middleware turns HTTP requests into parameter maps for
// the command executor.
//
// EXTRACTION PATTERNS:
// - Query parameters: single values become strings, repeated ones string slices
// - Path parameters: {template} and {id} wildcards registered on the ServeMux
// - JSON body: decoded and merged over query and path values
// - Form data: URL-encoded form data parsed and merged the same way
package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dpshade/pocket-forms/internal/errors"
)

// maxBodyBytes bounds request bodies; JSON documents can be large but not unbounded
const maxBodyBytes = 8 << 20

// pathParams are the wildcard names used by the API routes
var pathParams = []string{"template", "id"}

// RequestValidator provides middleware for HTTP request validation
type RequestValidator struct {
	validator *Validator
}

// NewRequestValidator creates a new request validator middleware
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validator: NewValidator(),
	}
}

// ValidateRequest middleware rejects requests whose parameters fail schemaName
func (rv *RequestValidator) ValidateRequest(schemaName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			data, err := ExtractRequestData(r)
			if err != nil {
				rv.writeValidationError(w, errors.GetAppError(err))
				return
			}

			result := rv.validator.Validate(schemaName, data)
			if !result.Valid {
				rv.writeValidationError(w, result.ToAppError())
				return
			}

			next(w, r)
		}
	}
}

// ExtractRequestData collects query, path and body parameters. The body is
// restored afterwards so handlers can read it again.
func ExtractRequestData(r *http.Request) (map[string]interface{}, error) {
	data := make(map[string]interface{})

	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			data[key] = values[0]
		} else if len(values) > 1 {
			data[key] = values
		}
	}

	for _, name := range pathParams {
		if value := r.PathValue(name); value != "" {
			data[name] = value
		}
	}

	if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
		contentType := r.Header.Get("Content-Type")

		var body map[string]interface{}
		var err error
		switch {
		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			body, err = extractFormBody(r)
		default:
			body, err = extractJSONBody(r)
		}
		if err != nil {
			return nil, err
		}
		for key, value := range body {
			// Path parameters identify the resource and cannot be overridden by the body.
			if _, fromPath := data[key]; fromPath && isPathParam(key) {
				continue
			}
			data[key] = value
		}
	}

	return data, nil
}

func isPathParam(key string) bool {
	for _, name := range pathParams {
		if name == key {
			return true
		}
	}
	return false
}

// extractJSONBody extracts data from JSON request body
func extractJSONBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return map[string]interface{}{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.ValidationError("Failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return nil, errors.ValidationError("Request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]interface{}{}, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errors.ValidationError("Invalid JSON in request body").WithDetails(err.Error())
	}

	return data, nil
}

// extractFormBody extracts data from form-encoded request body
func extractFormBody(r *http.Request) (map[string]interface{}, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.ValidationError("Failed to parse form data")
	}

	data := make(map[string]interface{})
	for key, values := range r.PostForm {
		if len(values) == 1 {
			data[key] = values[0]
		} else if len(values) > 1 {
			data[key] = values
		}
	}

	return data, nil
}

// writeValidationError writes a validation error response
func (rv *RequestValidator) writeValidationError(w http.ResponseWriter, err *errors.AppError) {
	errorHandler := errors.NewHTTPErrorHandler(true)
	errorHandler.WriteHTTPError(w, err)
}

// SanitizeString removes control characters other than newlines and tabs
func SanitizeString(input string) string {
	cleaned := strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range cleaned {
		if r == '\n' || r == '\t' || r == '\r' || r >= 32 {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
