// Package validation provides centralized input validation for command parameters.
//
// SYSTEM ARCHITECTURE ROLE:
// Every interface (CLI, HTTP API, MCP tools) turns user input into a parameter
// map and hands it to the command executor. The executor validates that map
// against a named schema here before any command touches the service layer.
//
// KEY RESPONSIBILITIES:
// - Define one schema per command (template reference, segment ids, config fields)
// - Convert loosely typed input (query strings, JSON numbers, CLI flags) to the expected types
// - Report every failing field, not just the first
//
// INTEGRATION POINTS:
// - internal/commands/types.go: CommandExecutor.validator validates parameters using schemaFor()
// - internal/validation/middleware.go: ExtractRequestData builds parameter maps from HTTP requests
// - internal/errors/errors.go: ValidationResult.ToAppError() converts failures to AppError format
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/models"
)

// FieldValidator provides validation rules for individual fields
type FieldValidator struct {
	Name      string
	Required  bool
	Type      string
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Options   []string
	Custom    func(interface{}) error
	// Sanitize strips control characters before the other checks
	Sanitize bool
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid    bool                   `json:"valid"`
	Errors   []ValidationError      `json:"errors,omitempty"`
	Warnings []ValidationWarning    `json:"warnings,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationWarning represents a field validation warning
type ValidationWarning struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Schema represents a validation schema
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
	Rules  []func(map[string]interface{}) error
}

// Validator provides centralized validation functionality
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := &Validator{
		schemas: make(map[string]*Schema),
	}

	v.registerBuiltinSchemas()

	return v
}

// RegisterSchema registers a validation schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// HasSchema reports whether a schema is registered under name
func (v *Validator) HasSchema(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate validates data against a schema. Keys that the schema does not
// declare are dropped from the validated data and reported as warnings.
func (v *Validator) Validate(schemaName string, data map[string]interface{}) *ValidationResult {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Code:    "SCHEMA_NOT_FOUND",
				Message: fmt.Sprintf("Validation schema '%s' not found", schemaName),
			}},
		}
	}

	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
		Data:     make(map[string]interface{}),
	}

	for fieldName, validator := range schema.Fields {
		v.validateField(fieldName, validator, data, result)
	}

	for key, value := range data {
		if _, known := schema.Fields[key]; !known {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   key,
				Message: fmt.Sprintf("Unknown parameter '%s' ignored", key),
				Value:   value,
			})
		}
	}

	for _, rule := range schema.Rules {
		if err := rule(result.Data); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   "schema",
				Code:    "SCHEMA_RULE_VIOLATION",
				Message: err.Error(),
			})
		}
	}

	return result
}

// validateField validates a single field
func (v *Validator) validateField(fieldName string, validator FieldValidator, data map[string]interface{}, result *ValidationResult) {
	value, exists := data[fieldName]

	if validator.Required && (!exists || value == nil || value == "") {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldName,
			Code:    "REQUIRED_FIELD_MISSING",
			Message: fmt.Sprintf("Field '%s' is required", fieldName),
		})
		return
	}

	if !exists || value == nil {
		return
	}

	convertedValue, err := v.validateAndConvertType(fieldName, validator.Type, value)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldName,
			Code:    "INVALID_TYPE",
			Message: err.Error(),
			Value:   value,
		})
		return
	}

	if str, ok := convertedValue.(string); ok && validator.Sanitize {
		convertedValue = SanitizeString(str)
	}
	result.Data[fieldName] = convertedValue

	if strValue, ok := convertedValue.(string); ok && validator.Type == "string" {
		if validator.MinLength > 0 && len(strValue) < validator.MinLength {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "MIN_LENGTH_VIOLATION",
				Message: fmt.Sprintf("Field '%s' must be at least %d characters long", fieldName, validator.MinLength),
				Value:   strValue,
			})
		}

		if validator.MaxLength > 0 && len(strValue) > validator.MaxLength {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "MAX_LENGTH_VIOLATION",
				Message: fmt.Sprintf("Field '%s' must be at most %d characters long", fieldName, validator.MaxLength),
			})
		}

		if validator.Pattern != nil && !validator.Pattern.MatchString(strValue) {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "PATTERN_MISMATCH",
				Message: fmt.Sprintf("Field '%s' does not match required pattern", fieldName),
				Value:   strValue,
			})
		}

		if len(validator.Options) > 0 && !contains(validator.Options, strValue) {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "INVALID_OPTION",
				Message: fmt.Sprintf("Field '%s' must be one of: %s", fieldName, strings.Join(validator.Options, ", ")),
				Value:   strValue,
			})
		}
	}

	if validator.Custom != nil {
		if err := validator.Custom(convertedValue); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "CUSTOM_VALIDATION_FAILED",
				Message: fmt.Sprintf("Field '%s': %s", fieldName, err.Error()),
				Value:   convertedValue,
			})
		}
	}
}

// validateAndConvertType validates and converts value to the specified type
func (v *Validator) validateAndConvertType(fieldName, expectedType string, value interface{}) (interface{}, error) {
	switch expectedType {
	case "string":
		if str, ok := value.(string); ok {
			return str, nil
		}
		return fmt.Sprintf("%v", value), nil

	case "int":
		switch val := value.(type) {
		case int:
			return val, nil
		case float64:
			if val == float64(int(val)) {
				return int(val), nil
			}
		case string:
			if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return intVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be an integer", fieldName)

	case "bool":
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if boolVal, err := strconv.ParseBool(val); err == nil {
				return boolVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a boolean", fieldName)

	case "values":
		// Form selections: field name to chosen option
		switch val := value.(type) {
		case map[string]string:
			return val, nil
		case map[string]interface{}:
			out := make(map[string]string, len(val))
			for k, item := range val {
				switch item := item.(type) {
				case string:
					out[k] = item
				case nil:
					return nil, fmt.Errorf("field '%s' has no value for '%s'", fieldName, k)
				default:
					out[k] = fmt.Sprintf("%v", item)
				}
			}
			return out, nil
		case []string:
			return ParseAssignments(val)
		case string:
			if strings.TrimSpace(val) == "" {
				return map[string]string{}, nil
			}
			return ParseAssignments(strings.Split(val, ","))
		}
		return nil, fmt.Errorf("field '%s' must be an object of field names to values", fieldName)

	case "object":
		if obj, ok := value.(map[string]interface{}); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("field '%s' must be an object", fieldName)

	default:
		return value, nil
	}
}

// ParseAssignments parses name=value pairs as given to --set
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func templateRef() FieldValidator {
	return FieldValidator{
		Name:      "template",
		Type:      "string",
		Required:  true,
		MinLength: 1,
		MaxLength: 200,
	}
}

func segmentID(name string) FieldValidator {
	return FieldValidator{
		Name:      name,
		Type:      "string",
		Required:  true,
		MinLength: 1,
		MaxLength: 100,
		Pattern:   regexp.MustCompile(`^[a-zA-Z0-9_-]+$`),
	}
}

// registerBuiltinSchemas registers one schema per command
func (v *Validator) registerBuiltinSchemas() {
	templateOnly := func(name string) *Schema {
		return &Schema{
			Name:   name,
			Fields: map[string]FieldValidator{"template": templateRef()},
		}
	}

	v.RegisterSchema(&Schema{Name: "list_templates", Fields: map[string]FieldValidator{}})
	v.RegisterSchema(templateOnly("get_template"))
	v.RegisterSchema(templateOnly("delete_template"))
	v.RegisterSchema(templateOnly("fields"))
	v.RegisterSchema(templateOnly("add_segment"))
	v.RegisterSchema(templateOnly("copy_config"))

	v.RegisterSchema(&Schema{
		Name: "create_template",
		Fields: map[string]FieldValidator{
			"name": {Name: "name", Type: "string", MaxLength: 200, Sanitize: true},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "rename_template",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"name":     {Name: "name", Type: "string", Required: true, MaxLength: 200, Sanitize: true},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "update_segment",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"id":       segmentID("id"),
			"text":     {Name: "text", Type: "string", MaxLength: 200000},
		},
		Rules: []func(map[string]interface{}) error{
			func(data map[string]interface{}) error {
				if _, ok := data["text"]; !ok {
					return fmt.Errorf("text is required (use an empty string to clear the segment)")
				}
				return nil
			},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "rename_segment",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"id":       segmentID("id"),
			"name":     {Name: "name", Type: "string", Required: true, MaxLength: 200, Sanitize: true},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "edit_segment",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"id":       segmentID("id"),
			"name":     {Name: "name", Type: "string", MaxLength: 200},
			"text":     {Name: "text", Type: "string", MaxLength: 200000},
		},
		Rules: []func(map[string]interface{}) error{
			func(data map[string]interface{}) error {
				_, hasText := data["text"]
				_, hasName := data["name"]
				if !hasText && !hasName {
					return fmt.Errorf("text or name is required")
				}
				return nil
			},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "remove_segment",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"id":       segmentID("id"),
		},
	})

	v.RegisterSchema(&Schema{
		Name: "move_segment",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"from":     segmentID("from"),
			"to":       segmentID("to"),
		},
	})

	v.RegisterSchema(&Schema{
		Name: "generate",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"values":   {Name: "values", Type: "values"},
			"format": {
				Name:    "format",
				Type:    "string",
				Options: []string{"text", "json", "messages"},
			},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "submit",
		Fields: map[string]FieldValidator{
			"template": templateRef(),
			"values":   {Name: "values", Type: "values"},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "set_config",
		Fields: map[string]FieldValidator{
			"template":       templateRef(),
			"json_data":      {Name: "json_data", Type: "string", MaxLength: 5 << 20},
			"json_file_name": {Name: "json_file_name", Type: "string", MaxLength: 500},
			"json_path":      {Name: "json_path", Type: "string", MaxLength: 1000},
			"api_url":        {Name: "api_url", Type: "string", MaxLength: 2000},
			"repair":         {Name: "repair", Type: "bool"},
			"api_method": {
				Name: "api_method",
				Type: "string",
				Custom: func(value interface{}) error {
					_, err := models.ParseMethod(fmt.Sprintf("%v", value))
					return err
				},
			},
		},
		Rules: []func(map[string]interface{}) error{
			func(data map[string]interface{}) error {
				for _, key := range []string{"json_data", "json_file_name", "json_path", "api_url", "api_method"} {
					if _, ok := data[key]; ok {
						return nil
					}
				}
				return fmt.Errorf("at least one of json_data, json_file_name, json_path, api_url or api_method is required")
			},
		},
	})
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}

	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	firstError := result.Errors[0]
	appErr := errors.ValidationError(firstError.Message)

	var details []string
	for _, validationErr := range result.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}

	appErr.WithDetails(strings.Join(details, "; "))

	appErr.WithContext("validation_errors", result.Errors)
	if len(result.Warnings) > 0 {
		appErr.WithContext("validation_warnings", result.Warnings)
	}

	return appErr
}

// GetValidatedData returns the validated and converted data
func (result *ValidationResult) GetValidatedData() map[string]interface{} {
	if !result.Valid {
		return nil
	}
	return result.Data
}
