// Package api/openapi provides the OpenAPI 3.0 specification and documentation page.
//
// INTEGRATION POINTS:
// - internal/api/server.go: every route registered in Handler() has a path entry here
// - internal/validation/validator.go: request bodies mirror the command schemas
// - internal/errors/handlers.go: ErrorResponse matches HTTPErrorHandler.FormatError() output
// - Swagger UI CDN: unpkg.com serves the assets for handleOpenAPI()
package api

import (
	"encoding/json"
	"net/http"

	"github.com/dpshade/pocket-forms/internal/version"
)

const docsHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Pocket Forms API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the OpenAPI documentation interface
func (s *APIServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docsHTML))
}

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(getOpenAPISpec())
}

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func pathParam(name, description string) object {
	return object{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      object{"type": "string"},
	}
}

var templateParam = pathParam("template", "Template index (0-based) or name; names match exactly first, then fuzzily")

// operation builds an operation with the standard error responses
func operation(summary string, params []object, body object, status string, data object) object {
	op := object{
		"summary": summary,
		"responses": object{
			status: object{
				"description": summary,
				"content": jsonContent(object{"allOf": []object{
					ref("APIResponse"),
					{"type": "object", "properties": object{"data": data}},
				}}),
			},
			"400": object{"description": "Invalid request", "content": jsonContent(ref("ErrorResponse"))},
			"404": object{"description": "Template or segment not found", "content": jsonContent(ref("ErrorResponse"))},
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if body != nil {
		op["requestBody"] = object{"required": true, "content": jsonContent(body)}
	}
	return op
}

func bodySchema(required []string, props object) object {
	schema := object{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) object {
	return object{"type": "string", "description": description}
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() map[string]interface{} {
	tmpl := []object{templateParam}
	seg := []object{templateParam, pathParam("id", "Segment ID")}
	values := object{
		"type":                 "object",
		"description":          "Field values by lowercased field name; missing fields use their first option",
		"additionalProperties": object{"type": "string"},
	}

	return object{
		"openapi": "3.0.3",
		"info": object{
			"title":       "Pocket Forms API",
			"description": "Edit prompt templates, generate prompts from their form fields and submit them to HTTP endpoints",
			"version":     version.Version,
		},
		"servers": []object{
			{"url": "http://localhost:8080/api/v1", "description": "Local server"},
		},
		"paths": object{
			"/templates": object{
				"get":  operation("List templates", nil, nil, "200", object{"type": "array", "items": ref("TemplateSummary")}),
				"post": operation("Create a template", nil, bodySchema(nil, object{"name": str("Template name")}), "201", ref("TemplateDetail")),
			},
			"/templates/{template}": object{
				"get":    operation("Get a template", tmpl, nil, "200", ref("TemplateDetail")),
				"patch":  operation("Rename a template", tmpl, bodySchema([]string{"name"}, object{"name": str("New name")}), "200", ref("TemplateDetail")),
				"delete": operation("Delete a template", tmpl, nil, "200", object{"type": "object"}),
			},
			"/templates/{template}/fields": object{
				"get": operation("List form fields", tmpl, nil, "200", object{"type": "array", "items": ref("Field")}),
			},
			"/templates/{template}/generate": object{
				"post": operation("Generate a prompt", tmpl, bodySchema(nil, object{
					"values": values,
					"format": object{"type": "string", "enum": []string{"text", "json", "messages"}},
				}), "200", ref("GenerateResult")),
			},
			"/templates/{template}/submit": object{
				"post": operation("Generate and submit a prompt", tmpl, bodySchema(nil, object{"values": values}), "200", ref("SubmitResult")),
			},
			"/templates/{template}/config": object{
				"put": operation("Update submission config", tmpl, bodySchema(nil, object{
					"json_data":      str("JSON document the prompt is inserted into"),
					"json_file_name": str("Name of the file the document came from"),
					"json_path":      str("Dot path to the prompt location, e.g. messages.0.content"),
					"api_url":        str("Endpoint URL; https:// is assumed when no scheme is given"),
					"api_method":     object{"type": "string", "enum": []string{"GET", "POST"}},
					"repair":         object{"type": "boolean", "description": "Repair malformed JSON before parsing"},
				}), "200", ref("TemplateDetail")),
			},
			"/templates/{template}/config/copy-previous": object{
				"post": operation("Copy submission config from the previous template", tmpl, nil, "200", ref("TemplateDetail")),
			},
			"/templates/{template}/segments": object{
				"post": operation("Append an empty segment", tmpl, nil, "201", object{
					"type": "object",
					"properties": object{
						"segmentId": object{"type": "string"},
						"template":  ref("TemplateDetail"),
					},
				}),
			},
			"/templates/{template}/segments/{id}": object{
				"put": operation("Edit a segment's text or name", seg, bodySchema(nil, object{
					"text": str("Segment text; [Label: a, b] tokens become fields"),
					"name": str("Segment name"),
				}), "200", ref("TemplateDetail")),
				"delete": operation("Remove a segment", seg, nil, "200", ref("TemplateDetail")),
			},
			"/templates/{template}/segments/move": object{
				"post": operation("Move a segment", tmpl, bodySchema([]string{"from", "to"}, object{
					"from": str("ID of the segment to move"),
					"to":   str("ID of the segment whose position it takes"),
				}), "200", ref("TemplateDetail")),
			},
			"/export": object{
				"get": object{
					"summary":    "Export templates as YAML",
					"parameters": []object{{"name": "template", "in": "query", "schema": object{"type": "array", "items": object{"type": "string"}}}},
					"responses":  object{"200": object{"description": "YAML document", "content": object{"application/yaml": object{}}}},
				},
			},
			"/import": object{
				"post": object{
					"summary":     "Import templates from YAML",
					"parameters":  []object{{"name": "replace", "in": "query", "schema": object{"type": "boolean"}}},
					"requestBody": object{"required": true, "content": object{"application/yaml": object{}}},
					"responses": object{
						"200": object{"description": "Import count", "content": jsonContent(ref("APIResponse"))},
						"400": object{"description": "Invalid document", "content": jsonContent(ref("ErrorResponse"))},
					},
				},
			},
			"/health": object{
				"get": operation("Service health", nil, nil, "200", object{"type": "object"}),
			},
		},
		"components": object{
			"schemas": object{
				"APIResponse": object{
					"type": "object",
					"properties": object{
						"success":   object{"type": "boolean"},
						"data":      object{},
						"message":   object{"type": "string"},
						"timestamp": object{"type": "string", "format": "date-time"},
					},
					"required": []string{"success", "timestamp"},
				},
				"Segment": object{
					"type": "object",
					"properties": object{
						"id":   object{"type": "string"},
						"name": object{"type": "string"},
						"text": object{"type": "string"},
					},
				},
				"Field": object{
					"type": "object",
					"properties": object{
						"name":    object{"type": "string", "description": "Lowercased label"},
						"label":   object{"type": "string"},
						"options": object{"type": "array", "items": object{"type": "string"}},
						"start":   object{"type": "integer", "description": "Byte offset of the token in its segment"},
						"end":     object{"type": "integer"},
					},
				},
				"TemplateSummary": object{
					"type": "object",
					"properties": object{
						"index":           object{"type": "integer"},
						"name":            object{"type": "string"},
						"segments":        object{"type": "integer"},
						"fields":          object{"type": "integer"},
						"active":          object{"type": "boolean"},
						"hasSubmitConfig": object{"type": "boolean"},
					},
				},
				"TemplateDetail": object{
					"type": "object",
					"properties": object{
						"index": object{"type": "integer"},
						"template": object{
							"type": "object",
							"properties": object{
								"name":     object{"type": "string"},
								"segments": object{"type": "array", "items": ref("Segment")},
								"jsonData": object{},
								"jsonPath": object{"type": "string"},
								"apiUrl":   object{"type": "string"},
							},
						},
						"fields": object{"type": "array", "items": ref("Field")},
					},
				},
				"GenerateResult": object{
					"type": "object",
					"properties": object{
						"index":    object{"type": "integer"},
						"name":     object{"type": "string"},
						"prompt":   object{"type": "string"},
						"values":   object{"type": "object", "additionalProperties": object{"type": "string"}},
						"messages": object{"type": "array", "items": object{"type": "object"}},
					},
				},
				"SubmitResult": object{
					"type": "object",
					"properties": object{
						"prompt":     object{"type": "string"},
						"statusCode": object{"type": "integer"},
						"response":   object{},
						"fullJson":   object{},
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error": object{
							"type": "object",
							"properties": object{
								"code":      object{"type": "string"},
								"message":   object{"type": "string"},
								"details":   object{"type": "string"},
								"category":  object{"type": "string"},
								"severity":  object{"type": "string"},
								"timestamp": object{"type": "string", "format": "date-time"},
							},
							"required": []string{"code", "message", "timestamp"},
						},
					},
					"required": []string{"error"},
				},
			},
		},
	}
}
