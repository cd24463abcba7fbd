// Package api provides the local RESTful HTTP API for pocket-forms.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the HTTP interface layer. It exposes template editing, prompt
// generation and submission so editors, scripts and launchers can drive the same
// templates the TUI edits.
//
// INTEGRATION POINTS:
// - internal/commands/types.go: APIServer.executor executes all template operations through CommandExecutor
// - internal/validation/middleware.go: ExtractRequestData turns requests into command parameters
// - internal/errors/handlers.go: APIServer.errorHandler (HTTPErrorHandler) formats error responses
// - internal/service/service.go: export and import stream YAML directly through the service
// - internal/api/openapi.go: OpenAPI spec at /api/openapi.json and docs at /api/docs
//
// MIDDLEWARE STACK:
// - Logging: one structured zap line per request with status and duration
// - CORS: cross-origin access for local web tools
// - Content-Type: JSON by default
// - Error Handling: panic recovery into a standard error response
//
// ENDPOINT STRUCTURE:
// - /api/v1/templates: list and create templates
// - /api/v1/templates/{template}: get, rename (PATCH) and delete; {template} is an index or a name
// - /api/v1/templates/{template}/segments: add, edit, rename, remove and move segments
// - /api/v1/templates/{template}/fields|generate|submit|config: form and submission
// - /api/v1/export, /api/v1/import: YAML transfer
// - /api/v1/health: service status
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/commands"
	"github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/validation"
)

// APIServer serves the HTTP API with middleware support
type APIServer struct {
	service      *service.Service
	executor     *commands.CommandExecutor
	errorHandler *errors.HTTPErrorHandler
	requests     *validation.RequestValidator
	host         string
	port         int

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewAPIServer creates a new API server instance
func NewAPIServer(svc *service.Service, host string, port int) *APIServer {
	return &APIServer{
		service:      svc,
		executor:     commands.NewCommandExecutor(svc),
		errorHandler: errors.NewHTTPErrorHandler(true),
		requests:     validation.NewRequestValidator(),
		host:         host,
		port:         port,
	}
}

// Handler returns the routed handler with middleware applied
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/templates", s.withMiddleware(s.command("list-templates", http.StatusOK)))
	mux.HandleFunc("POST /api/v1/templates", s.withMiddleware(s.command("create-template", http.StatusCreated)))
	mux.HandleFunc("GET /api/v1/templates/{template}", s.withMiddleware(s.command("get-template", http.StatusOK)))
	mux.HandleFunc("PATCH /api/v1/templates/{template}", s.withMiddleware(s.command("rename-template", http.StatusOK)))
	mux.HandleFunc("DELETE /api/v1/templates/{template}", s.withMiddleware(s.command("delete-template", http.StatusOK)))

	mux.HandleFunc("GET /api/v1/templates/{template}/fields", s.withMiddleware(s.command("fields", http.StatusOK)))
	mux.HandleFunc("POST /api/v1/templates/{template}/generate", s.withMiddleware(s.command("generate", http.StatusOK)))
	mux.HandleFunc("POST /api/v1/templates/{template}/submit", s.withMiddleware(s.command("submit", http.StatusOK)))
	mux.HandleFunc("PUT /api/v1/templates/{template}/config", s.withMiddleware(s.command("set-config", http.StatusOK)))
	mux.HandleFunc("POST /api/v1/templates/{template}/config/copy-previous", s.withMiddleware(s.command("copy-config", http.StatusOK)))

	mux.HandleFunc("POST /api/v1/templates/{template}/segments", s.withMiddleware(s.command("add-segment", http.StatusCreated)))
	mux.HandleFunc("POST /api/v1/templates/{template}/segments/move", s.withMiddleware(s.command("move-segment", http.StatusOK)))
	mux.HandleFunc("PUT /api/v1/templates/{template}/segments/{id}", s.withMiddleware(s.requests.ValidateRequest("edit_segment")(s.handleUpdateSegment)))
	mux.HandleFunc("DELETE /api/v1/templates/{template}/segments/{id}", s.withMiddleware(s.command("remove-segment", http.StatusOK)))

	mux.HandleFunc("GET /api/v1/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("POST /api/v1/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("GET /api/v1/health", s.withMiddleware(s.command("health", http.StatusOK)))

	// Preflight requests are answered by corsMiddleware
	mux.HandleFunc("OPTIONS /api/", s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {}))

	mux.HandleFunc("GET /api/docs", s.withMiddleware(s.handleOpenAPI))
	mux.HandleFunc("GET /api/openapi.json", s.withMiddleware(s.handleOpenAPISpec))

	return mux
}

// Start listens and serves until Stop is called. It returns nil after a
// graceful shutdown.
func (s *APIServer) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("failed to listen on %s:%d: %w", s.host, s.port, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener
func (s *APIServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	logging.Info("API server starting",
		zap.String("addr", "http://"+ln.Addr().String()),
		zap.String("docs", "http://"+ln.Addr().String()+"/api/docs"))

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address once serving has started
func (s *APIServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server
func (s *APIServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *APIServer) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.loggingMiddleware(
		s.corsMiddleware(
			s.contentTypeMiddleware(
				s.errorMiddleware(handler),
			),
		),
	)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func (s *APIServer) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	}
}

// corsMiddleware handles CORS headers
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// contentTypeMiddleware sets default content type
func (s *APIServer) contentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// errorMiddleware handles panics and errors
func (s *APIServer) errorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.Error("panic in handler", zap.Any("panic", err), zap.String("path", r.URL.Path))
				s.errorHandler.WriteHTTPError(w, errors.InternalError("Internal server error"))
			}
		}()
		next(w, r)
	}
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// writeResponse writes a standardized JSON response
func (s *APIServer) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	response := APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		json.NewEncoder(w).Encode(response)
		return
	}

	w.Write(jsonData)
}

// writeError writes an error response using the error handler
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

// writeResult writes a command result, mapping failures to their HTTP status
func (s *APIServer) writeResult(w http.ResponseWriter, result *commands.CommandResult, status int) {
	if !result.Success {
		if result.Error != nil {
			s.writeError(w, result.Error.AppError())
		} else {
			s.writeError(w, errors.InternalError("Command failed"))
		}
		return
	}
	s.writeResponse(w, result.Data, result.Message, status)
}

// command returns a handler that runs the named command with the request's
// query, path and body parameters.
func (s *APIServer) command(name string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validation.ExtractRequestData(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.execute(w, r, name, params, status)
	}
}

func (s *APIServer) execute(w http.ResponseWriter, r *http.Request, name string, params map[string]interface{}, status int) {
	result, err := s.executor.Execute(r.Context(), name, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, result, status)
}

// handleUpdateSegment handles PUT /api/v1/templates/{template}/segments/{id}.
// The body may carry text, name or both.
func (s *APIServer) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	params, err := validation.ExtractRequestData(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	_, hasText := params["text"]
	name, hasName := params["name"]

	if hasName {
		rename := map[string]interface{}{"template": params["template"], "id": params["id"], "name": name}
		if !hasText {
			s.execute(w, r, "rename-segment", rename, http.StatusOK)
			return
		}
		result, err := s.executor.Execute(r.Context(), "rename-segment", rename)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if !result.Success {
			s.writeResult(w, result, http.StatusOK)
			return
		}
	}

	delete(params, "name")
	s.execute(w, r, "update-segment", params, http.StatusOK)
}

// handleExport handles GET /api/v1/export
func (s *APIServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var indices []int
	for _, ref := range r.URL.Query()["template"] {
		index, err := s.service.FindTemplate(ref)
		if err != nil {
			s.writeError(w, err)
			return
		}
		indices = append(indices, index)
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="pocket-forms.yaml"`)
	if err := s.service.Export(w, indices...); err != nil {
		logging.Error("export failed", zap.Error(err))
	}
}

// handleImport handles POST /api/v1/import with a YAML body
func (s *APIServer) handleImport(w http.ResponseWriter, r *http.Request) {
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))

	count, err := s.service.Import(http.MaxBytesReader(w, r.Body, 8<<20), replace)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, map[string]interface{}{"imported": count, "replace": replace},
		fmt.Sprintf("Imported %d templates", count), http.StatusOK)
}
