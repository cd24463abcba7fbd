// Package commands implements the unified command execution system for pocket-forms.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the coordination layer between the external interfaces (HTTP API, MCP
// tools) and the service layer. Each operation on templates is a named Command so both
// interfaces share parameter validation, error mapping and result shapes.
//
// INTEGRATION POINTS:
// - internal/api/server.go: route handlers build a parameter map and call executor.Execute()
// - internal/mcp/server.go: tool handlers forward their arguments to executor.Execute()
// - internal/service/service.go: commands delegate all business logic to service.Service
// - internal/validation/validator.go: parameters are checked against the schema named after the command
// - internal/errors/errors.go: command failures are converted to ErrorInfo via AppError
//
// COMMAND FLOW:
// 1. Interface receives user input and converts it to a parameter map
// 2. CommandExecutor validates parameters against the command's schema
// 3. A fresh command instance receives the service and the validated parameters
// 4. The command runs and returns a CommandResult
// 5. Interface renders the CommandResult in its own format
package commands

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/validation"
)

// CommandResult represents the result of executing a command
type CommandResult struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Success bool        `json:"success"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo provides structured error information
type ErrorInfo struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Category string                 `json:"category,omitempty"`
	Severity string                 `json:"severity,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// AppError rebuilds the AppError described by e
func (e *ErrorInfo) AppError() *errors.AppError {
	appErr := errors.NewAppError(errors.ErrorCode(e.Code), e.Message)
	appErr.Details = e.Details
	for k, v := range e.Context {
		appErr.WithContext(k, v)
	}
	return appErr
}

// Command represents a unified command interface
type Command interface {
	Execute(ctx context.Context) (*CommandResult, error)
	Validate() error
	GetName() string
	GetDescription() string
}

// ParameterizedCommand interface for commands that accept parameters
type ParameterizedCommand interface {
	SetParameters(params map[string]interface{}) error
}

// ServiceAwareCommand interface for commands that need service access
type ServiceAwareCommand interface {
	SetService(svc *service.Service)
}

// CommandRegistry manages available commands
type CommandRegistry struct {
	commands map[string]func() Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]func() Command),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory func() Command) {
	r.commands[name] = factory
}

// Get retrieves a command factory by name
func (r *CommandRegistry) Get(name string) (func() Command, bool) {
	factory, exists := r.commands[name]
	return factory, exists
}

// List returns all available command names, sorted
func (r *CommandRegistry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandExecutor provides a unified way to execute commands
type CommandExecutor struct {
	service   *service.Service
	registry  *CommandRegistry
	validator *validation.Validator
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(svc *service.Service) *CommandExecutor {
	executor := &CommandExecutor{
		service:   svc,
		registry:  NewCommandRegistry(),
		validator: validation.NewValidator(),
	}

	executor.registerCommands()

	return executor
}

// Service returns the service commands run against
func (e *CommandExecutor) Service() *service.Service {
	return e.service
}

// Describe returns command names mapped to their descriptions
func (e *CommandExecutor) Describe() map[string]string {
	out := make(map[string]string)
	for _, name := range e.registry.List() {
		factory, _ := e.registry.Get(name)
		out[name] = factory().GetDescription()
	}
	return out
}

// Execute runs a command by name with the given parameters. Failures are
// reported in the result; the returned error is reserved for future use and
// is currently always nil.
func (e *CommandExecutor) Execute(ctx context.Context, commandName string, params map[string]interface{}) (*CommandResult, error) {
	factory, exists := e.registry.Get(commandName)
	if !exists {
		return failure(errors.CommandNotFoundError(commandName)), nil
	}

	if params == nil {
		params = make(map[string]interface{})
	}

	if schema := schemaFor(commandName); e.validator.HasSchema(schema) {
		validationResult := e.validator.Validate(schema, params)
		if !validationResult.Valid {
			return failure(validationResult.ToAppError()), nil
		}
		params = validationResult.GetValidatedData()
	}

	cmd := factory()

	if serviceAware, ok := cmd.(ServiceAwareCommand); ok {
		serviceAware.SetService(e.service)
	}

	if parameterized, ok := cmd.(ParameterizedCommand); ok {
		if err := parameterized.SetParameters(params); err != nil {
			return failure(errors.ValidationError(err.Error())), nil
		}
	}

	if err := cmd.Validate(); err != nil {
		if errors.IsAppError(err) {
			return failure(errors.GetAppError(err)), nil
		}
		return failure(errors.ValidationError(err.Error())), nil
	}

	result, err := cmd.Execute(ctx)
	if err != nil {
		appErr := errors.GetAppError(err)
		logging.Debug("command failed",
			zap.String("command", commandName),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
		return failure(appErr), nil
	}

	return result, nil
}

func failure(appErr *errors.AppError) *CommandResult {
	return &CommandResult{
		Success: false,
		Error: &ErrorInfo{
			Code:     string(appErr.Code),
			Message:  appErr.Message,
			Details:  appErr.Details,
			Category: string(appErr.Category),
			Severity: string(appErr.Severity),
			Context:  appErr.Context,
		},
	}
}

// schemaFor returns the validation schema name for a command
func schemaFor(commandName string) string {
	return strings.ReplaceAll(commandName, "-", "_")
}

// registerCommands registers all available commands
func (e *CommandExecutor) registerCommands() {
	// Templates
	e.registry.Register("list-templates", func() Command { return &ListTemplatesCommand{} })
	e.registry.Register("get-template", func() Command { return &GetTemplateCommand{} })
	e.registry.Register("create-template", func() Command { return &CreateTemplateCommand{} })
	e.registry.Register("delete-template", func() Command { return &DeleteTemplateCommand{} })
	e.registry.Register("rename-template", func() Command { return &RenameTemplateCommand{} })

	// Segments
	e.registry.Register("add-segment", func() Command { return &AddSegmentCommand{} })
	e.registry.Register("update-segment", func() Command { return &UpdateSegmentCommand{} })
	e.registry.Register("rename-segment", func() Command { return &RenameSegmentCommand{} })
	e.registry.Register("remove-segment", func() Command { return &RemoveSegmentCommand{} })
	e.registry.Register("move-segment", func() Command { return &MoveSegmentCommand{} })

	// Form and output
	e.registry.Register("fields", func() Command { return &FieldsCommand{} })
	e.registry.Register("generate", func() Command { return &GenerateCommand{} })
	e.registry.Register("submit", func() Command { return &SubmitCommand{} })

	// Submit configuration
	e.registry.Register("set-config", func() Command { return &SetConfigCommand{} })
	e.registry.Register("copy-config", func() Command { return &CopyConfigCommand{} })

	// System
	e.registry.Register("health", func() Command { return &HealthCheckCommand{} })
}
