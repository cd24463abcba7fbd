// Package mcp exposes templates as Model Context Protocol tools over stdio so
// assistants can list forms, fill them in and submit the resulting prompts.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/commands"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/version"
)

const serverName = "pocket-forms"

// Server is the MCP tool server
type Server struct {
	server   *server.MCPServer
	service  *service.Service
	executor *commands.CommandExecutor
}

// NewServer creates an MCP server whose tools run through the command executor
func NewServer(svc *service.Service) *Server {
	s := &Server{
		server:   server.NewMCPServer(serverName, version.Version, server.WithToolCapabilities(false)),
		service:  svc,
		executor: commands.NewCommandExecutor(svc),
	}
	s.registerTools()
	return s
}

var templateProperty = map[string]interface{}{
	"type":        "string",
	"description": "Template index (0-based) or name; names match exactly first, then fuzzily. Defaults to the active template.",
}

var valuesProperty = map[string]interface{}{
	"type":                 "object",
	"description":          "Field values keyed by lowercased field name. Fields left out use their first option.",
	"additionalProperties": map[string]interface{}{"type": "string"},
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.Tool{
		Name:        "list_templates",
		Description: "Lists prompt templates with their field counts and whether they can be submitted",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListTemplates)

	s.server.AddTool(mcp.Tool{
		Name:        "list_fields",
		Description: "Lists the form fields of a template. Each field has a name and its options; the first option is the default.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template": templateProperty,
			},
		},
	}, s.handleListFields)

	s.server.AddTool(mcp.Tool{
		Name:        "generate_prompt",
		Description: "Fills in a template's fields and returns the generated prompt text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template": templateProperty,
				"values":   valuesProperty,
				"format": map[string]interface{}{
					"type":        "string",
					"description": "'text' (default) or 'messages' for a chat message array",
					"enum":        []string{"text", "messages"},
				},
			},
		},
	}, s.handleGeneratePrompt)

	s.server.AddTool(mcp.Tool{
		Name:        "submit_prompt",
		Description: "Generates a prompt, inserts it into the template's JSON document at its JSON path and sends it to the template's URL",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template": templateProperty,
				"values":   valuesProperty,
			},
		},
	}, s.handleSubmitPrompt)
}

type templateArgs struct {
	Template string            `json:"template,omitempty"`
	Values   map[string]string `json:"values,omitempty"`
	Format   string            `json:"format,omitempty"`
}

// params builds command parameters; an omitted template means the active tab
func (s *Server) params(a templateArgs) map[string]interface{} {
	ref := a.Template
	if ref == "" {
		ref = strconv.Itoa(s.service.State().ActiveTab)
	}
	params := map[string]interface{}{"template": ref}
	if a.Values != nil {
		params["values"] = a.Values
	}
	if a.Format != "" {
		params["format"] = a.Format
	}
	return params
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf(format, args...),
			},
		},
		IsError: true,
	}
}

func textResult(text string, structured interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		StructuredContent: structured,
	}
}

// run executes a command and converts its result into a tool result
func (s *Server) run(ctx context.Context, name string, params map[string]interface{}) *mcp.CallToolResult {
	result, err := s.executor.Execute(ctx, name, params)
	if err != nil {
		return errorResult("%s failed: %v", name, err)
	}
	if !result.Success {
		if result.Error != nil {
			return errorResult("%s", result.Error.AppError().Error())
		}
		return errorResult("%s failed", name)
	}

	data, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: %v", err)
	}
	return textResult(string(data), result.Data)
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "list-templates", map[string]interface{}{}), nil
}

func (s *Server) handleListFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args templateArgs
	if err := request.BindArguments(&args); err != nil {
		return errorResult("Error parsing arguments: %v", err), nil
	}
	args.Values, args.Format = nil, ""
	return s.run(ctx, "fields", s.params(args)), nil
}

func (s *Server) handleGeneratePrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args templateArgs
	if err := request.BindArguments(&args); err != nil {
		return errorResult("Error parsing arguments: %v", err), nil
	}

	result, err := s.executor.Execute(ctx, "generate", s.params(args))
	if err != nil {
		return errorResult("generate failed: %v", err), nil
	}
	if !result.Success {
		return errorResult("%s", result.Error.AppError().Error()), nil
	}

	out := result.Data.(commands.GenerateResult)
	if out.Messages != nil {
		return textResult(string(out.Messages), out), nil
	}
	return textResult(out.Prompt, out), nil
}

func (s *Server) handleSubmitPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args templateArgs
	if err := request.BindArguments(&args); err != nil {
		return errorResult("Error parsing arguments: %v", err), nil
	}
	args.Format = ""
	return s.run(ctx, "submit", s.params(args)), nil
}

// Serve speaks MCP over the given streams until ctx is cancelled or the
// input closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdioServer := server.NewStdioServer(s.server)
	stdioServer.SetErrorLogger(zap.NewStdLog(logging.GetLogger()))

	logging.Info("starting MCP server", zap.String("version", version.Version))
	if err := stdioServer.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running server: %w", err)
	}
	return nil
}

// Start serves on stdin/stdout until interrupted
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() {
		errC <- s.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		logging.Info("shutting down MCP server")
		return nil
	case err := <-errC:
		return err
	}
}
