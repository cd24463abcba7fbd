package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpshade/pocket-forms/internal/models"
)

// GenerateResult is the output of the generate command
type GenerateResult struct {
	Index    int               `json:"index"`
	Name     string            `json:"name"`
	Prompt   string            `json:"prompt"`
	Values   map[string]string `json:"values"`
	Messages json.RawMessage   `json:"messages,omitempty"`
}

func valuesParam(params map[string]interface{}) map[string]string {
	if values, ok := params["values"].(map[string]string); ok {
		return values
	}
	return map[string]string{}
}

// FieldsCommand lists the form fields of a template
type FieldsCommand struct {
	templateCommand
}

func (c *FieldsCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	return nil
}

func (c *FieldsCommand) GetName() string {
	return "fields"
}

func (c *FieldsCommand) GetDescription() string {
	return "List the form fields of a template with their options; the first option is the default"
}

func (c *FieldsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	fields, err := c.service.Fields(c.index)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []models.FieldDefinition{}
	}
	return &CommandResult{
		Success: true,
		Data:    fields,
		Message: fmt.Sprintf("Found %d fields", len(fields)),
	}, nil
}

// GenerateCommand renders a template with the given field values
type GenerateCommand struct {
	templateCommand
	Values map[string]string
	Format string
}

func (c *GenerateCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	c.Values = valuesParam(params)
	c.Format = "text"
	if format, ok := params["format"].(string); ok && format != "" {
		c.Format = format
	}
	return nil
}

func (c *GenerateCommand) GetName() string {
	return "generate"
}

func (c *GenerateCommand) GetDescription() string {
	return "Generate the prompt text of a template; unspecified fields use their first option"
}

func (c *GenerateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	prompt, resolved, err := c.service.Generate(c.index, c.Values)
	if err != nil {
		return nil, err
	}
	tmpl, err := c.service.GetTemplate(c.index)
	if err != nil {
		return nil, err
	}

	result := GenerateResult{
		Index:  c.index,
		Name:   tmpl.Name,
		Prompt: prompt,
		Values: resolved,
	}
	if c.Format == "messages" {
		messages, err := c.service.RenderMessages(c.index, resolved)
		if err != nil {
			return nil, err
		}
		result.Messages = json.RawMessage(messages)
	}

	return &CommandResult{
		Success: true,
		Data:    result,
		Message: fmt.Sprintf("Generated prompt from '%s'", tmpl.Name),
	}, nil
}

// SubmitCommand generates a prompt and sends it to the template's endpoint
type SubmitCommand struct {
	templateCommand
	Values map[string]string
}

func (c *SubmitCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	c.Values = valuesParam(params)
	return nil
}

func (c *SubmitCommand) GetName() string {
	return "submit"
}

func (c *SubmitCommand) GetDescription() string {
	return "Generate a prompt, insert it into the template's JSON document at its JSON path and send it to the configured URL"
}

func (c *SubmitCommand) Execute(ctx context.Context) (*CommandResult, error) {
	result, err := c.service.Submit(ctx, c.index, c.Values)
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    result,
		Message: fmt.Sprintf("Submitted, endpoint returned %d", result.StatusCode),
	}, nil
}
