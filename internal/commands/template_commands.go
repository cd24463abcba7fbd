package commands

import (
	"context"
	"fmt"

	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/service"
)

// TemplateSummary is the list view of a template
type TemplateSummary struct {
	Index           int               `json:"index"`
	Name            string            `json:"name"`
	Segments        int               `json:"segments"`
	Fields          int               `json:"fields"`
	HasSubmitConfig bool              `json:"hasSubmitConfig"`
	APIURL          string            `json:"apiUrl,omitempty"`
	APIMethod       models.HTTPMethod `json:"apiMethod"`
	Active          bool              `json:"active"`
}

// TemplateDetail is a template with its aggregated fields
type TemplateDetail struct {
	Index    int                      `json:"index"`
	Template models.Template          `json:"template"`
	Fields   []models.FieldDefinition `json:"fields"`
}

// templateCommand holds what every template-scoped command shares: the
// service and the reference naming the template.
type templateCommand struct {
	service  *service.Service
	Template string
	index    int
}

func (c *templateCommand) SetService(svc *service.Service) {
	c.service = svc
}

func (c *templateCommand) setTemplate(params map[string]interface{}) {
	if ref, ok := params["template"].(string); ok {
		c.Template = ref
	}
}

// Validate resolves the template reference to an index
func (c *templateCommand) Validate() error {
	if c.service == nil {
		return fmt.Errorf("service not set")
	}
	index, err := c.service.FindTemplate(c.Template)
	if err != nil {
		return err
	}
	c.index = index
	return nil
}

func (c *templateCommand) detail() (*TemplateDetail, error) {
	tmpl, err := c.service.GetTemplate(c.index)
	if err != nil {
		return nil, err
	}
	fields, err := c.service.Fields(c.index)
	if err != nil {
		return nil, err
	}
	return &TemplateDetail{Index: c.index, Template: tmpl, Fields: fields}, nil
}

func (c *templateCommand) updated(message string) (*CommandResult, error) {
	detail, err := c.detail()
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: detail, Message: message}, nil
}

// ListTemplatesCommand lists all templates in tab order
type ListTemplatesCommand struct {
	service *service.Service
}

func (c *ListTemplatesCommand) SetService(svc *service.Service) {
	c.service = svc
}

func (c *ListTemplatesCommand) Validate() error {
	if c.service == nil {
		return fmt.Errorf("service not set")
	}
	return nil
}

func (c *ListTemplatesCommand) GetName() string {
	return "list-templates"
}

func (c *ListTemplatesCommand) GetDescription() string {
	return "List all templates with their segment and field counts"
}

func (c *ListTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	active := c.service.State().ActiveTab
	templates := c.service.ListTemplates()

	summaries := make([]TemplateSummary, 0, len(templates))
	for i, t := range templates {
		fields, err := c.service.Fields(i)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TemplateSummary{
			Index:           i,
			Name:            t.Name,
			Segments:        len(t.Segments),
			Fields:          len(fields),
			HasSubmitConfig: t.HasSubmitConfig(),
			APIURL:          t.APIURL,
			APIMethod:       t.APIMethod,
			Active:          i == active,
		})
	}

	return &CommandResult{
		Success: true,
		Data:    summaries,
		Message: fmt.Sprintf("Found %d templates", len(summaries)),
	}, nil
}

// GetTemplateCommand retrieves one template with its fields
type GetTemplateCommand struct {
	templateCommand
}

func (c *GetTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	return nil
}

func (c *GetTemplateCommand) GetName() string {
	return "get-template"
}

func (c *GetTemplateCommand) GetDescription() string {
	return "Get a template by index or name, including its aggregated form fields"
}

func (c *GetTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	detail, err := c.detail()
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    detail,
		Message: fmt.Sprintf("Retrieved template '%s'", detail.Template.Name),
	}, nil
}

// CreateTemplateCommand appends a new template
type CreateTemplateCommand struct {
	service *service.Service
	Name    string
}

func (c *CreateTemplateCommand) SetService(svc *service.Service) {
	c.service = svc
}

func (c *CreateTemplateCommand) SetParameters(params map[string]interface{}) error {
	if name, ok := params["name"].(string); ok {
		c.Name = name
	}
	return nil
}

func (c *CreateTemplateCommand) Validate() error {
	if c.service == nil {
		return fmt.Errorf("service not set")
	}
	return nil
}

func (c *CreateTemplateCommand) GetName() string {
	return "create-template"
}

func (c *CreateTemplateCommand) GetDescription() string {
	return "Create a new template with one empty segment"
}

func (c *CreateTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	index, err := c.service.AddTemplate()
	if err != nil {
		return nil, err
	}
	if c.Name != "" {
		if err := c.service.RenameTemplate(index, c.Name); err != nil {
			return nil, err
		}
	}

	created := templateCommand{service: c.service, index: index}
	result, err := created.updated("")
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("Created template '%s'", result.Data.(*TemplateDetail).Template.Name)
	return result, nil
}

// DeleteTemplateCommand removes a template. The last template cannot be removed.
type DeleteTemplateCommand struct {
	templateCommand
}

func (c *DeleteTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	return nil
}

func (c *DeleteTemplateCommand) GetName() string {
	return "delete-template"
}

func (c *DeleteTemplateCommand) GetDescription() string {
	return "Delete a template; at least one template always remains"
}

func (c *DeleteTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	tmpl, err := c.service.GetTemplate(c.index)
	if err != nil {
		return nil, err
	}
	if err := c.service.RemoveTemplate(c.index); err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]interface{}{"index": c.index, "name": tmpl.Name},
		Message: fmt.Sprintf("Deleted template '%s'", tmpl.Name),
	}, nil
}

// RenameTemplateCommand renames a template
type RenameTemplateCommand struct {
	templateCommand
	Name string
}

func (c *RenameTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	if name, ok := params["name"].(string); ok {
		c.Name = name
	}
	return nil
}

func (c *RenameTemplateCommand) GetName() string {
	return "rename-template"
}

func (c *RenameTemplateCommand) GetDescription() string {
	return "Rename a template"
}

func (c *RenameTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.RenameTemplate(c.index, c.Name); err != nil {
		return nil, err
	}
	return c.updated(fmt.Sprintf("Renamed template to '%s'", c.Name))
}

// SetConfigCommand updates a template's submit configuration
type SetConfigCommand struct {
	templateCommand
	Update service.ConfigUpdate
}

func (c *SetConfigCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	str := func(key string) *string {
		if v, ok := params[key].(string); ok {
			return &v
		}
		return nil
	}
	c.Update = service.ConfigUpdate{
		JSONData:     str("json_data"),
		JSONFileName: str("json_file_name"),
		JSONPath:     str("json_path"),
		APIURL:       str("api_url"),
		APIMethod:    str("api_method"),
	}
	if repair, ok := params["repair"].(bool); ok {
		c.Update.Repair = repair
	}
	return nil
}

func (c *SetConfigCommand) GetName() string {
	return "set-config"
}

func (c *SetConfigCommand) GetDescription() string {
	return "Set the JSON document, JSON path, endpoint URL and HTTP method used for submission"
}

func (c *SetConfigCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.Configure(c.index, c.Update); err != nil {
		return nil, err
	}
	return c.updated("Updated submit configuration")
}

// CopyConfigCommand copies the submit configuration from the previous template
type CopyConfigCommand struct {
	templateCommand
}

func (c *CopyConfigCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	return nil
}

func (c *CopyConfigCommand) GetName() string {
	return "copy-config"
}

func (c *CopyConfigCommand) GetDescription() string {
	return "Copy JSON document, path, URL and method from the previous template"
}

func (c *CopyConfigCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.CopyConfigFromPrevious(c.index); err != nil {
		return nil, err
	}
	return c.updated("Copied configuration from previous template")
}
