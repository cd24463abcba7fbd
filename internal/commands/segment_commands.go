package commands

import (
	"context"
	"fmt"
)

// AddSegmentCommand appends an empty segment to a template
type AddSegmentCommand struct {
	templateCommand
}

func (c *AddSegmentCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	return nil
}

func (c *AddSegmentCommand) GetName() string {
	return "add-segment"
}

func (c *AddSegmentCommand) GetDescription() string {
	return "Append an empty segment to a template"
}

func (c *AddSegmentCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := c.service.AddSegment(c.index)
	if err != nil {
		return nil, err
	}
	result, err := c.updated(fmt.Sprintf("Added segment %s", id))
	if err != nil {
		return nil, err
	}
	result.Data = map[string]interface{}{"segmentId": id, "template": result.Data}
	return result, nil
}

// UpdateSegmentCommand replaces a segment's text
type UpdateSegmentCommand struct {
	templateCommand
	ID   string
	Text string
}

func (c *UpdateSegmentCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	if id, ok := params["id"].(string); ok {
		c.ID = id
	}
	if text, ok := params["text"].(string); ok {
		c.Text = text
	}
	return nil
}

func (c *UpdateSegmentCommand) GetName() string {
	return "update-segment"
}

func (c *UpdateSegmentCommand) GetDescription() string {
	return "Replace the text of a segment; bracket tokens like [Label: a, b] become form fields"
}

func (c *UpdateSegmentCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.UpdateSegment(c.index, c.ID, c.Text); err != nil {
		return nil, err
	}
	return c.updated(fmt.Sprintf("Updated segment %s", c.ID))
}

// RenameSegmentCommand renames a segment
type RenameSegmentCommand struct {
	templateCommand
	ID   string
	Name string
}

func (c *RenameSegmentCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	if id, ok := params["id"].(string); ok {
		c.ID = id
	}
	if name, ok := params["name"].(string); ok {
		c.Name = name
	}
	return nil
}

func (c *RenameSegmentCommand) GetName() string {
	return "rename-segment"
}

func (c *RenameSegmentCommand) GetDescription() string {
	return "Rename a segment"
}

func (c *RenameSegmentCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.RenameSegment(c.index, c.ID, c.Name); err != nil {
		return nil, err
	}
	return c.updated(fmt.Sprintf("Renamed segment to '%s'", c.Name))
}

// RemoveSegmentCommand deletes a segment
type RemoveSegmentCommand struct {
	templateCommand
	ID string
}

func (c *RemoveSegmentCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	if id, ok := params["id"].(string); ok {
		c.ID = id
	}
	return nil
}

func (c *RemoveSegmentCommand) GetName() string {
	return "remove-segment"
}

func (c *RemoveSegmentCommand) GetDescription() string {
	return "Remove a segment; removing the last one leaves a fresh empty segment"
}

func (c *RemoveSegmentCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.RemoveSegment(c.index, c.ID); err != nil {
		return nil, err
	}
	return c.updated(fmt.Sprintf("Removed segment %s", c.ID))
}

// MoveSegmentCommand moves a segment to the position held by another
type MoveSegmentCommand struct {
	templateCommand
	From string
	To   string
}

func (c *MoveSegmentCommand) SetParameters(params map[string]interface{}) error {
	c.setTemplate(params)
	if from, ok := params["from"].(string); ok {
		c.From = from
	}
	if to, ok := params["to"].(string); ok {
		c.To = to
	}
	return nil
}

func (c *MoveSegmentCommand) GetName() string {
	return "move-segment"
}

func (c *MoveSegmentCommand) GetDescription() string {
	return "Move segment 'from' to the position currently held by segment 'to'"
}

func (c *MoveSegmentCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.MoveSegment(c.index, c.From, c.To); err != nil {
		return nil, err
	}
	return c.updated(fmt.Sprintf("Moved segment %s", c.From))
}
