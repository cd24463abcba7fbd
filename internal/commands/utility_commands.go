// Package commands/utility_commands implements system utility commands.
//
// COMMAND IMPLEMENTATIONS:
// - HealthCheckCommand: reports store location, template count and parse cache statistics
//
// INTEGRATION POINTS:
// - internal/api/server.go: Health endpoint at /api/v1/health uses HealthCheckCommand
// - internal/mcp/server.go: exposed as the health tool
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/version"
)

// HealthCheckCommand provides system health information
type HealthCheckCommand struct {
	service *service.Service
}

func (c *HealthCheckCommand) SetService(svc *service.Service) {
	c.service = svc
}

func (c *HealthCheckCommand) SetParameters(params map[string]interface{}) error {
	return nil
}

func (c *HealthCheckCommand) Validate() error {
	if c.service == nil {
		return fmt.Errorf("service not set")
	}
	return nil
}

func (c *HealthCheckCommand) GetName() string {
	return "health"
}

func (c *HealthCheckCommand) GetDescription() string {
	return "Check system health and service status"
}

func (c *HealthCheckCommand) Execute(ctx context.Context) (*CommandResult, error) {
	info := c.service.Info()

	healthData := map[string]interface{}{
		"status":    "healthy",
		"service":   "pocket-forms",
		"version":   version.Version,
		"info":      info,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	return &CommandResult{
		Success: true,
		Data:    healthData,
		Message: "Service is healthy",
	}, nil
}
