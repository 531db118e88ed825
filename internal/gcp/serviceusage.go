package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/serviceusage/v1"
	"google.golang.org/grpc/codes"

	"github.com/busway/busway/internal/gcp/constants"
)

// defaultServiceUsageClient checks and enables project service APIs.
type defaultServiceUsageClient struct {
	service *serviceusage.Service
}

func (c *defaultServiceUsageClient) EnabledServices(ctx context.Context, projectID string) (map[string]bool, error) {
	enabled := make(map[string]bool)
	err := c.service.Services.List("projects/"+projectID).
		Filter("state:ENABLED").
		PageSize(200).
		Pages(ctx, func(resp *serviceusage.ListServicesResponse) error {
			for _, service := range resp.Services {
				// Names come back as projects/<number>/services/<api>.
				name := service.Name
				if idx := strings.LastIndex(name, "/"); idx >= 0 {
					name = name[idx+1:]
				}
				enabled[name] = true
			}
			return nil
		})
	if err != nil {
		return nil, classify("list enabled services", err)
	}
	return enabled, nil
}

func (c *defaultServiceUsageClient) EnableServices(ctx context.Context, projectID string, services []string) error {
	if len(services) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ServiceEnableTimeout)
	defer cancel()

	op, err := c.service.Services.BatchEnable("projects/"+projectID, &serviceusage.BatchEnableServicesRequest{
		ServiceIds: services,
	}).Context(ctx).Do()
	if err != nil {
		return classify("enable services", err)
	}
	if op.Done {
		return serviceOperationResult(op, "enable services")
	}
	return c.waitForServiceOperation(ctx, op.Name)
}

func (c *defaultServiceUsageClient) waitForServiceOperation(ctx context.Context, name string) error {
	ticker := time.NewTicker(constants.ServicePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return classify("enable services", ctx.Err())
		case <-ticker.C:
			op, err := c.service.Operations.Get(name).Context(ctx).Do()
			if err != nil {
				return classify("enable services", err)
			}
			if op.Done {
				return serviceOperationResult(op, "enable services")
			}
		}
	}
}

func serviceOperationResult(op *serviceusage.Operation, action string) error {
	if op.Error == nil {
		return nil
	}
	err := fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message)
	return classifyCode(action, codes.Code(op.Error.Code), err)
}
