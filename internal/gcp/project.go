package gcp

import (
	"context"
	"fmt"
	"strings"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/busway/busway/internal/errors"
)

// defaultProjectClient resolves project metadata ahead of a run.
type defaultProjectClient struct {
	client *resourcemanager.ProjectsClient
}

func (c *defaultProjectClient) GetProject(ctx context.Context, projectID string) (*Project, error) {
	project, err := c.client.GetProject(ctx, &resourcemanagerpb.GetProjectRequest{
		Name: "projects/" + projectID,
	})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return nil, apperrors.NewNotFound("get project",
				fmt.Errorf("project %s not found", projectID))
		case codes.PermissionDenied:
			return nil, apperrors.NewPermanent("get project",
				fmt.Errorf("access to project %s denied, or it may not exist: %w", projectID, err))
		}
		return nil, classify("get project", err)
	}

	return &Project{
		ID:     projectID,
		Name:   project.DisplayName,
		Number: strings.TrimPrefix(project.Name, "projects/"),
	}, nil
}
