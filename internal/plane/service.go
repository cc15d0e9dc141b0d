package plane

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Service exposes the Plane operations the triage pipeline depends on,
// scoped to a single workspace.
type Service struct {
	client    *Client
	workspace string
}

// NewService creates a Service for the given workspace slug.
func NewService(baseURL, workspace, apiKey string) *Service {
	return &Service{
		client:    NewClient(baseURL, apiKey),
		workspace: workspace,
	}
}

// NewServiceWithClient is used by tests to inject a client pointed at
// a test server.
func NewServiceWithClient(client *Client, workspace string) *Service {
	return &Service{client: client, workspace: workspace}
}

func (s *Service) projectPath(projectID, suffix string) string {
	return fmt.Sprintf(
		"/api/v1/workspaces/%s/projects/%s/%s",
		s.workspace, projectID, suffix,
	)
}

// ListProjects returns the projects visible to the credentials.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	var resp listResponse[Project]
	path := fmt.Sprintf("/api/v1/workspaces/%s/projects/", s.workspace)
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return resp.Results, nil
}

// ResolveProject resolves a configured project value, which may be a
// project id/UUID or an identifier slug. An empty value selects the
// first project visible to the credentials.
func (s *Service) ResolveProject(
	ctx context.Context, idOrSlug string,
) (*Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf(
			"no projects visible in workspace %s", s.workspace,
		)
	}

	if idOrSlug == "" {
		return &projects[0], nil
	}

	for i := range projects {
		p := &projects[i]
		if p.ID == idOrSlug || strings.EqualFold(p.Identifier, idOrSlug) {
			return p, nil
		}
	}

	return nil, fmt.Errorf(
		"project %q not found in workspace %s", idOrSlug, s.workspace,
	)
}

// ListWorkItems returns all issues of a project, following cursor
// pagination, with ProjectIdentifier filled in from the project.
func (s *Service) ListWorkItems(
	ctx context.Context, project *Project,
) ([]WorkItem, error) {
	var items []WorkItem
	cursor := ""

	for {
		path := s.projectPath(project.ID, "issues/?per_page=100")
		if cursor != "" {
			path += "&cursor=" + url.QueryEscape(cursor)
		}

		var resp listResponse[WorkItem]
		if err := s.client.Get(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf(
				"listing work items of %s: %w", project.ID, err,
			)
		}

		for _, item := range resp.Results {
			item.ProjectIdentifier = project.Identifier
			items = append(items, item)
		}

		if !resp.NextPageResults || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return items, nil
}

// GetWorkItem fetches a single issue by id.
func (s *Service) GetWorkItem(
	ctx context.Context, projectID, id string,
) (*WorkItem, error) {
	var item WorkItem
	path := s.projectPath(projectID, "issues/"+id+"/")
	if err := s.client.Get(ctx, path, &item); err != nil {
		return nil, fmt.Errorf("fetching work item %s: %w", id, err)
	}
	return &item, nil
}

// CreateWorkItem creates a new issue and returns the stored record.
func (s *Service) CreateWorkItem(
	ctx context.Context, projectID string, req CreateWorkItemRequest,
) (*WorkItem, error) {
	var item WorkItem
	path := s.projectPath(projectID, "issues/")
	if err := s.client.Post(ctx, path, req, &item); err != nil {
		return nil, fmt.Errorf("creating work item %q: %w", req.Name, err)
	}
	return &item, nil
}

// UpdateWorkItem applies a partial update to an issue.
func (s *Service) UpdateWorkItem(
	ctx context.Context, projectID, id string, req UpdateWorkItemRequest,
) error {
	path := s.projectPath(projectID, "issues/"+id+"/")
	if err := s.client.Patch(ctx, path, req, nil); err != nil {
		return fmt.Errorf("updating work item %s: %w", id, err)
	}
	return nil
}

// AddComment posts an HTML comment on an issue.
func (s *Service) AddComment(
	ctx context.Context, projectID, itemID, html string,
) error {
	body := map[string]string{"comment_html": html}
	path := s.projectPath(projectID, "issues/"+itemID+"/comments/")
	if err := s.client.Post(ctx, path, body, nil); err != nil {
		return fmt.Errorf("adding comment to %s: %w", itemID, err)
	}
	return nil
}

// FindStateByName looks up a workflow state by case-insensitive name.
func (s *Service) FindStateByName(
	ctx context.Context, projectID, name string,
) (*State, error) {
	var resp listResponse[State]
	path := s.projectPath(projectID, "states/")
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing states of %s: %w", projectID, err)
	}

	for i := range resp.Results {
		if strings.EqualFold(resp.Results[i].Name, name) {
			return &resp.Results[i], nil
		}
	}
	return nil, fmt.Errorf("state %q not found in project %s", name, projectID)
}

// GetOrCreateLabels resolves label names to ids, creating any label
// that does not exist yet. The returned ids follow the input order.
func (s *Service) GetOrCreateLabels(
	ctx context.Context, projectID string, names []string,
) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var resp listResponse[Label]
	path := s.projectPath(projectID, "labels/")
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing labels of %s: %w", projectID, err)
	}

	existing := make(map[string]string, len(resp.Results))
	for _, l := range resp.Results {
		existing[strings.ToLower(l.Name)] = l.ID
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := existing[strings.ToLower(name)]; ok {
			ids = append(ids, id)
			continue
		}

		var created Label
		body := map[string]string{"name": name}
		if err := s.client.Post(ctx, path, body, &created); err != nil {
			return nil, fmt.Errorf("creating label %q: %w", name, err)
		}
		existing[strings.ToLower(name)] = created.ID
		ids = append(ids, created.ID)
	}

	return ids, nil
}

// FindMember resolves a workspace member id by email or display name.
func (s *Service) FindMember(
	ctx context.Context, identifier string,
) (string, error) {
	var members []Member
	path := fmt.Sprintf("/api/v1/workspaces/%s/members/", s.workspace)
	if err := s.client.Get(ctx, path, &members); err != nil {
		return "", fmt.Errorf("listing workspace members: %w", err)
	}

	for _, m := range members {
		if strings.EqualFold(m.Email, identifier) ||
			strings.EqualFold(m.DisplayName, identifier) {
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("member %q not found", identifier)
}

// UploadAttachment uploads a local file as an issue attachment and
// returns the stored descriptor.
func (s *Service) UploadAttachment(
	ctx context.Context, projectID, itemID, filePath, filename string,
) (*Attachment, error) {
	var att Attachment
	path := s.projectPath(projectID, "issues/"+itemID+"/issue-attachments/")
	err := s.client.UploadFile(ctx, path, filePath, filename, &att)
	if err != nil {
		return nil, fmt.Errorf(
			"uploading attachment %s to %s: %w", filename, itemID, err,
		)
	}
	return &att, nil
}
