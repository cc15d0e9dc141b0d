package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/plane"
)

// fakeAPI records every call so tests can assert exactly which
// operations the orchestrator performed.
type fakeAPI struct {
	project *plane.Project
	items   []plane.WorkItem

	nextSequenceID int

	stateErr  error
	memberErr error
	listErr   error

	created  []plane.CreateWorkItemRequest
	updated  []plane.UpdateWorkItemRequest
	comments []string
	calls    int
}

func newFakeAPI(items ...plane.WorkItem) *fakeAPI {
	return &fakeAPI{
		project: &plane.Project{
			ID:         "proj-1",
			Name:       "Email Demo",
			Identifier: "EDEMO",
		},
		items:          items,
		nextSequenceID: 100,
	}
}

func (f *fakeAPI) ResolveProject(context.Context, string) (*plane.Project, error) {
	f.calls++
	return f.project, nil
}

func (f *fakeAPI) ListWorkItems(context.Context, *plane.Project) ([]plane.WorkItem, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeAPI) CreateWorkItem(
	_ context.Context, _ string, req plane.CreateWorkItemRequest,
) (*plane.WorkItem, error) {
	f.calls++
	f.created = append(f.created, req)
	return &plane.WorkItem{
		ID:         "new-item",
		Name:       req.Name,
		SequenceID: f.nextSequenceID,
		ProjectID:  f.project.ID,
	}, nil
}

func (f *fakeAPI) UpdateWorkItem(
	_ context.Context, _, _ string, req plane.UpdateWorkItemRequest,
) error {
	f.calls++
	f.updated = append(f.updated, req)
	return nil
}

func (f *fakeAPI) AddComment(_ context.Context, _, _, html string) error {
	f.calls++
	f.comments = append(f.comments, html)
	return nil
}

func (f *fakeAPI) FindStateByName(
	_ context.Context, _, name string,
) (*plane.State, error) {
	f.calls++
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return &plane.State{ID: "state-" + name, Name: name}, nil
}

func (f *fakeAPI) GetOrCreateLabels(
	_ context.Context, _ string, names []string,
) ([]string, error) {
	f.calls++
	ids := make([]string, 0, len(names))
	for _, n := range names {
		ids = append(ids, "label-"+n)
	}
	return ids, nil
}

func (f *fakeAPI) FindMember(_ context.Context, identifier string) (string, error) {
	f.calls++
	if f.memberErr != nil {
		return "", f.memberErr
	}
	return "member-" + identifier, nil
}

func TestProcessEmailCreatesNewItem(t *testing.T) {
	api := newFakeAPI()
	orch := New(api, Options{})

	msg := model.Message{
		Subject:  "[BUG] Login broken",
		From:     "reporter@example.com",
		TextBody: "this is urgent, fix asap",
	}

	res := orch.ProcessEmail(context.Background(), msg)

	assert.Equal(t, model.ActionCreated, res.Action)
	assert.Equal(t, "new-item", res.WorkItemID)
	assert.Equal(t, "EDEMO-100", res.WorkItemKey)
	assert.Equal(t, "proj-1", res.ProjectID)

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, "[BUG] Login broken", req.Name)
	assert.Equal(t, "urgent", req.Priority)
	assert.Contains(t, req.DescriptionHTML, "urgent, fix asap")

	assert.Empty(t, api.comments, "no comment on create")
	assert.Empty(t, api.updated)
}

func TestProcessEmailUpdatesExistingItem(t *testing.T) {
	api := newFakeAPI(plane.WorkItem{
		ID:                "u5",
		Name:              "EDEMO-5 Login fix",
		Priority:          "medium",
		SequenceID:        5,
		ProjectIdentifier: "EDEMO",
	})
	orch := New(api, Options{})

	msg := model.Message{
		Subject:  "Re: [EDEMO-5] Login fix",
		From:     "reporter@example.com",
		Date:     time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC),
		TextBody: "still urgent, happening for everyone",
	}

	res := orch.ProcessEmail(context.Background(), msg)

	assert.Equal(t, model.ActionUpdated, res.Action)
	assert.Equal(t, "u5", res.WorkItemID)
	assert.Equal(t, "EDEMO-5", res.WorkItemKey)

	require.Len(t, api.comments, 1)
	assert.Contains(t, api.comments[0], "reporter@example.com")
	assert.Contains(t, api.comments[0], "still urgent")

	require.Len(t, api.updated, 1)
	assert.Equal(t, "urgent", api.updated[0].Priority)
	assert.Empty(t, api.created, "no duplicate item created")
}

func TestProcessEmailUpdateSkipsUnchangedPriority(t *testing.T) {
	api := newFakeAPI(plane.WorkItem{
		ID:       "u9",
		Name:     "Slow dashboard",
		Priority: "urgent",
	})
	orch := New(api, Options{})

	msg := model.Message{
		Subject:  "Re: Slow dashboard",
		TextBody: "urgent, still slow",
	}

	res := orch.ProcessEmail(context.Background(), msg)

	assert.Equal(t, model.ActionUpdated, res.Action)
	require.Len(t, api.comments, 1)
	assert.Empty(t, api.updated, "no field update when nothing changed")
}

func TestProcessEmailFilterTag(t *testing.T) {
	t.Run("missing tag skips without API calls", func(t *testing.T) {
		api := newFakeAPI()
		orch := New(api, Options{FilterTag: "plane"})

		res := orch.ProcessEmail(context.Background(), model.Message{
			Subject: "Random newsletter",
		})

		assert.Equal(t, model.ActionSkipped, res.Action)
		assert.Equal(t, model.SkipNoFilterTag, res.Reason)
		assert.Zero(t, api.calls)
	})

	t.Run("tag is stripped from the title", func(t *testing.T) {
		api := newFakeAPI()
		orch := New(api, Options{FilterTag: "plane"})

		res := orch.ProcessEmail(context.Background(), model.Message{
			Subject:  "[Plane] Payment page down",
			TextBody: "reported by three customers",
		})

		assert.Equal(t, model.ActionCreated, res.Action)
		require.Len(t, api.created, 1)
		assert.Equal(t, "Payment page down", api.created[0].Name)
	})
}

func TestProcessEmailFieldDirectives(t *testing.T) {
	api := newFakeAPI()
	orch := New(api, Options{})

	msg := model.Message{
		Subject: "Onboard new service",
		TextBody: "Please track this.\n" +
			"Labels: infra, backend\n" +
			"Status: In Progress\n" +
			"Assignee: dev@example.com\n" +
			"Due: 2026-09-15",
	}

	res := orch.ProcessEmail(context.Background(), msg)

	assert.Equal(t, model.ActionCreated, res.Action)
	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, "state-In Progress", req.State)
	assert.Equal(t, []string{"label-infra", "label-backend"}, req.Labels)
	assert.Equal(t, []string{"member-dev@example.com"}, req.Assignees)
	assert.Equal(t, "2026-09-15", req.TargetDate)
}

func TestProcessEmailLookupMissDropsField(t *testing.T) {
	api := newFakeAPI()
	api.stateErr = errors.New("no such state")
	api.memberErr = errors.New("no such member")
	orch := New(api, Options{})

	msg := model.Message{
		Subject:  "Broken export",
		TextBody: "Status: Nonexistent\nAssignee: ghost@example.com",
	}

	res := orch.ProcessEmail(context.Background(), msg)

	assert.Equal(t, model.ActionCreated, res.Action, "lookup misses never fail the pipeline")
	require.Len(t, api.created, 1)
	assert.Empty(t, api.created[0].State)
	assert.Empty(t, api.created[0].Assignees)
}

func TestProcessEmailAPIFailure(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("service unavailable")
	orch := New(api, Options{})

	res := orch.ProcessEmail(context.Background(), model.Message{
		Subject: "Anything",
	})

	assert.Equal(t, model.ActionFailed, res.Action)
	assert.Contains(t, res.Message, "listing work items")
	assert.Contains(t, res.Message, "service unavailable")
}

func TestStripSentAt(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			"double break",
			"Report body\nSent at: Mon 09:00\n\nmore text",
			"Report body\nmore text",
		},
		{
			"single break",
			"Report body\nSent at: Mon 09:00\ntrailing",
			"Report body\ntrailing",
		},
		{
			"no artifact",
			"Report body unchanged",
			"Report body unchanged",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripSentAt(tt.in))
		})
	}
}

func TestHTMLBody(t *testing.T) {
	out := htmlBody("line <one>\nline two")
	assert.Equal(t, "<p>line &lt;one&gt;<br/>line two</p>", out)
}
