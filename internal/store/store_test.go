package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/store"
	"github.com/nvkha/mailplane/tests/testutil"
)

func TestRecordAndReadTriage(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	records := []store.TriageRecord{
		{
			MessageID:  "<a@example.com>",
			Subject:    "Login broken",
			Sender:     "reporter@example.com",
			Action:     "created",
			WorkItemID: "item-1",
			ProjectID:  "proj-1",
			CreatedAt:  base,
		},
		{
			MessageID: "<b@example.com>",
			Subject:   "Re: Login broken",
			Sender:    "reporter@example.com",
			Action:    "updated",
			CreatedAt: base.Add(time.Minute),
		},
		{
			MessageID: "<c@example.com>",
			Subject:   "Newsletter",
			Action:    "skipped",
			Detail:    "no-filter-tag",
			CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, rec := range records {
		require.NoError(t, s.RecordTriage(ctx, rec))
	}

	got, err := s.RecentTriage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Newsletter", got[0].Subject, "newest first")
	assert.Equal(t, "Re: Login broken", got[1].Subject)
	assert.Equal(t, "Login broken", got[2].Subject)

	assert.NotEmpty(t, got[0].ID, "missing id is filled in")
	assert.Equal(t, "no-filter-tag", got[0].Detail)
	assert.Equal(t, "item-1", got[2].WorkItemID)
}

func TestRecentTriageLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordTriage(ctx, store.TriageRecord{
			MessageID: "<m@example.com>",
			Subject:   "subject",
			Action:    "created",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := s.RecentTriage(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.RecentTriage(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 5, "non-positive limit uses the default")
}

func TestNewTriageRecord(t *testing.T) {
	msg := model.Message{
		MessageID: "<x@example.com>",
		Subject:   "Broken export",
		From:      "reporter@example.com",
	}

	t.Run("success carries the reason", func(t *testing.T) {
		rec := store.NewTriageRecord(msg, model.Result{
			Action:     model.ActionSkipped,
			Reason:     model.SkipNoFilterTag,
			WorkItemID: "",
		})
		assert.Equal(t, "<x@example.com>", rec.MessageID)
		assert.Equal(t, "skipped", rec.Action)
		assert.Equal(t, model.SkipNoFilterTag, rec.Detail)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("failure carries the error message", func(t *testing.T) {
		rec := store.NewTriageRecord(msg, model.Result{
			Action:  model.ActionFailed,
			Message: "listing work items: boom",
		})
		assert.Equal(t, "failed", rec.Action)
		assert.Equal(t, "listing work items: boom", rec.Detail)
	})
}
