package runs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo(10)
	start := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	run := &Run{CatalogID: "top-anilist", Status: StatusRunning, StartedAt: start}
	id, err := repo.CreateRun(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	finished := start.Add(2 * time.Second)
	run.ID = id
	run.Status = StatusCompleted
	run.FinishedAt = &finished
	run.ItemsFetched = 30
	require.NoError(t, repo.UpdateRun(ctx, run))

	list, err := repo.ListRuns(ctx, "top-anilist", 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusCompleted, list[0].Status)
	assert.Equal(t, 30, list[0].ItemsFetched)
	assert.Equal(t, 2*time.Second, list[0].Duration())

	other, err := repo.ListRuns(ctx, "season-anilist", 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryRepo_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo(3)
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	var firstID string
	for i := 0; i < 5; i++ {
		id, err := repo.CreateRun(ctx, &Run{CatalogID: "c", Status: StatusRunning, StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
		if i == 0 {
			firstID = id
		}
	}

	list, err := repo.ListRuns(ctx, "c", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, base.Add(4*time.Hour), list[0].StartedAt)
	assert.Equal(t, base.Add(2*time.Hour), list[2].StartedAt)

	err = repo.UpdateRun(ctx, &Run{ID: firstID, Status: StatusFailed})
	assert.Error(t, err)
}
