package job

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/swiftsig/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("backtest")
	_, err := uuid.Parse(job.ID)
	require.NoError(t, err, "job IDs are UUIDs")
	assert.Equal(t, StatusPending, job.Status)

	retrieved, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
	assert.Equal(t, "backtest", retrieved.Type)
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("backtest")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	require.NoError(t, err)

	retrieved, _ := store.Get(job.ID)
	assert.Equal(t, StatusRunning, retrieved.Status)
	assert.Equal(t, 50, retrieved.Progress)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("backtest")

	got, _ := store.Get(job.ID)
	got.Status = StatusFailed

	again, _ := store.Get(job.ID)
	assert.Equal(t, StatusPending, again.Status)
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("backtest")
	store.Create("backtest")
	store.Create("backtest") // evicts job1

	_, err := store.Get(job1.ID)
	assert.Error(t, err, "expected job1 to be evicted")
	assert.Len(t, store.List(), 2)
}

func TestStore_ExpiresFinishedJobs(t *testing.T) {
	store := NewStore(100, time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("backtest")
	running := store.Create("backtest")
	require.NoError(t, store.Update(done.ID, func(j *Job) { j.Status = StatusComplete }))
	require.NoError(t, store.Update(running.ID, func(j *Job) { j.Status = StatusRunning }))

	now = now.Add(2 * time.Hour)
	store.Create("backtest")

	_, err := store.Get(done.ID)
	assert.Error(t, err, "finished job past ttl should expire")
	_, err = store.Get(running.ID)
	assert.NoError(t, err, "running jobs never expire")
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	assert.True(t, errors.Is(err, core.ErrJobNotFound))

	err = store.Update("nonexistent", func(*Job) {})
	assert.True(t, errors.Is(err, core.ErrJobNotFound))
}

func TestStore_ListAndActive(t *testing.T) {
	store := NewStore(100, time.Hour)
	first := store.Create("backtest")
	store.Create("backtest")
	store.Create("batch")
	require.NoError(t, store.Update(first.ID, func(j *Job) { j.Status = StatusFailed }))

	jobs := store.List()
	require.Len(t, jobs, 3)
	assert.Equal(t, first.ID, jobs[0].ID)

	assert.Equal(t, 1, store.Active("backtest"))
	assert.Equal(t, 1, store.Active("batch"))
}
