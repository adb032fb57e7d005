package task

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	task, err := store.Create(id, generation.Options{Description: "a tower"}, created)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, created, task.CreatedAt)

	require.NoError(t, store.MarkProcessing(id, created.Add(time.Second)))
	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	require.NotNil(t, got.StartedAt)

	result := &generation.ImageResult{SVGPath: "out/x.svg", RasterPath: "out/x.png"}
	require.NoError(t, store.Complete(id, result, created.Add(2*time.Second)))

	got, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, created.Add(2*time.Second), *got.CompletedAt)
	assert.Equal(t, "out/x.svg", got.Result.SVGPath)
}

func TestStore_TerminalStatesAreFinal(t *testing.T) {
	store := NewStore()
	now := time.Now()

	completed := uuid.New()
	_, err := store.Create(completed, generation.Options{}, now)
	require.NoError(t, err)
	require.NoError(t, store.Complete(completed, &generation.ImageResult{}, now))

	failed := uuid.New()
	_, err = store.Create(failed, generation.Options{}, now)
	require.NoError(t, err)
	require.NoError(t, store.Fail(failed, "boom", now))

	for _, id := range []uuid.UUID{completed, failed} {
		assert.ErrorIs(t, store.MarkProcessing(id, now), ErrInvalidTransition)
		assert.ErrorIs(t, store.Complete(id, &generation.ImageResult{}, now), ErrInvalidTransition)
		assert.ErrorIs(t, store.Fail(id, "again", now), ErrInvalidTransition)
	}

	got, err := store.Get(failed)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestStore_ProcessingOnlyFromPending(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	_, err := store.Create(id, generation.Options{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.MarkProcessing(id, time.Now()))
	assert.ErrorIs(t, store.MarkProcessing(id, time.Now()), ErrInvalidTransition)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	_, err := store.Create(id, generation.Options{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Complete(id, &generation.ImageResult{SVGPath: "a.svg"}, time.Now()))

	got, err := store.Get(id)
	require.NoError(t, err)
	got.Result.SVGPath = "mutated.svg"
	got.Status = StatusPending

	again, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "a.svg", again.Result.SVGPath)
	assert.Equal(t, StatusCompleted, again.Status)
}

func TestStore_UnknownAndDuplicate(t *testing.T) {
	store := NewStore()
	id := uuid.New()

	_, err := store.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, store.MarkProcessing(id, time.Now()), ErrTaskNotFound)
	assert.ErrorIs(t, store.Fail(id, "x", time.Now()), ErrTaskNotFound)

	_, err = store.Create(id, generation.Options{}, time.Now())
	require.NoError(t, err)
	_, err = store.Create(id, generation.Options{}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	store.Remove(id)
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
