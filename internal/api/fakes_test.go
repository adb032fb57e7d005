package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/library"
	"github.com/phrazzld/pixelforge/internal/task"
	"github.com/stretchr/testify/require"
)

// fakeTaskService is an in-memory TaskService.
type fakeTaskService struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]task.Task
	createErr error
	created   []generation.Options
	stats     task.Stats
}

func newFakeTaskService() *fakeTaskService {
	return &fakeTaskService{tasks: make(map[uuid.UUID]task.Task)}
}

func (f *fakeTaskService) Create(_ context.Context, opts generation.Options) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	if err := opts.Validate(); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	f.created = append(f.created, opts)
	f.tasks[id] = task.Task{ID: id, Options: opts, Status: task.StatusPending}
	return id, nil
}

func (f *fakeTaskService) Get(_ context.Context, id uuid.UUID) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return task.Task{}, task.ErrTaskNotFound
	}
	return t, nil
}

func (f *fakeTaskService) Result(ctx context.Context, id uuid.UUID) (*generation.ImageResult, error) {
	t, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusCompleted {
		return nil, task.ErrResultNotReady
	}
	return t.Result, nil
}

func (f *fakeTaskService) Stats() task.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeTaskService) put(t task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
}

// fakeLibraryService is an in-memory LibraryService.
type fakeLibraryService struct {
	entries []generation.LibraryEntry
	listErr error
	addErr  error
	added   []library.AddRequest
}

func (f *fakeLibraryService) List(context.Context) ([]generation.LibraryEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeLibraryService) Add(_ context.Context, req library.AddRequest) (generation.LibraryEntry, error) {
	if f.addErr != nil {
		return generation.LibraryEntry{}, f.addErr
	}
	f.added = append(f.added, req)
	return generation.LibraryEntry{
		ID:          "door_1",
		Type:        generation.ElementDoor,
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
		Style:       "pixelart",
	}, nil
}

// newTaskRouter mounts the task routes the way the server does.
func newTaskRouter(h *TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/tasks", h.Create)
	r.Get("/api/tasks/status", h.Stats)
	r.Get("/api/tasks/{id}", h.Get)
	r.Get("/api/tasks/{id}/result", h.Result)
	r.Get("/api/tasks/{id}/svg", h.SVG)
	r.Get("/api/tasks/{id}/raster", h.Raster)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v), "body: %s", rr.Body.String())
}
