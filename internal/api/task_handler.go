package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
	"github.com/phrazzld/pixelforge/internal/task"
)

// TaskService is the task operations used by the HTTP layer.
type TaskService interface {
	Create(ctx context.Context, opts generation.Options) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (task.Task, error)
	Result(ctx context.Context, id uuid.UUID) (*generation.ImageResult, error)
	Stats() task.Stats
}

// TaskHandler handles generation task requests.
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With("component", "task_handler"),
	}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opts := req.ToOptions()
	id, err := h.tasks.Create(r.Context(), opts)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("task created",
		slog.String("task_id", id.String()),
		slog.String("type", string(opts.Type)))

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateTaskResponse{TaskID: id.String()})
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	t, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(t))
}

// Result handles GET /api/tasks/{id}/result.
func (h *TaskHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	result, err := h.tasks.Result(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := TaskResultResponse{
		TaskID:    id.String(),
		SVG:       result.SVG,
		Width:     result.Width,
		Height:    result.Height,
		Composite: result.Composite,
		SVGURL:    taskURL(id.String(), "svg"),
	}
	if result.RasterPath != "" {
		resp.RasterURL = taskURL(id.String(), "raster")
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// SVG handles GET /api/tasks/{id}/svg.
func (h *TaskHandler) SVG(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, func(res *generation.ImageResult) string { return res.SVGPath })
}

// Raster handles GET /api/tasks/{id}/raster.
func (h *TaskHandler) Raster(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, func(res *generation.ImageResult) string { return res.RasterPath })
}

func (h *TaskHandler) serveArtifact(
	w http.ResponseWriter,
	r *http.Request,
	pathOf func(*generation.ImageResult) string,
) {
	id, ok := handleTaskID(w, r)
	if !ok {
		return
	}

	result, err := h.tasks.Result(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	path := pathOf(result)
	if path == "" {
		HandleAPIError(w, r, task.ErrResultNotReady, "Artifact not available")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			HandleAPIError(w, r, task.ErrResultNotReady, "Artifact not available")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read artifact", err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read artifact", err)
		return
	}

	w.Header().Set("Content-Type", contentType(path))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// Stats handles GET /api/tasks/status and the public GET /api/status.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Status: "ok",
		Tasks:  h.tasks.Stats(),
	})
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
