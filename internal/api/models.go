package api

import (
	"strings"
	"time"

	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/task"
)

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// LoginResponse defines the successful response for the login endpoint.
type LoginResponse struct {
	// Token is the JWT used for API authorization
	Token string `json:"token"`

	// ExpiresAt is the RFC 3339 timestamp when the token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CreateTaskRequest defines the payload for queuing a generation task.
// Type is kept as a plain string so that unknown types can be coerced
// rather than rejected.
type CreateTaskRequest struct {
	Description string               `json:"description"               validate:"required,max=4000"`
	Accents     string               `json:"accents,omitempty"         validate:"max=1000"`
	Type        string               `json:"type,omitempty"`
	Composite   *bool                `json:"composite,omitempty"`
	UseLibrary  bool                 `json:"useLibrary,omitempty"`
	SceneView   string               `json:"sceneView,omitempty"       validate:"omitempty,oneof=default first_person"`
	MapBiome    string               `json:"mapBiome,omitempty"        validate:"max=200"`
	MapEdges    *generation.MapEdges `json:"mapEdges,omitempty"`

	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	PixelScale      int    `json:"pixelScale,omitempty"`
	OutputFormat    string `json:"outputFormat,omitempty"`
	Quality         int    `json:"quality,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// ToOptions converts the request into generation options. Unknown or empty
// types become the default scene type. The scene view only applies to scenes
// and the map fields only to maps.
func (r CreateTaskRequest) ToOptions() generation.Options {
	t, err := generation.ParseGenerationType(r.Type)
	if err != nil {
		t = generation.DefaultGenerationType
	}

	opts := generation.Options{
		Description:     strings.TrimSpace(r.Description),
		Accents:         strings.TrimSpace(r.Accents),
		Type:            t,
		Composite:       r.Composite,
		UseLibrary:      r.UseLibrary,
		Width:           r.Width,
		Height:          r.Height,
		PixelScale:      r.PixelScale,
		OutputFormat:    strings.ToLower(r.OutputFormat),
		Quality:         r.Quality,
		BackgroundColor: r.BackgroundColor,
	}
	switch t {
	case generation.TypePlotView:
		opts.SceneView = generation.SceneView(r.SceneView)
	case generation.TypePlotMap:
		opts.MapBiome = strings.TrimSpace(r.MapBiome)
		opts.MapEdges = r.MapEdges
	}
	return opts
}

// CreateTaskResponse is returned when a task has been queued.
type CreateTaskResponse struct {
	TaskID string `json:"taskId"`
}

// TaskResponse describes the state of a task.
type TaskResponse struct {
	TaskID      string     `json:"taskId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	SVGURL      string     `json:"svgUrl,omitempty"`
	RasterURL   string     `json:"rasterUrl,omitempty"`
}

// TaskResultResponse carries the artifacts of a completed task.
type TaskResultResponse struct {
	TaskID    string `json:"taskId"`
	SVG       string `json:"svg"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Composite bool   `json:"composite"`
	SVGURL    string `json:"svgUrl"`
	RasterURL string `json:"rasterUrl"`
}

// StatusResponse reports the job-level load of the server.
type StatusResponse struct {
	Status string     `json:"status"`
	Tasks  task.Stats `json:"tasks"`
}

// AddElementRequest defines the payload for adding a library element.
type AddElementRequest struct {
	Description string `json:"description"      validate:"required,max=2000"`
	Width       int    `json:"width,omitempty"  validate:"omitempty,gte=64,lte=1024"`
	Height      int    `json:"height,omitempty" validate:"omitempty,gte=64,lte=1024"`
}

// LibraryResponse lists the library elements.
type LibraryResponse struct {
	Elements []generation.LibraryEntry `json:"elements"`
}

// ParamsResponse reports the generation parameters. Params are the values
// the server runs with; Saved are the values it will run with after a restart.
type ParamsResponse struct {
	Params          config.Params `json:"params"`
	Saved           config.Params `json:"saved"`
	RestartRequired bool          `json:"restartRequired"`
}

// PromptListResponse lists the prompt template names.
type PromptListResponse struct {
	Prompts []string `json:"prompts"`
}

// PromptResponse carries the text of one prompt template.
type PromptResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UpdatePromptRequest defines the payload for replacing a prompt template.
type UpdatePromptRequest struct {
	Content string `json:"content" validate:"required,max=65536"`
}

func taskURL(id, artifact string) string {
	return "/api/tasks/" + id + "/" + artifact
}

// newTaskResponse builds the API view of a task. Failure messages are
// reduced to a safe form before they leave the server.
func newTaskResponse(t task.Task) TaskResponse {
	id := t.ID.String()
	resp := TaskResponse{
		TaskID:      id,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Status == task.StatusFailed {
		resp.Error = safeTaskError(t.Error)
	}
	if t.Status == task.StatusCompleted && t.Result != nil {
		resp.SVGURL = taskURL(id, "svg")
		if t.Result.RasterPath != "" {
			resp.RasterURL = taskURL(id, "raster")
		}
	}
	return resp
}
