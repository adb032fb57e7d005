package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
)

// PromptStore is the prompt template operations used by the HTTP layer.
type PromptStore interface {
	Names() []string
	Source(name string) (string, error)
	Update(name, text string) error
}

// PromptsHandler handles prompt template requests. Updates apply to the
// next model request.
type PromptsHandler struct {
	prompts PromptStore
}

// NewPromptsHandler creates a new PromptsHandler.
func NewPromptsHandler(prompts PromptStore) *PromptsHandler {
	return &PromptsHandler{prompts: prompts}
}

// List handles GET /api/prompts.
func (h *PromptsHandler) List(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, PromptListResponse{Prompts: h.prompts.Names()})
}

// Get handles GET /api/prompts/{name}.
func (h *PromptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	content, err := h.prompts.Source(name)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PromptResponse{Name: name, Content: content})
}

// Update handles PUT /api/prompts/{name}.
func (h *PromptsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.prompts.Update(name, req.Content); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContext(r.Context()).Info("prompt template updated", "name", name, "length", len(req.Content))
	shared.RespondWithJSON(w, r, http.StatusOK, PromptResponse{Name: name, Content: req.Content})
}
