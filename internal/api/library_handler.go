package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/library"
)

// LibraryService is the element library operations used by the HTTP layer.
type LibraryService interface {
	List(ctx context.Context) ([]generation.LibraryEntry, error)
	Add(ctx context.Context, req library.AddRequest) (generation.LibraryEntry, error)
}

// LibraryHandler handles element library requests.
type LibraryHandler struct {
	library LibraryService
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(library LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// List handles GET /api/library.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.library.List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list library")
		return
	}
	if entries == nil {
		entries = []generation.LibraryEntry{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, LibraryResponse{Elements: entries})
}

// Add handles POST /api/library. Generation runs synchronously, so the
// request lasts as long as one model call chain.
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddElementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.library.Add(r.Context(), library.AddRequest{
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, entry)
}
