package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
)

// ParamsSaver persists parameter overrides for the next start.
type ParamsSaver interface {
	Save(p config.Params, fields []string) error
}

// ParamsHandler handles the generation parameter endpoints. Updates are
// saved for the next start; the running pipeline keeps its configuration.
type ParamsHandler struct {
	mu    sync.Mutex
	base  config.Config
	saved config.Params
	store ParamsSaver
}

// NewParamsHandler creates a ParamsHandler for the running configuration.
func NewParamsHandler(cfg *config.Config, store ParamsSaver) *ParamsHandler {
	return &ParamsHandler{
		base:  *cfg,
		saved: cfg.Params(),
		store: store,
	}
}

// Get handles GET /api/generation-params.
func (h *ParamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := h.response()
	h.mu.Unlock()
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Update handles PUT /api/generation-params. The body is a partial Params
// object; fields not present keep their saved values.
func (h *ParamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := shared.DecodeJSON(r, &body); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if len(body) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No parameters given")
		return
	}

	fields := make([]string, 0, len(body))
	for name := range body {
		if !config.IsParam(name) {
			shared.RespondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown parameter %s", name))
			return
		}
		fields = append(fields, name)
	}
	slices.Sort(fields)

	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.saved
	for _, name := range fields {
		// each value decodes into its own field of the copy
		raw, _ := json.Marshal(map[string]json.RawMessage{name: body[name]})
		if err := json.Unmarshal(raw, &p); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), err)
			return
		}
	}

	candidate := h.base.WithParams(p)
	if err := candidate.Validate(); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	if err := h.store.Save(p, fields); err != nil {
		HandleAPIError(w, r, err, "Failed to save parameters")
		return
	}
	h.saved = p

	logger.FromContext(r.Context()).Info("generation parameters saved", "fields", fields)
	shared.RespondWithJSON(w, r, http.StatusOK, h.response())
}

func (h *ParamsHandler) response() ParamsResponse {
	running := h.base.Params()
	return ParamsResponse{
		Params:          running,
		Saved:           h.saved,
		RestartRequired: h.saved != running,
	}
}
