// Package handler contains the HTTP handlers of the prompt API.
//
// Handlers parse requests, call the service, and write JSON responses. They
// hold no business rules: validation and normalization live in the service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/prompt-vault/internal/apperror"
	"github.com/sakif/prompt-vault/internal/query"
	"github.com/sakif/prompt-vault/internal/service"
)

// PromptHandler serves the prompt and tag endpoints.
type PromptHandler struct {
	service *service.PromptService
	logger  *slog.Logger
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(svc *service.PromptService, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{
		service: svc,
		logger:  logger,
	}
}

// HandleList returns the prompts matching the query string.
//
// HTTP: GET /api/prompts?search=&tag=&favorite=true
func (h *PromptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.service.List(r.Context(), query.FromValues(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

// HandleGet returns one prompt.
//
// HTTP: GET /api/prompts/{id}
func (h *PromptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := promptID(w, r)
	if !ok {
		return
	}

	prompt, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleCreate saves a new prompt.
//
// HTTP: POST /api/prompts
// REQUEST BODY: {"title": "...", "content": "...", "tags": "a, b" | ["a","b"], "notes": "...", "favorite": true}
func (h *PromptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		writeDecodeError(w, err)
		return
	}

	prompt, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

// HandleUpdate replaces the editable fields of a prompt.
//
// HTTP: PUT /api/prompts/{id}
func (h *PromptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := promptID(w, r)
	if !ok {
		return
	}

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		writeDecodeError(w, err)
		return
	}

	prompt, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleDelete removes a prompt.
//
// HTTP: DELETE /api/prompts/{id}
// RESPONSE: {"success": true}
func (h *PromptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := promptID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleCopy records that the prompt was copied to the clipboard.
//
// HTTP: POST /api/prompts/{id}/copy
func (h *PromptHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	id, ok := promptID(w, r)
	if !ok {
		return
	}

	prompt, err := h.service.RecordUsage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleToggleFavorite flips the favorite flag.
//
// HTTP: POST /api/prompts/{id}/favorite
func (h *PromptHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := promptID(w, r)
	if !ok {
		return
	}

	prompt, err := h.service.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleTags returns the tag aggregate.
//
// HTTP: GET /api/tags
// RESPONSE: [{"tag": "go", "count": 3}, ...]
func (h *PromptHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.TagCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// promptID parses the {id} URL parameter. On failure it writes a 400 and
// returns false.
func promptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, apperror.ValidationFailed("id", "prompt id must be an integer"))
		return 0, false
	}
	return id, true
}
