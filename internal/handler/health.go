package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// PromptCounter is the slice of the service the health check needs.
type PromptCounter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger checks the database connection. *sqlite.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the store is reachable.
//
// HEALTH CHECK FLOW:
//  1. Ping the database: is the connection alive at all?
//  2. Count prompts: can we actually read the table?
//
// Either failure answers 500 {"status":"unavailable"} so a load balancer or
// uptime monitor can take the instance out of rotation.
type HealthHandler struct {
	db      Pinger
	counter PromptCounter
	logger  *slog.Logger
}

func NewHealthHandler(db Pinger, counter PromptCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, counter: counter, logger: logger}
}

type healthResponse struct {
	Status  string `json:"status"`
	Prompts int    `json:"prompts"`
}

// HandleHealth answers GET /api/health with {"status":"ok","prompts":N}.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check ping failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "unavailable"})
		return
	}

	n, err := h.counter.Count(r.Context())
	if err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Prompts: n})
}
