package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool and *sql.DB wrappers
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	version string
	timeout time.Duration
}

func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		timeout: 5 * time.Second,
	}
}

type HealthResponse struct {
	Status   string                   `json:"status" msgpack:"status"`
	Version  string                   `json:"version,omitempty" msgpack:"version,omitempty"`
	Services map[string]ServiceHealth `json:"services,omitempty" msgpack:"services,omitempty"`
}

type ServiceHealth struct {
	Status    string  `json:"status" msgpack:"status"`
	LatencyMs int64   `json:"latency_ms" msgpack:"latencyMs"`
	Error     *string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Handle reports process liveness and database reachability. An unreachable
// database answers 503.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: h.version,
	}

	if h.db != nil {
		db := h.checkDatabase(r.Context())
		response.Services = map[string]ServiceHealth{"database": db}
		if db.Status != "healthy" {
			response.Status = "unhealthy"
			respond(w, r, response, http.StatusServiceUnavailable)
			return
		}
	}

	respond(w, r, response, http.StatusOK)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.db.Ping(checkCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{Status: "unhealthy", LatencyMs: latency, Error: &errMsg}
	}
	return ServiceHealth{Status: "healthy", LatencyMs: latency}
}
