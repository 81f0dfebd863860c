// Package health serves the liveness and readiness probes for the ingest
// server.
//
//   - /healthz answers 200 whenever the process can serve HTTP.
//   - /readyz answers 200 only while every registered [Checker] passes;
//     the stock checkers probe postgres connectivity and whether a model
//     provider is configured.
//
// Bodies are JSON: a "status" of "ok" or "fail" plus a per-checker "checks"
// map, so an orchestrator (or a person with curl) can see which dependency
// is the problem.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness probe. A postgres ping that takes
// longer than this counts as a failure.
const checkTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil while the
// dependency is usable and must respect context cancellation.
type Checker struct {
	// Name keys the probe's verdict in the /readyz response.
	Name string

	Check func(ctx context.Context) error
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The checker list is fixed at
// construction, so the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a [Handler] that runs the given checkers, in order, on every
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200. Liveness only claims the process is up.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz runs every checker under a [checkTimeout] deadline and answers 200
// only when all of them pass, 503 with per-checker verdicts otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	verdicts := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			verdicts[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		verdicts[c.Name] = "ok"
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, response{Status: "fail", Checks: verdicts})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Checks: verdicts})
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
