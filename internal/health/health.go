// Package health serves the dictation daemon's liveness and readiness
// probes on the metrics listener.
//
// /healthz answers 200 whenever the process can serve HTTP at all.
// /readyz runs the registered [Checker] funcs (is the dictionary store
// answering queries, is a typing tool still installed) and answers 503
// with a per-check breakdown when any of them fails.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds each readiness check; a hung store must not hang the
// probe.
const checkTimeout = 5 * time.Second

// Checker probes one dependency of the daemon.
type Checker struct {
	// Name labels the check in the /readyz response ("dictionary",
	// "injector").
	Name string

	// Check returns nil when the dependency is usable. It must honor ctx
	// cancellation.
	Check func(ctx context.Context) error
}

// report is the response body of both endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The checker list is fixed at
// construction, so a Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a [Handler] running the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always answers 200: a process that got this far is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz answers 200 when every checker passes, 503 otherwise, with the
// individual results in the body either way.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.runChecks(r.Context())

	rep := report{Status: "ok", Checks: checks}
	code := http.StatusOK
	if !ready {
		rep.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	respond(w, code, rep)
}

// runChecks evaluates the checkers sequentially, each under its own
// timeout derived from ctx.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.checkers))
	ready := true
	for _, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(cctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}
	return checks, ready
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
