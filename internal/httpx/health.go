package httpx

import (
	"context"
	"net/http"
	"time"
)

// Check is one dependency probe. A nil Probe is treated as healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type checkStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func run(ctx context.Context, checks []Check, timeout time.Duration) ([]checkStatus, int) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out := make([]checkStatus, 0, len(checks))
	ok := 0
	for _, c := range checks {
		st := checkStatus{Name: c.Name, OK: true}
		if c.Probe != nil {
			if err := c.Probe(ctx); err != nil {
				st.OK = false
				st.Error = err.Error()
			}
		}
		if st.OK {
			ok++
		}
		out = append(out, st)
	}
	return out, ok
}

// Ready reports whether every check passes.
func Ready(ctx context.Context, checks []Check) bool {
	_, ok := run(ctx, checks, 2*time.Second)
	return ok == len(checks)
}

// NewHealthHandler always answers 200 with "ok", "degraded" or "down".
func NewHealthHandler(checks ...Check) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deps, ok := run(r.Context(), checks, 2*time.Second)
		status := "ok"
		switch {
		case ok == len(checks):
		case ok > 0:
			status = "degraded"
		default:
			status = "down"
		}
		WriteJSON(w, http.StatusOK, struct {
			Status string        `json:"status"`
			Deps   []checkStatus `json:"deps"`
		}{status, deps})
	})
}

// NewReadyHandler answers 200 only when every dependency is up, 503 otherwise.
func NewReadyHandler(checks ...Check) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deps, ok := run(r.Context(), checks, 2*time.Second)
		ready := ok == len(checks)
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, struct {
			Ready bool          `json:"ready"`
			Deps  []checkStatus `json:"deps"`
		}{ready, deps})
	})
}
