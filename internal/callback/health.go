package callback

import "net/http"

// ReadinessChecker reports whether the server is ready to receive the
// provider redirect.
type ReadinessChecker interface {
	IsReady() bool
}

type healthStatus struct {
	Status string `json:"status"`
}

// livenessHandler always returns 200 OK to indicate the process is alive.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, healthStatus{Status: "ok"}, http.StatusOK)
	}
}

// readinessHandler returns 200 OK while a login is waiting for its code, 503 otherwise.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if checker != nil && checker.IsReady() {
			writeJSON(r.Context(), w, healthStatus{Status: "ready"}, http.StatusOK)
			return
		}
		writeJSON(r.Context(), w, healthStatus{Status: "not ready"}, http.StatusServiceUnavailable)
	}
}
