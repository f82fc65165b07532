package httpx

import "net/http"

// healthHandler answers readiness and liveness probes. HEAD gets headers only.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	// A write failure means the probe connection is gone; nothing to do.
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
