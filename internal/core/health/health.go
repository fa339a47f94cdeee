package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Pinger is an optional backend (verdict cache) checked for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness reports every configured backend. The engine works without them,
// so the status is "degraded" rather than a failure when one is down.
func Readiness(checks map[string]Pinger, timeout time.Duration) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status   string            `json:"status"`
			Backends map[string]string `json:"backends,omitempty"`
		}
		out := resp{Status: "ready"}
		if len(names) > 0 {
			out.Backends = make(map[string]string, len(names))
		}
		for _, n := range names {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := checks[n].Ping(ctx)
			cancel()
			if err != nil {
				out.Status = "degraded"
				out.Backends[n] = err.Error()
				continue
			}
			out.Backends[n] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
