package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ObserveHTTP("POST", "/v1/validate", 200, 0.001)
	ObserveValidation(false, 0.0002)
	IncIssue("SELF_INTERSECTION", "error")
	IncDetectorTier("")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"http_requests_total", "ringguard_validations_total", "ringguard_issues_total", `tier="none"`} {
		if !strings.Contains(body, name) {
			t.Fatalf("payload missing %s; got:\n%s", name, body)
		}
	}
}

func TestOverlapDecisionLabels(t *testing.T) {
	before := testutil.ToFloat64(overlapDecisionsTotal.WithLabelValues("shrunk", "true"))
	IncOverlapDecision("shrunk", true)
	IncOverlapDecision("", false)
	if got := testutil.ToFloat64(overlapDecisionsTotal.WithLabelValues("shrunk", "true")); got != before+1 {
		t.Fatalf("shrunk/true=%g want %g", got, before+1)
	}
	if got := testutil.ToFloat64(overlapDecisionsTotal.WithLabelValues("none", "false")); got < 1 {
		t.Fatalf("kept decisions must be labelled none")
	}
}

func TestCacheAndAuditCounters(t *testing.T) {
	before := testutil.ToFloat64(cacheOpsTotal.WithLabelValues("memo", "get", "hit"))
	ObserveCacheOp("memo", "get", "hit")
	if got := testutil.ToFloat64(cacheOpsTotal.WithLabelValues("memo", "get", "hit")); got != before+1 {
		t.Fatalf("memo hits=%g", got)
	}
	IncAudit("queued")
	IncStaleRequest()
	if testutil.ToFloat64(staleRequestsTotal) < 1 {
		t.Fatalf("stale counter not incremented")
	}
	if n := len(Collectors()); n != 11 {
		t.Fatalf("collectors=%d", n)
	}
}
