package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	t.Run("counts requests and outcomes", func(t *testing.T) {
		r := NewRecorder()
		r.Request("query")
		r.Request("query")
		r.Outcome("query", "ok")
		r.Outcome("selection", "fetch_failed")

		if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("query")); got != 2 {
			t.Errorf("expected 2 query requests, got %v", got)
		}
		if got := testutil.ToFloat64(r.outcomesTotal.WithLabelValues("selection", "fetch_failed")); got != 1 {
			t.Errorf("expected 1 fetch_failed outcome, got %v", got)
		}
	})

	t.Run("delivered bytes ignore non-positive sizes", func(t *testing.T) {
		r := NewRecorder()
		r.Delivered(100)
		r.Delivered(-5)
		r.Delivered(0)
		if got := testutil.ToFloat64(r.deliveredBytes); got != 100 {
			t.Errorf("expected 100 bytes, got %v", got)
		}
	})

	t.Run("recorders are independent", func(t *testing.T) {
		a, b := NewRecorder(), NewRecorder()
		a.Request("query")
		if got := testutil.ToFloat64(b.requestsTotal.WithLabelValues("query")); got != 0 {
			t.Errorf("expected separate registries, got %v", got)
		}
	})

	t.Run("Handler exposes series", func(t *testing.T) {
		r := NewRecorder()
		r.Stage("fetch", 2*time.Second)
		r.Sessions(3)
		r.HTTPRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

		srv := httptest.NewServer(r.Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, want := range []string{
			`tunebot_stage_duration_seconds_count{stage="fetch"} 1`,
			`tunebot_sessions 3`,
			`tunebot_http_requests_total{method="GET",path="/healthz",status="200"} 1`,
			`go_goroutines`,
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("expected %q in metrics output", want)
			}
		}
	})
}
