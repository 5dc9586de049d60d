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

func TestInstrument_LabelsByPattern(t *testing.T) {
	m := New("test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/solutions/{slug}/versions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/solutions/some-slug/versions", nil)
	rr := httptest.NewRecorder()
	m.Instrument(mux).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /api/solutions/{slug}/versions", "418"))
	if got != 1 {
		t.Fatalf("expected 1 request recorded, got %v", got)
	}
	if v := testutil.ToFloat64(m.httpInFlight); v != 0 {
		t.Fatalf("expected no requests in flight, got %v", v)
	}
}

func TestInstrument_Unmatched(t *testing.T) {
	m := New("test")
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	m.Instrument(http.NewServeMux()).ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched route label, got %v", got)
	}
}

func TestObserveRPC(t *testing.T) {
	m := New("test")
	m.ObserveRPC("list_solutions", 0, 10*time.Millisecond)
	m.ObserveRPC("list_solutions", -32602, time.Millisecond)
	m.ObserveRPC("list_solutions", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.rpcRequests.WithLabelValues("list_solutions", "0")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.rpcRequests.WithLabelValues("list_solutions", "-32602")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRPC("x", 0, time.Second)
	m.ObserveAuth(AuthOK)

	called := false
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected wrapped handler to run")
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New("1.2.3")
	m.ObserveAuth(AuthRejected)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)

	for _, want := range []string{
		`build_info{version="1.2.3"} 1`,
		`mcp_token_auth_total{result="rejected"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in exposition", want)
		}
	}
}
