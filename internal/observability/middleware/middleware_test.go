package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestAndTraceKeepsIncomingIDs(t *testing.T) {
	var gotReq, gotTrace string
	h := WithRequestAndTrace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = RequestIDFromContext(r.Context())
		gotTrace = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Trace-ID", "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if gotReq != "req-1" || gotTrace != "trace-1" {
		t.Fatalf("ids not propagated: %q %q", gotReq, gotTrace)
	}
	if rr.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("response missing request id header")
	}
}

func TestWithRequestAndTraceGeneratesIDs(t *testing.T) {
	var gotReq string
	h := WithRequestAndTrace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = RequestIDFromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if gotReq == "" || rr.Header().Get("X-Request-ID") != gotReq {
		t.Fatalf("expected generated request id to be echoed, got %q / %q", gotReq, rr.Header().Get("X-Request-ID"))
	}
}

func TestWithMetricsRecordsStatus(t *testing.T) {
	h := WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", rr.Code)
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequestIDFromContext(req.Context()) != "" || TraceIDFromContext(req.Context()) != "" {
		t.Fatalf("expected empty ids on bare context")
	}
}
