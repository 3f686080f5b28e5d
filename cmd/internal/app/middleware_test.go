package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWithRequestObservability_RecordsStatusAndMetrics(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/short/{code}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	h := WithRequestObservability(mux, log, metrics)

	for _, code := range []string{"abc123", "def456"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/short/"+code, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	}

	// Both requests collapse onto the route pattern label.
	got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/short/{code}", "404"))
	if got != 2 {
		t.Fatalf("requests_total = %v, want 2", got)
	}
}

func TestWithRequestObservability_UnmatchedRoute(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := WithRequestObservability(http.NewServeMux(), log, metrics)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "404"))
	if got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}
}

func TestLoggingResponseWriter_DefaultStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	h := WithRequestObservability(mux, log, metrics)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/ok", "200"))
	if got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}
}
