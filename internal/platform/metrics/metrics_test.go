package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveRegistration(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRegistration("success")
	m.ObserveRegistration("success")
	m.ObserveRegistration("server_failure")

	if got := testutil.ToFloat64(m.Registrations.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.Registrations.WithLabelValues("server_failure")); got != 1 {
		t.Errorf("expected 1 server failure, got %v", got)
	}
}

func TestMetrics_ObservePrint(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObservePrint(nil)
	m.ObservePrint(errors.New("sink down"))

	if got := testutil.ToFloat64(m.CardsPrinted.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.CardsPrinted.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRegistration("success")
	m.ObserveRegistryCall("create_patient", time.Now(), nil)
	m.ObservePrint(nil)
	m.SetActiveSessions(3)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRegistryCall("list_attribute_types", time.Now(), nil)
	m.SetActiveSessions(2)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Handler(reg)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "intake_registry_request_duration_seconds") {
		t.Error("expected registry histogram in output")
	}
	if !strings.Contains(body, "intake_active_sessions 2") {
		t.Errorf("expected active sessions gauge, got:\n%s", body)
	}
}
