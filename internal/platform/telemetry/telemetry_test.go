package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingAndCancellationCounters(t *testing.T) {
	m := New()
	m.BookingAttempt("success")
	m.BookingAttempt("success")
	m.BookingAttempt("slot_unavailable")
	m.Cancellation("patient")

	if got := testutil.ToFloat64(m.bookings.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful bookings, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookings.WithLabelValues("slot_unavailable")); got != 1 {
		t.Errorf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(m.cancellations.WithLabelValues("patient")); got != 1 {
		t.Errorf("expected 1 cancellation, got %v", got)
	}
}

func TestSlotsGenerated_IgnoresZero(t *testing.T) {
	m := New()
	m.SlotsGenerated(0)
	m.SlotsGenerated(8)
	if got := testutil.ToFloat64(m.slotsGenerated); got != 8 {
		t.Errorf("expected 8, got %v", got)
	}
}

func TestNotificationSent(t *testing.T) {
	m := New()
	m.NotificationSent("telegram", nil)
	m.NotificationSent("telegram", errors.New("chat not found"))
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("telegram", "error")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/doctors/:id/time-slots", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "taken")
	})

	for _, path := range []string{"/api/v1/doctors/1/time-slots", "/api/v1/doctors/2/time-slots", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if n := testutil.CollectAndCount(m.httpDuration); n != 2 {
		t.Errorf("expected 2 label sets (one per route/status), got %d", n)
	}
	if got := testutil.ToFloat64(m.activeRequests); got != 0 {
		t.Errorf("active requests should settle at 0, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.BookingAttempt("success")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `telemed_bookings_total{result="success"} 1`) {
		t.Errorf("expected bookings counter in output")
	}
}
