package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
)

func newTestHandler() (*Handler, *Dispatcher, *mockStore) {
	store := newMockStore()
	d := NewDispatcher(store, nil, zerolog.Nop())
	return NewHandler(d), d, store
}

func contextFor(method, target, body string, userID int64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Role: auth.RolePatient}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_List(t *testing.T) {
	h, d, _ := newTestHandler()
	for i := 0; i < 3; i++ {
		_ = d.Notify(context.Background(), 4, "msg", KindAppointment)
	}
	_ = d.Notify(context.Background(), 9, "other user", KindAppointment)

	c, rec := contextFor(http.MethodGet, "/notifications?limit=2", "", 4)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []Notification `json:"data"`
		Total   int            `json:"total"`
		HasMore bool           `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Data) != 2 || !body.HasMore {
		t.Errorf("unexpected page %+v", body)
	}
}

func TestHandler_MarkRead(t *testing.T) {
	h, d, _ := newTestHandler()
	_ = d.Notify(context.Background(), 4, "msg", KindAppointment)

	c, rec := contextFor(http.MethodPatch, "/notifications/1/read", "", 4)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.MarkRead(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = contextFor(http.MethodPatch, "/notifications/1/read", "", 5)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.MarkRead(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user, got %v", err)
	}

	c, _ = contextFor(http.MethodPatch, "/notifications/abc/read", "", 4)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err = h.MarkRead(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %v", err)
	}
}

func TestHandler_LinkTelegram(t *testing.T) {
	h, _, store := newTestHandler()

	c, rec := contextFor(http.MethodPut, "/notifications/telegram", `{"chat_id": 123456}`, 4)
	if err := h.LinkTelegram(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if id, ok, _ := store.TelegramChatID(context.Background(), 4); !ok || id != 123456 {
		t.Errorf("expected chat 123456 linked, got %d %v", id, ok)
	}

	c, _ = contextFor(http.MethodPut, "/notifications/telegram", `{"chat_id": null}`, 4)
	if err := h.LinkTelegram(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.TelegramChatID(context.Background(), 4); ok {
		t.Error("expected chat unlinked")
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	h, _, _ := newTestHandler()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/notifications", nil), httptest.NewRecorder())
	err := h.List(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
