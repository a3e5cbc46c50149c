package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
	"github.com/Sushasan11/Bespoke-Health-sub001/pkg/pagination"
)

type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
	g.PATCH("/notifications/:id/read", h.MarkRead)
	g.PUT("/notifications/telegram", h.LinkTelegram)
}

func (h *Handler) List(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	p := pagination.FromContext(c)
	unread := c.QueryParam("unread") == "true"

	items, total, err := h.dispatcher.List(c.Request().Context(), id.UserID, unread, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	nid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || nid <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := h.dispatcher.MarkRead(c.Request().Context(), id.UserID, nid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type telegramRequest struct {
	ChatID *int64 `json:"chat_id"`
}

func (h *Handler) LinkTelegram(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req telegramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.dispatcher.LinkTelegram(c.Request().Context(), id.UserID, req.ChatID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"linked": req.ChatID != nil})
}
