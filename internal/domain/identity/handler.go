package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
	"github.com/Sushasan11/Bespoke-Health-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/doctors", h.CreateDoctor)
	admin.POST("/patients", h.CreatePatient)
	admin.PATCH("/doctors/:id/verification", h.SetVerification)
}

// ProfileMiddleware attaches the caller's doctor or patient profile id when
// the token did not carry one.
func ProfileMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := auth.IdentityFromContext(c.Request().Context())
			if !ok {
				return next(c)
			}
			resolved, err := svc.ResolveProfiles(c.Request().Context(), id)
			if err != nil {
				return err
			}
			ctx := auth.WithIdentity(c.Request().Context(), resolved)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return err
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListDoctors shows approved doctors to everyone; admins may filter by any
// status with ?status=.
func (h *Handler) ListDoctors(c echo.Context) error {
	status := VerificationApproved
	if auth.RoleFromContext(c.Request().Context()) == auth.RoleAdmin {
		status = c.QueryParam("status")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), status, p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

type verificationRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetVerification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.SetVerificationStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}
