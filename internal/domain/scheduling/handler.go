package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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
	api.GET("/doctors/:id/time-slots", h.ListTimeSlots)

	avail := api.Group("/availability", auth.RequireRole(auth.RoleDoctor))
	avail.POST("/set", h.SetAvailability)
	avail.GET("/me", h.GetAvailability)
	avail.POST("/fees", h.SetFees)
	avail.GET("/fees", h.GetFees)
	avail.GET("/schedule", h.GetSchedule)

	appts := api.Group("/appointments")
	appts.POST("/book", h.Book, auth.RequireRole(auth.RolePatient))
	appts.GET("/me", h.ListMine, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	appts.GET("/:id", h.GetAppointment)
	appts.GET("/:id/payment", h.GetPayment)
	appts.PUT("/:id/cancel", h.Cancel, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	appts.PATCH("/:id/cancel", h.Cancel, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	appts.PATCH("/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))

	api.POST("/payments/:id/status", h.ApplyPaymentStatus, auth.RequireRole(auth.RoleAdmin))
}

// toHTTPError maps workflow errors to responses. Anything unmapped is
// returned as is and becomes a 500.
func toHTTPError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnavailableDoctor),
		errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidConsultationType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProfileRequired), errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return err
}

func actorFrom(c echo.Context) (Actor, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return ActorFromIdentity(id), nil
}

func doctorFrom(c echo.Context) (int64, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return 0, err
	}
	if actor.DoctorID == nil {
		return 0, toHTTPError(ErrProfileRequired)
	}
	return *actor.DoctorID, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) parseDate(field, value string) (time.Time, error) {
	d, err := h.svc.Zone().ParseDate(value)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+": "+err.Error())
	}
	return d, nil
}

// -- Slots --

type timeSlotsResponse struct {
	DoctorID int64              `json:"doctor_id"`
	Date     string             `json:"date,omitempty"`
	Slots    []*SlotView        `json:"slots"`
	Fees     []*ConsultationFee `json:"fees"`
}

func (h *Handler) ListTimeSlots(c echo.Context) error {
	doctorID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := h.parseDate("date", raw)
		if err != nil {
			return err
		}
		date = &d
	}

	ctx := c.Request().Context()
	slots, err := h.svc.ListAvailableSlots(ctx, doctorID, date)
	if err != nil {
		return toHTTPError(err)
	}
	fees, err := h.svc.GetFees(ctx, doctorID)
	if err != nil {
		return toHTTPError(err)
	}
	if fees == nil {
		fees = []*ConsultationFee{}
	}
	return c.JSON(http.StatusOK, timeSlotsResponse{
		DoctorID: doctorID,
		Date:     c.QueryParam("date"),
		Slots:    slots,
		Fees:     fees,
	})
}

// -- Availability --

// setAvailabilityRequest keeps the list as a pointer so a body without the
// key is rejected instead of clearing every window.
type setAvailabilityRequest struct {
	Availabilities *[]WindowInput `json:"availabilities"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	doctorID, err := doctorFrom(c)
	if err != nil {
		return err
	}
	var req setAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Availabilities == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "availabilities is required")
	}
	windows, err := h.svc.SetAvailability(c.Request().Context(), doctorID, *req.Availabilities)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"availabilities": windows})
}

func (h *Handler) GetAvailability(c echo.Context) error {
	doctorID, err := doctorFrom(c)
	if err != nil {
		return err
	}
	windows, err := h.svc.GetAvailability(c.Request().Context(), doctorID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"availabilities": windows})
}

type setFeesRequest struct {
	Fees []FeeInput `json:"fees"`
}

func (h *Handler) SetFees(c echo.Context) error {
	doctorID, err := doctorFrom(c)
	if err != nil {
		return err
	}
	var req setFeesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	fees, err := h.svc.SetFees(c.Request().Context(), doctorID, req.Fees)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"fees": fees})
}

func (h *Handler) GetFees(c echo.Context) error {
	doctorID, err := doctorFrom(c)
	if err != nil {
		return err
	}
	fees, err := h.svc.GetFees(c.Request().Context(), doctorID)
	if err != nil {
		return toHTTPError(err)
	}
	if fees == nil {
		fees = []*ConsultationFee{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"fees": fees})
}

func (h *Handler) GetSchedule(c echo.Context) error {
	doctorID, err := doctorFrom(c)
	if err != nil {
		return err
	}
	if c.QueryParam("start_date") == "" || c.QueryParam("end_date") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date and end_date are required")
	}
	start, err := h.parseDate("start_date", c.QueryParam("start_date"))
	if err != nil {
		return err
	}
	end, err := h.parseDate("end_date", c.QueryParam("end_date"))
	if err != nil {
		return err
	}
	days, err := h.svc.ListDoctorSchedule(c.Request().Context(), doctorID, start, end)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"schedule": days})
}

// -- Appointments --

func (h *Handler) Book(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.BookAppointment(c.Request().Context(), actor, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListMyAppointments(c.Request().Context(), actor, c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) GetPayment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPayment(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type cancelRequest struct {
	CancellationReason string `json:"cancellation_reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.CancelAppointment(c.Request().Context(), actor, id, req.CancellationReason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

type completeRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) Complete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.CompleteAppointment(c.Request().Context(), actor, id, req.Notes)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// -- Payments --

func (h *Handler) ApplyPaymentStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req PaymentUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.ApplyPaymentStatus(c.Request().Context(), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}
