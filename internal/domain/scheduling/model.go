package scheduling

import (
	"time"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	DefaultCurrency      = "NPR"
	DefaultPaymentMethod = "esewa"

	kindAppointment = "appointment"
	kindPayment     = "payment"
)

// Availability is a weekly window. StartTime and EndTime are UTC instants on
// the storage reference date that encode a local time of day.
type Availability struct {
	ID          int64
	DoctorID    int64
	DayOfWeek   int
	StartTime   time.Time
	EndTime     time.Time
	IsRecurring bool
	CreatedAt   time.Time
}

// AvailabilityWindow is the local-time view of an Availability.
type AvailabilityWindow struct {
	ID          int64  `json:"id"`
	DoctorID    int64  `json:"doctor_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsRecurring bool   `json:"is_recurring"`
}

type WindowInput struct {
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsRecurring *bool  `json:"is_recurring,omitempty"`
}

type ConsultationFee struct {
	ID               int64     `json:"id"`
	DoctorID         int64     `json:"doctor_id"`
	ConsultationType string    `json:"consultation_type"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}

type FeeInput struct {
	ConsultationType string  `json:"consultation_type"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency,omitempty"`
}

// TimeSlot is a bookable interval. Date is the local civil date of the window
// that produced it, stored as UTC midnight. A retired slot is no longer backed
// by availability and never reopens until a window covers it again.
type TimeSlot struct {
	ID              int64
	DoctorID        int64
	Date            time.Time
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	IsAvailable     bool
	Retired         bool
}

// SlotView renders a TimeSlot in local time.
type SlotView struct {
	ID              int64  `json:"id"`
	DoctorID        int64  `json:"doctor_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	IsAvailable     bool   `json:"is_available"`
}

type Appointment struct {
	ID                 int64     `json:"id"`
	PatientID          int64     `json:"patient_id"`
	DoctorID           int64     `json:"doctor_id"`
	TimeSlotID         int64     `json:"time_slot_id"`
	ConsultationType   string    `json:"consultation_type"`
	Status             string    `json:"status"`
	Symptoms           *string   `json:"symptoms,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Filled from the referenced slot by the repository and rendered by the
	// service.
	Date      string    `json:"date,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	SlotDate  time.Time `json:"-"`
	SlotStart time.Time `json:"-"`
	SlotEnd   time.Time `json:"-"`
}

// IsTerminal reports whether the appointment can no longer change.
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}

type Payment struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	RefundAmount  *float64  `json:"refund_amount,omitempty"`
	RefundReason  *string   `json:"refund_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BookRequest struct {
	DoctorID         int64   `json:"doctor_id"`
	TimeSlotID       int64   `json:"time_slot_id"`
	ConsultationType string  `json:"consultation_type"`
	PaymentMethod    string  `json:"payment_method,omitempty"`
	Symptoms         *string `json:"symptoms,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

type BookingResult struct {
	Appointment *Appointment `json:"appointment"`
	Payment     *Payment     `json:"payment"`
	Slot        *SlotView    `json:"slot"`
}

type PaymentUpdate struct {
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

// ScheduleDay groups a doctor's booked appointments and open slots by date.
type ScheduleDay struct {
	Date         string         `json:"date"`
	Appointments []*Appointment `json:"appointments"`
	OpenSlots    []*SlotView    `json:"open_slots"`
}

// Actor is the caller of a workflow.
type Actor struct {
	UserID    int64
	Role      string
	DoctorID  *int64
	PatientID *int64
}

func ActorFromIdentity(id auth.Identity) Actor {
	return Actor{UserID: id.UserID, Role: id.Role, DoctorID: id.DoctorID, PatientID: id.PatientID}
}

func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

func (a Actor) isPatient(patientID int64) bool {
	return a.PatientID != nil && *a.PatientID == patientID
}

func (a Actor) isDoctor(doctorID int64) bool {
	return a.DoctorID != nil && *a.DoctorID == doctorID
}
