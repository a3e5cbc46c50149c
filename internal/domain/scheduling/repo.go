package scheduling

import (
	"context"
	"time"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/identity"
)

type AvailabilityRepository interface {
	DeleteByDoctor(ctx context.Context, doctorID int64) error
	Create(ctx context.Context, a *Availability) error
	ListByDoctor(ctx context.Context, doctorID int64) ([]*Availability, error)
	ListRecurringByDoctor(ctx context.Context, doctorID int64) ([]*Availability, error)
	DoctorIDs(ctx context.Context) ([]int64, error)
	// LockDoctor serialises availability replacement and slot generation for
	// one doctor until the surrounding transaction ends.
	LockDoctor(ctx context.Context, doctorID int64) error
}

type FeeRepository interface {
	DeleteByDoctor(ctx context.Context, doctorID int64) error
	Create(ctx context.Context, f *ConsultationFee) error
	ListByDoctor(ctx context.Context, doctorID int64) ([]*ConsultationFee, error)
	Get(ctx context.Context, doctorID int64, consultationType string) (*ConsultationFee, error)
}

type SlotRepository interface {
	// RetireAll clears the doctor's slots ahead of an availability replace.
	// Slots no appointment points at are deleted; the rest are retired and
	// closed.
	RetireAll(ctx context.Context, doctorID int64) (int64, error)
	// InsertBatch writes slots and returns the rows actually written. An
	// existing (doctor_id, date, start_time) row is skipped unless it is a
	// retired slot of the same length, which is revived and reopened when no
	// live appointment holds it.
	InsertBatch(ctx context.Context, slots []*TimeSlot) ([]*TimeSlot, error)
	GetByID(ctx context.Context, id int64) (*TimeSlot, error)
	// Reserve flips an open slot to unavailable. It returns false when the
	// slot was already taken or belongs to another doctor.
	Reserve(ctx context.Context, id, doctorID int64) (bool, error)
	// Release reopens a slot unless it has been retired.
	Release(ctx context.Context, id int64) error
	ListAvailable(ctx context.Context, doctorID int64, from time.Time, date *time.Time) ([]*TimeSlot, error)
	ListOpenBetween(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]*TimeSlot, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// Cancel moves a pending or confirmed appointment to cancelled.
	Cancel(ctx context.Context, id int64, reason string) (bool, error)
	// Complete moves a confirmed appointment to completed.
	Complete(ctx context.Context, id int64, notes *string) (bool, error)
	// Confirm moves a pending appointment to confirmed.
	Confirm(ctx context.Context, id int64) (bool, error)
	ListByPatient(ctx context.Context, patientID int64, status string, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID int64, status string, limit, offset int) ([]*Appointment, int, error)
	ListBookedBetween(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]*Appointment, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByAppointment(ctx context.Context, appointmentID int64) (*Payment, error)
	// SetOutcome moves a pending payment to status.
	SetOutcome(ctx context.Context, id int64, status string, transactionID *string) (bool, error)
	// Refund marks the appointment's completed payment refunded in full.
	Refund(ctx context.Context, appointmentID int64, reason string) (bool, error)
}

// Directory resolves doctor and patient profiles.
type Directory interface {
	GetDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
	GetPatient(ctx context.Context, id int64) (*identity.Patient, error)
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers a message to a user. Failures are logged by the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message, kind string) error
}

type Metrics interface {
	BookingAttempt(result string)
	Cancellation(by string)
	SlotsGenerated(n int)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, string, string) error { return nil }

type nopMetrics struct{}

func (nopMetrics) BookingAttempt(string) {}
func (nopMetrics) Cancellation(string)   {}
func (nopMetrics) SlotsGenerated(int)    {}
