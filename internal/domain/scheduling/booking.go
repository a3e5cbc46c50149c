package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	bookResultSuccess     = "success"
	bookResultUnavailable = "slot_unavailable"
	bookResultRejected    = "rejected"
	bookResultError       = "error"
)

// BookAppointment reserves a slot for the calling patient and opens a pending
// appointment with a pending payment for the consultation fee.
func (s *Service) BookAppointment(ctx context.Context, actor Actor, req BookRequest) (res *BookingResult, err error) {
	defer func() { s.metrics.BookingAttempt(bookingResult(err)) }()

	if actor.PatientID == nil {
		return nil, ErrProfileRequired
	}
	req.ConsultationType = strings.TrimSpace(req.ConsultationType)
	switch {
	case req.DoctorID <= 0:
		return nil, invalid("doctor_id", "is required")
	case req.TimeSlotID <= 0:
		return nil, invalid("time_slot_id", "is required")
	case req.ConsultationType == "":
		return nil, invalid("consultation_type", "is required")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}

	doctor, err := s.doctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsApproved() {
		return nil, ErrUnavailableDoctor
	}

	slot, err := s.slots.GetByID(ctx, req.TimeSlotID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSlotUnavailable
	}
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != req.DoctorID || !slot.IsAvailable || !slot.StartTime.After(s.now()) {
		return nil, ErrSlotUnavailable
	}

	fee, err := s.fees.Get(ctx, req.DoctorID, req.ConsultationType)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidConsultationType
	}
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		PatientID:        *actor.PatientID,
		DoctorID:         req.DoctorID,
		TimeSlotID:       slot.ID,
		ConsultationType: req.ConsultationType,
		Status:           StatusPending,
		Symptoms:         req.Symptoms,
		Notes:            req.Notes,
		SlotDate:         slot.Date,
		SlotStart:        slot.StartTime,
		SlotEnd:          slot.EndTime,
	}
	payment := &Payment{
		Amount:        fee.Amount,
		Currency:      fee.Currency,
		PaymentMethod: method,
		Status:        PaymentPending,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.slots.Reserve(ctx, slot.ID, req.DoctorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotUnavailable
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		payment.AppointmentID = appt.ID
		return s.payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	slot.IsAvailable = false
	s.render(appt)
	s.logger.Info().Int64("appointment_id", appt.ID).Int64("slot_id", slot.ID).
		Int64("doctor_id", appt.DoctorID).Int64("patient_id", appt.PatientID).Msg("appointment booked")

	when := appt.Date + " " + appt.StartTime
	s.notify(ctx, doctor.UserID, fmt.Sprintf("New appointment booked for %s", when), kindAppointment)
	s.notify(ctx, actor.UserID, fmt.Sprintf("Appointment booked for %s. Please complete the payment.", when), kindAppointment)

	return &BookingResult{Appointment: appt, Payment: payment, Slot: s.slotView(slot)}, nil
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return bookResultSuccess
	case errors.Is(err, ErrSlotUnavailable):
		return bookResultUnavailable
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailableDoctor),
		errors.Is(err, ErrInvalidConsultationType), errors.Is(err, ErrProfileRequired):
		return bookResultRejected
	}
	return bookResultError
}
