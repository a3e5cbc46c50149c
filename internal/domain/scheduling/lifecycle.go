package scheduling

import (
	"context"
	"fmt"
	"strings"
)

// CancelAppointment cancels a pending or confirmed appointment, reopens its
// slot and refunds a completed payment.
func (s *Service) CancelAppointment(ctx context.Context, actor Actor, id int64, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	byPatient := actor.isPatient(appt.PatientID)
	byDoctor := actor.isDoctor(appt.DoctorID)
	if !byPatient && !byDoctor && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if appt.IsTerminal() {
		return nil, fmt.Errorf("appointment is %s: %w", appt.Status, ErrInvalidState)
	}

	var refunded bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.appointments.Cancel(ctx, id, reason)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		if err := s.slots.Release(ctx, appt.TimeSlotID); err != nil {
			return err
		}
		refunded, err = s.payments.Refund(ctx, id, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	by := actor.Role
	switch {
	case byPatient:
		by = "patient"
	case byDoctor:
		by = "doctor"
	}
	s.metrics.Cancellation(by)

	appt.Status = StatusCancelled
	appt.CancellationReason = &reason
	s.render(appt)
	s.logger.Info().Int64("appointment_id", id).Str("by", by).Bool("refunded", refunded).Msg("appointment cancelled")

	msg := fmt.Sprintf("Appointment on %s %s was cancelled by the %s.", appt.Date, appt.StartTime, by)
	if reason != "" {
		msg += " Reason: " + reason
	}
	switch {
	case byPatient:
		s.notifyDoctor(ctx, appt.DoctorID, msg, kindAppointment)
	case byDoctor:
		s.notifyPatient(ctx, appt.PatientID, msg, kindAppointment)
	default:
		s.notifyDoctor(ctx, appt.DoctorID, msg, kindAppointment)
		s.notifyPatient(ctx, appt.PatientID, msg, kindAppointment)
	}
	return appt, nil
}

// CompleteAppointment lets the appointment's doctor close a confirmed visit.
// The slot stays booked.
func (s *Service) CompleteAppointment(ctx context.Context, actor Actor, id int64, notes *string) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isDoctor(appt.DoctorID) {
		return nil, ErrForbidden
	}
	if appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("appointment is %s: %w", appt.Status, ErrInvalidState)
	}

	ok, err := s.appointments.Complete(ctx, id, notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	appt.Status = StatusCompleted
	if notes != nil {
		appt.Notes = notes
	}
	s.render(appt)
	s.logger.Info().Int64("appointment_id", id).Msg("appointment completed")
	s.notifyPatient(ctx, appt.PatientID,
		fmt.Sprintf("Your appointment on %s %s has been marked as completed.", appt.Date, appt.StartTime), kindAppointment)
	return appt, nil
}
