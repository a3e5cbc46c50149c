package scheduling

import (
	"context"
	"fmt"
)

const refundReasonCancelled = "appointment was cancelled before payment completed"

// ApplyPaymentStatus records the gateway outcome of a pending payment. A
// completed payment confirms a pending appointment; if the appointment was
// cancelled in the meantime the payment is refunded instead.
func (s *Service) ApplyPaymentStatus(ctx context.Context, paymentID int64, upd PaymentUpdate) (*Payment, error) {
	if upd.Status != PaymentCompleted && upd.Status != PaymentFailed {
		return nil, invalid("status", "must be %q or %q", PaymentCompleted, PaymentFailed)
	}

	var (
		payment *Payment
		appt    *Appointment
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.payments.SetOutcome(ctx, paymentID, upd.Status, upd.TransactionID)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.payments.GetByID(ctx, paymentID); err != nil {
				return err
			}
			return fmt.Errorf("payment is no longer pending: %w", ErrInvalidState)
		}
		if payment, err = s.payments.GetByID(ctx, paymentID); err != nil {
			return err
		}
		if appt, err = s.appointments.GetByID(ctx, payment.AppointmentID); err != nil {
			return err
		}
		if upd.Status != PaymentCompleted {
			return nil
		}

		confirmed, err := s.appointments.Confirm(ctx, appt.ID)
		if err != nil {
			return err
		}
		if confirmed {
			appt.Status = StatusConfirmed
			return nil
		}
		if appt.Status == StatusCancelled {
			if _, err := s.payments.Refund(ctx, appt.ID, refundReasonCancelled); err != nil {
				return err
			}
			payment, err = s.payments.GetByID(ctx, paymentID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.render(appt)
	s.logger.Info().Int64("payment_id", paymentID).Str("status", payment.Status).
		Int64("appointment_id", appt.ID).Str("appointment_status", appt.Status).Msg("payment status applied")

	when := appt.Date + " " + appt.StartTime
	switch {
	case payment.Status == PaymentRefunded:
		s.notifyPatient(ctx, appt.PatientID,
			fmt.Sprintf("Your payment for the cancelled appointment on %s will be refunded.", when), kindPayment)
	case upd.Status == PaymentCompleted:
		s.notifyPatient(ctx, appt.PatientID,
			fmt.Sprintf("Payment received. Your appointment on %s is confirmed.", when), kindPayment)
		s.notifyDoctor(ctx, appt.DoctorID,
			fmt.Sprintf("Appointment on %s has been confirmed.", when), kindPayment)
	default:
		s.notifyPatient(ctx, appt.PatientID,
			fmt.Sprintf("Payment for your appointment on %s failed. Please try again.", when), kindPayment)
		s.notifyDoctor(ctx, appt.DoctorID,
			fmt.Sprintf("Payment for the appointment on %s failed.", when), kindPayment)
	}
	return payment, nil
}
