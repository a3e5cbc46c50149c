package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestBookAppointment_Success(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	slot := f.slotAt(t, "2026-10-26", "09:00")

	res, err := f.svc.BookAppointment(context.Background(), patientActor(patientID, patientUserID), BookRequest{
		DoctorID:         doctorID,
		TimeSlotID:       slot.ID,
		ConsultationType: "first_visit",
		Symptoms:         ptr("headache"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Appointment.Status != StatusPending {
		t.Errorf("expected pending, got %s", res.Appointment.Status)
	}
	if res.Appointment.Date != "2026-10-26" || res.Appointment.StartTime != "09:00" {
		t.Errorf("unexpected appointment time %s %s", res.Appointment.Date, res.Appointment.StartTime)
	}
	if res.Payment.Status != PaymentPending || res.Payment.Amount != 500 || res.Payment.Currency != "NPR" {
		t.Errorf("unexpected payment %+v", res.Payment)
	}
	if res.Payment.PaymentMethod != DefaultPaymentMethod {
		t.Errorf("expected default payment method, got %q", res.Payment.PaymentMethod)
	}
	if res.Slot.IsAvailable || f.store.slots[slot.ID].IsAvailable {
		t.Error("expected slot to be reserved")
	}

	docMsgs := f.notifier.to(doctorUserID)
	if len(docMsgs) != 1 || docMsgs[0] != "New appointment booked for 2026-10-26 09:00" {
		t.Errorf("unexpected doctor notifications %v", docMsgs)
	}
	patMsgs := f.notifier.to(patientUserID)
	if len(patMsgs) != 1 || !strings.Contains(patMsgs[0], "Please complete the payment") {
		t.Errorf("unexpected patient notifications %v", patMsgs)
	}
	if f.metrics.bookings[bookResultSuccess] != 1 {
		t.Errorf("expected one successful booking metric, got %v", f.metrics.bookings)
	}
}

func TestBookAppointment_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		actor func(f *fixture) Actor
		req   func(f *fixture, slot *TimeSlot) BookRequest
		want  error
	}{
		{
			name:  "no patient profile",
			actor: func(*fixture) Actor { return doctorActor() },
			req: func(_ *fixture, s *TimeSlot) BookRequest {
				return BookRequest{DoctorID: doctorID, TimeSlotID: s.ID, ConsultationType: "first_visit"}
			},
			want: ErrProfileRequired,
		},
		{
			name: "missing consultation type",
			req: func(_ *fixture, s *TimeSlot) BookRequest {
				return BookRequest{DoctorID: doctorID, TimeSlotID: s.ID}
			},
			want: ErrValidation,
		},
		{
			name: "unknown doctor",
			req: func(_ *fixture, s *TimeSlot) BookRequest {
				return BookRequest{DoctorID: 77, TimeSlotID: s.ID, ConsultationType: "first_visit"}
			},
			want: ErrNotFound,
		},
		{
			name: "doctor not approved",
			req: func(_ *fixture, s *TimeSlot) BookRequest {
				return BookRequest{DoctorID: pendingDoctorID, TimeSlotID: s.ID, ConsultationType: "first_visit"}
			},
			want: ErrUnavailableDoctor,
		},
		{
			name: "slot missing",
			req: func(*fixture, *TimeSlot) BookRequest {
				return BookRequest{DoctorID: doctorID, TimeSlotID: 9999, ConsultationType: "first_visit"}
			},
			want: ErrSlotUnavailable,
		},
		{
			name: "slot already taken",
			req: func(f *fixture, s *TimeSlot) BookRequest {
				f.store.slots[s.ID].IsAvailable = false
				return BookRequest{DoctorID: doctorID, TimeSlotID: s.ID, ConsultationType: "first_visit"}
			},
			want: ErrSlotUnavailable,
		},
		{
			name: "slot in the past",
			req: func(f *fixture, s *TimeSlot) BookRequest {
				f.now = s.StartTime
				return BookRequest{DoctorID: doctorID, TimeSlotID: s.ID, ConsultationType: "first_visit"}
			},
			want: ErrSlotUnavailable,
		},
		{
			name: "unknown consultation type",
			req: func(_ *fixture, s *TimeSlot) BookRequest {
				return BookRequest{DoctorID: doctorID, TimeSlotID: s.ID, ConsultationType: "surgery"}
			},
			want: ErrInvalidConsultationType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.setup(t)
			slot := f.slotAt(t, "2026-10-26", "09:00")
			actor := patientActor(patientID, patientUserID)
			if tt.actor != nil {
				actor = tt.actor(f)
			}

			_, err := f.svc.BookAppointment(context.Background(), actor, tt.req(f, slot))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.store.appointments) != 0 || len(f.store.payments) != 0 {
				t.Error("expected no appointment or payment to be written")
			}
			if len(f.notifier.sent) != 0 {
				t.Error("expected no notifications")
			}
		})
	}
}

func TestBookAppointment_SlotOfAnotherDoctor(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	slot := f.slotAt(t, "2026-10-26", "09:00")
	f.store.slots[slot.ID].DoctorID = pendingDoctorID

	_, err := f.svc.BookAppointment(context.Background(), patientActor(patientID, patientUserID), BookRequest{
		DoctorID: doctorID, TimeSlotID: slot.ID, ConsultationType: "first_visit",
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookAppointment_ConcurrentRequestsBookOnce(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	slot := f.slotAt(t, "2026-10-26", "09:30")

	const attempts = 16
	var wins, losses atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		pid, uid := patientID, patientUserID
		if i%2 == 1 {
			pid, uid = otherPatientID, otherPatientUser
		}
		g.Go(func() error {
			_, err := f.svc.BookAppointment(context.Background(), patientActor(pid, uid), BookRequest{
				DoctorID: doctorID, TimeSlotID: slot.ID, ConsultationType: "first_visit",
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrSlotUnavailable):
				losses.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wins.Load() != 1 || losses.Load() != attempts-1 {
		t.Errorf("expected exactly one winner, got %d wins and %d losses", wins.Load(), losses.Load())
	}
	if len(f.store.appointments) != 1 {
		t.Errorf("expected one appointment, got %d", len(f.store.appointments))
	}
	if f.metrics.bookings[bookResultUnavailable] != attempts-1 {
		t.Errorf("expected %d slot_unavailable metrics, got %v", attempts-1, f.metrics.bookings)
	}
}

func TestBookAppointment_NotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.setup(t)
	f.notifier.err = errors.New("telegram down")
	slot := f.slotAt(t, "2026-10-26", "09:00")

	res := f.book(t, slot, patientID, patientUserID)
	if res.Appointment.ID == 0 {
		t.Error("expected appointment to be stored")
	}
}

func TestBookingResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, bookResultSuccess},
		{ErrSlotUnavailable, bookResultUnavailable},
		{invalid("x", "y"), bookResultRejected},
		{ErrInvalidConsultationType, bookResultRejected},
		{errors.New("db down"), bookResultError},
	}
	for _, tt := range tests {
		if got := bookingResult(tt.err); got != tt.want {
			t.Errorf("bookingResult(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
