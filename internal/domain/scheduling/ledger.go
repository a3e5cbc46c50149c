package scheduling

import (
	"context"
	"sort"
	"time"
)

const maxScheduleRangeDays = 93

// ListAvailableSlots returns the doctor's open slots that have not started,
// optionally limited to one local date.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID int64, date *time.Time) ([]*SlotView, error) {
	d, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !d.IsApproved() {
		return nil, ErrUnavailableDoctor
	}

	slots, err := s.slots.ListAvailable(ctx, doctorID, s.now(), date)
	if err != nil {
		return nil, err
	}
	out := make([]*SlotView, 0, len(slots))
	for _, t := range slots {
		out = append(out, s.slotView(t))
	}
	return out, nil
}

// ListDoctorSchedule groups the doctor's live appointments and open slots by
// date for the inclusive range [startDate, endDate].
func (s *Service) ListDoctorSchedule(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]*ScheduleDay, error) {
	if endDate.Before(startDate) {
		return nil, invalid("end_date", "must not be before start_date")
	}
	if endDate.Sub(startDate) > maxScheduleRangeDays*24*time.Hour {
		return nil, invalid("end_date", "range must not exceed %d days", maxScheduleRangeDays)
	}

	booked, err := s.appointments.ListBookedBetween(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	open, err := s.slots.ListOpenBetween(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	days := make(map[string]*ScheduleDay)
	var order []string
	day := func(date string) *ScheduleDay {
		d, ok := days[date]
		if !ok {
			d = &ScheduleDay{Date: date, Appointments: []*Appointment{}, OpenSlots: []*SlotView{}}
			days[date] = d
			order = append(order, date)
		}
		return d
	}
	for _, a := range booked {
		s.render(a)
		d := day(a.Date)
		d.Appointments = append(d.Appointments, a)
	}
	for _, t := range open {
		v := s.slotView(t)
		d := day(v.Date)
		d.OpenSlots = append(d.OpenSlots, v)
	}

	sort.Strings(order)
	out := make([]*ScheduleDay, 0, len(order))
	for _, date := range order {
		out = append(out, days[date])
	}
	return out, nil
}

// ListMyAppointments lists the caller's appointments as patient or doctor.
func (s *Service) ListMyAppointments(ctx context.Context, actor Actor, status string, limit, offset int) ([]*Appointment, int, error) {
	if status != "" && !validStatus(status) {
		return nil, 0, invalid("status", "unknown status %q", status)
	}

	var (
		items []*Appointment
		total int
		err   error
	)
	switch {
	case actor.PatientID != nil:
		items, total, err = s.appointments.ListByPatient(ctx, *actor.PatientID, status, limit, offset)
	case actor.DoctorID != nil:
		items, total, err = s.appointments.ListByDoctor(ctx, *actor.DoctorID, status, limit, offset)
	default:
		return nil, 0, ErrProfileRequired
	}
	if err != nil {
		return nil, 0, err
	}
	for _, a := range items {
		s.render(a)
	}
	return items, total, nil
}

// GetAppointment returns an appointment to one of its participants or an admin.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, id int64) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.isPatient(a.PatientID) && !actor.isDoctor(a.DoctorID) {
		return nil, ErrForbidden
	}
	return s.render(a), nil
}

// GetPayment returns the payment of an appointment the actor may see.
func (s *Service) GetPayment(ctx context.Context, actor Actor, appointmentID int64) (*Payment, error) {
	if _, err := s.GetAppointment(ctx, actor, appointmentID); err != nil {
		return nil, err
	}
	return s.payments.GetByAppointment(ctx, appointmentID)
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
