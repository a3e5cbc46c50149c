package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/localtime"
)

const minutesPerWeek = 7 * localtime.MinutesPerDay

type parsedWindow struct {
	input       WindowInput
	startH      int
	startM      int
	endH        int
	endM        int
	weekStart   int
	weekEnd     int
	isRecurring bool
}

// validateWindows checks the whole batch before anything is written. Windows
// may cross midnight; an end equal to the start means a full day.
func validateWindows(windows []WindowInput) ([]parsedWindow, error) {
	out := make([]parsedWindow, 0, len(windows))
	for i, w := range windows {
		field := fmt.Sprintf("availability[%d]", i)
		if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
			return nil, invalid(field+".day_of_week", "must be between 1 (Monday) and 7 (Sunday), got %d", w.DayOfWeek)
		}
		sh, sm, err := localtime.ParseHHMM(strings.TrimSpace(w.StartTime))
		if err != nil {
			return nil, invalid(field+".start_time", "%v", err)
		}
		eh, em, err := localtime.ParseHHMM(strings.TrimSpace(w.EndTime))
		if err != nil {
			return nil, invalid(field+".end_time", "%v", err)
		}
		startMin, endMin := localtime.WindowBounds(localtime.MinutesOfDay(sh, sm), localtime.MinutesOfDay(eh, em))
		recurring := true
		if w.IsRecurring != nil {
			recurring = *w.IsRecurring
		}
		base := (w.DayOfWeek - 1) * localtime.MinutesPerDay
		out = append(out, parsedWindow{
			input: w, startH: sh, startM: sm, endH: eh, endM: em,
			weekStart: base + startMin, weekEnd: base + endMin,
			isRecurring: recurring,
		})
	}

	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if weekOverlap(out[i], out[j]) {
				return nil, invalid(fmt.Sprintf("availability[%d]", j), "overlaps availability[%d]", i)
			}
		}
	}
	return out, nil
}

// weekOverlap compares windows on the weekly minute line, including a Sunday
// night window spilling into Monday.
func weekOverlap(a, b parsedWindow) bool {
	for _, shift := range []int{-minutesPerWeek, 0, minutesPerWeek} {
		if a.weekStart < b.weekEnd+shift && b.weekStart+shift < a.weekEnd {
			return true
		}
	}
	return false
}

// SetAvailability replaces the doctor's weekly windows and regenerates the
// slot horizon in the same transaction. Slots of the old windows are removed
// or retired; booked ones keep their appointment.
func (s *Service) SetAvailability(ctx context.Context, doctorID int64, windows []WindowInput) ([]*AvailabilityWindow, error) {
	parsed, err := validateWindows(windows)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}

	rows := make([]*Availability, 0, len(parsed))
	var generated int
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.availability.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		if err := s.availability.DeleteByDoctor(ctx, doctorID); err != nil {
			return err
		}
		if _, err := s.slots.RetireAll(ctx, doctorID); err != nil {
			return err
		}
		for _, p := range parsed {
			a := &Availability{
				DoctorID:    doctorID,
				DayOfWeek:   p.input.DayOfWeek,
				StartTime:   s.zone.ToUTC(localtime.StorageRefDate, p.startH, p.startM),
				EndTime:     s.zone.ToUTC(localtime.StorageRefDate, p.endH, p.endM),
				IsRecurring: p.isRecurring,
			}
			if err := s.availability.Create(ctx, a); err != nil {
				return err
			}
			rows = append(rows, a)
		}
		inserted, err := s.GenerateSlots(ctx, doctorID, s.horizonDays)
		if err != nil {
			return err
		}
		generated = len(inserted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("doctor_id", doctorID).Int("windows", len(rows)).Int("slots", generated).
		Msg("availability replaced")
	return s.windowViews(rows), nil
}

// GetAvailability returns the doctor's windows in local time, ordered by day.
func (s *Service) GetAvailability(ctx context.Context, doctorID int64) ([]*AvailabilityWindow, error) {
	rows, err := s.availability.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.windowViews(rows), nil
}

func (s *Service) windowViews(rows []*Availability) []*AvailabilityWindow {
	out := make([]*AvailabilityWindow, 0, len(rows))
	for _, a := range rows {
		out = append(out, &AvailabilityWindow{
			ID:          a.ID,
			DoctorID:    a.DoctorID,
			DayOfWeek:   a.DayOfWeek,
			StartTime:   s.zone.FormatHHMM(a.StartTime),
			EndTime:     s.zone.FormatHHMM(a.EndTime),
			IsRecurring: a.IsRecurring,
		})
	}
	return out
}

// SetFees replaces the doctor's consultation fees.
func (s *Service) SetFees(ctx context.Context, doctorID int64, fees []FeeInput) ([]*ConsultationFee, error) {
	seen := make(map[string]bool, len(fees))
	rows := make([]*ConsultationFee, 0, len(fees))
	for i, f := range fees {
		field := fmt.Sprintf("fees[%d]", i)
		ct := strings.TrimSpace(f.ConsultationType)
		if ct == "" {
			return nil, invalid(field+".consultation_type", "is required")
		}
		if seen[ct] {
			return nil, invalid(field+".consultation_type", "duplicate consultation type %q", ct)
		}
		seen[ct] = true
		if f.Amount <= 0 {
			return nil, invalid(field+".amount", "must be greater than zero")
		}
		currency := strings.ToUpper(strings.TrimSpace(f.Currency))
		if currency == "" {
			currency = DefaultCurrency
		}
		rows = append(rows, &ConsultationFee{
			DoctorID:         doctorID,
			ConsultationType: ct,
			Amount:           f.Amount,
			Currency:         currency,
		})
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.fees.DeleteByDoctor(ctx, doctorID); err != nil {
			return err
		}
		for _, f := range rows {
			if err := s.fees.Create(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("doctor_id", doctorID).Int("fees", len(rows)).Msg("consultation fees replaced")
	return rows, nil
}

func (s *Service) GetFees(ctx context.Context, doctorID int64) ([]*ConsultationFee, error) {
	return s.fees.ListByDoctor(ctx, doctorID)
}
