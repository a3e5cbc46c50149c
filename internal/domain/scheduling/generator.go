package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/localtime"
)

// PlanSlots expands recurring windows into slots for today and the next
// daysAhead days. Today's slots start at the first slot boundary at or after
// now. Sub-slots that would run past the window end are dropped, and
// overnight windows keep the date of the day they start on. When windows
// overlap, the earliest slot wins and any slot overlapping it is dropped.
func PlanSlots(zone *localtime.Zone, windows []*Availability, now time.Time, daysAhead int, duration time.Duration) []*TimeSlot {
	if len(windows) == 0 || duration <= 0 || daysAhead < 0 {
		return nil
	}

	byDay := make(map[int][]*Availability, 7)
	for _, w := range windows {
		if w.IsRecurring {
			byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
		}
	}

	var out []*TimeSlot
	today := zone.LocalMidnight(now)
	for i := 0; i <= daysAhead; i++ {
		day := today.AddDate(0, 0, i)
		date := zone.CivilDate(day)
		for _, w := range byDay[localtime.ISOWeekday(day.Weekday())] {
			startMin, endMin := localtime.WindowBounds(zone.MinutesOfDayAt(w.StartTime), zone.MinutesOfDayAt(w.EndTime))
			winStart := day.Add(time.Duration(startMin) * time.Minute)
			winEnd := day.Add(time.Duration(endMin) * time.Minute)

			cursor := winStart
			if i == 0 && cursor.Before(now) {
				steps := (now.Sub(winStart) + duration - 1) / duration
				cursor = winStart.Add(steps * duration)
			}
			for ; !cursor.Add(duration).After(winEnd); cursor = cursor.Add(duration) {
				out = append(out, &TimeSlot{
					DoctorID:        w.DoctorID,
					Date:            date,
					StartTime:       cursor.UTC(),
					EndTime:         cursor.Add(duration).UTC(),
					DurationMinutes: int(duration / time.Minute),
					IsAvailable:     true,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	kept := out[:0]
	for _, t := range out {
		if n := len(kept); n > 0 && t.DoctorID == kept[n-1].DoctorID && t.StartTime.Before(kept[n-1].EndTime) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// dropBooked removes planned slots that overlap a live appointment's slot.
// A planned slot identical to the booked one is kept so the insert can revive
// it in place.
func dropBooked(planned []*TimeSlot, booked []*Appointment) []*TimeSlot {
	if len(booked) == 0 {
		return planned
	}
	kept := planned[:0]
next:
	for _, t := range planned {
		for _, b := range booked {
			if t.StartTime.Before(b.SlotEnd) && b.SlotStart.Before(t.EndTime) {
				if t.StartTime.Equal(b.SlotStart) && t.EndTime.Equal(b.SlotEnd) && t.Date.Equal(b.SlotDate) {
					continue
				}
				continue next
			}
		}
		kept = append(kept, t)
	}
	return kept
}

// GenerateSlots writes the planned horizon for one doctor. Slots that already
// exist are skipped, so repeated runs only add what is missing, and nothing is
// planned over a slot a live appointment holds. It returns the rows actually
// written.
func (s *Service) GenerateSlots(ctx context.Context, doctorID int64, daysAhead int) ([]*TimeSlot, error) {
	inserted := []*TimeSlot{}
	var planned int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.availability.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		windows, err := s.availability.ListRecurringByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		now := s.now()
		plan := PlanSlots(s.zone, windows, now, daysAhead, s.slotDuration)
		if len(plan) == 0 {
			return nil
		}

		today := s.zone.CivilDate(now)
		booked, err := s.appointments.ListBookedBetween(ctx, doctorID, today.AddDate(0, 0, -1), today.AddDate(0, 0, daysAhead+1))
		if err != nil {
			return err
		}
		plan = dropBooked(plan, booked)
		planned = len(plan)
		if planned == 0 {
			return nil
		}

		rows, err := s.slots.InsertBatch(ctx, plan)
		if err != nil {
			return err
		}
		inserted = append(inserted, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SlotsGenerated(len(inserted))
	s.logger.Debug().Int64("doctor_id", doctorID).Int("planned", planned).Int("inserted", len(inserted)).
		Msg("slots generated")
	return inserted, nil
}

// RegenerateAll extends the horizon for every doctor with recurring
// availability. One doctor failing does not stop the others.
func (s *Service) RegenerateAll(ctx context.Context, daysAhead int) (int, error) {
	ids, err := s.availability.DoctorIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	var firstErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		inserted, err := s.GenerateSlots(ctx, id, daysAhead)
		if err != nil {
			s.logger.Error().Err(err).Int64("doctor_id", id).Msg("slot regeneration failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += len(inserted)
	}
	return total, firstErr
}
