// Package localtime converts between the clinic's fixed-offset civil time and
// the UTC instants stored in the database.
//
// All doctors share a single configured UTC offset. Times of day travel over
// the API as "HH:MM" strings and are persisted as UTC instants anchored on a
// reference date.
package localtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// MinutesPerDay is used to normalise windows that cross midnight.
	MinutesPerDay = 24 * 60

	// DefaultOffsetMinutes is UTC+05:45.
	DefaultOffsetMinutes = 5*60 + 45

	dateLayout = "2006-01-02"
)

var hhmmPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// StorageRefDate is the civil date that recurring window times are anchored
// on when stored.
var StorageRefDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Zone is a fixed UTC offset.
type Zone struct {
	offset int
	loc    *time.Location
}

// NewZone returns a Zone for the given offset in minutes east of UTC.
func NewZone(offsetMinutes int) *Zone {
	return &Zone{
		offset: offsetMinutes,
		loc:    time.FixedZone(formatOffset(offsetMinutes), offsetMinutes*60),
	}
}

// OffsetMinutes returns the configured offset.
func (z *Zone) OffsetMinutes() int { return z.offset }

// Location returns the *time.Location backing the zone.
func (z *Zone) Location() *time.Location { return z.loc }

// ToUTC builds the local wall-clock instant hh:mm on refDate's civil date and
// returns it in UTC. Only the year, month and day fields of refDate are used.
func (z *Zone) ToUTC(refDate time.Time, hh, mm int) time.Time {
	y, m, d := refDate.Date()
	return time.Date(y, m, d, hh, mm, 0, 0, z.loc).UTC()
}

// FormatHHMM renders t as zero-padded local "HH:MM".
func (z *Zone) FormatHHMM(t time.Time) string {
	return t.In(z.loc).Format("15:04")
}

// FormatDate renders the local civil date of t as YYYY-MM-DD.
func (z *Zone) FormatDate(t time.Time) string {
	return t.In(z.loc).Format(dateLayout)
}

// LocalMidnight returns 00:00 local time on t's local civil date.
func (z *Zone) LocalMidnight(t time.Time) time.Time {
	y, m, d := t.In(z.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, z.loc)
}

// CivilDate returns t's local civil date as a UTC-midnight value, which is how
// DATE columns are written and read.
func (z *Zone) CivilDate(t time.Time) time.Time {
	y, m, d := t.In(z.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the local day of week of t with Monday=1 .. Saturday=6 and
// Sunday=7.
func (z *Zone) Weekday(t time.Time) int {
	return ISOWeekday(t.In(z.loc).Weekday())
}

// ParseDate parses a YYYY-MM-DD civil date and returns it as UTC midnight.
func (z *Zone) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// MinutesOfDayAt returns the local minutes since midnight of instant t.
func (z *Zone) MinutesOfDayAt(t time.Time) int {
	lt := t.In(z.loc)
	return MinutesOfDay(lt.Hour(), lt.Minute())
}

// ISOWeekday maps time.Weekday to 1..7 with Sunday last.
func ISOWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// ParseHHMM validates and splits an "HH:MM" string. A single-digit hour is
// accepted ("9:05").
func ParseHHMM(s string) (hh, mm int, err error) {
	m := hhmmPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hh, _ = strconv.Atoi(m[1])
	mm, _ = strconv.Atoi(m[2])
	return hh, mm, nil
}

// MinutesOfDay returns hh*60+mm.
func MinutesOfDay(hh, mm int) int {
	return hh*60 + mm
}

// WindowBounds normalises a window given in minutes of day. When end is not
// after start the window crosses midnight and a full day is added to end.
func WindowBounds(startMin, endMin int) (int, int) {
	if endMin <= startMin {
		endMin += MinutesPerDay
	}
	return startMin, endMin
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}
