package request

import (
	"errors"
	"time"

	"reservation-engine/internal/pkg/clock"
)

// Schedule is a day-granular, inclusive booking window [start, end].
type Schedule struct {
	start time.Time
	end   time.Time
}

func NewSchedule(start, end time.Time) (Schedule, error) {
	start = clock.Day(start)
	end = clock.Day(end)
	if end.Before(start) {
		return Schedule{}, errors.New("end date must not be before start date")
	}
	return Schedule{start: start, end: end}, nil
}

func (s Schedule) Start() time.Time {
	return s.start
}

func (s Schedule) End() time.Time {
	return s.end
}

// DurationDays is the whole-day difference end minus start; a single-day
// booking has duration zero even though it occupies the day.
func (s Schedule) DurationDays() int {
	return int(s.end.Sub(s.start).Hours() / 24)
}

// Overlaps uses inclusive boundaries: a booking ending on day N conflicts
// with one starting on day N.
func (s Schedule) Overlaps(other Schedule) bool {
	return !s.start.After(other.end) && !s.end.Before(other.start)
}

// HasStarted reports whether today falls on or after the window's first day.
func (s Schedule) HasStarted(today time.Time) bool {
	return !clock.Day(today).Before(s.start)
}

// HasExpired reports whether today falls strictly after the window's last day.
func (s Schedule) HasExpired(today time.Time) bool {
	return clock.Day(today).After(s.end)
}

// Covers reports whether today falls inside the window, boundaries included.
func (s Schedule) Covers(today time.Time) bool {
	return s.HasStarted(today) && !s.HasExpired(today)
}

// ReturnDetails captures the optional condition/notes recorded when a booking
// is closed out.
type ReturnDetails struct {
	Condition *string
	Notes     *string
}
