package service

import (
	"strings"
	"time"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// SlotRules holds the limits a time slot must respect and the clock
// used to decide what "today" is.
type SlotRules struct {
	MinMinutes int
	MaxMinutes int // 0 disables the upper bound
	Location   *time.Location
	Now        func() time.Time
}

func (r SlotRules) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Today returns the current date in the configured zone as YYYY-MM-DD.
func (r SlotRules) Today() string {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return r.now().In(loc).Format(model.DateLayout)
}

// NormalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func NormalizeTime(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if strings.Count(v, ":") == 1 {
		v += ":00"
	}
	t, err := time.Parse(model.TimeLayout, v)
	if err != nil {
		return "", false
	}
	return t.Format(model.TimeLayout), true
}

// NormalizeDate accepts YYYY-MM-DD and returns it canonicalized.
func NormalizeDate(v string) (string, bool) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return "", false
	}
	return t.Format(model.DateLayout), true
}

// checkNotPast rejects dates strictly before today.  Both sides are
// YYYY-MM-DD so a string comparison orders them correctly.
func (r SlotRules) checkNotPast(date string) error {
	if date < r.Today() {
		return validation("date cannot be in the past")
	}
	return nil
}

// checkWindow enforces start < end and the duration bounds.
func (r SlotRules) checkWindow(start, end string) error {
	if start >= end {
		return validation("start_time must be before end_time")
	}
	d := model.SlotMinutes(start, end)
	if d < r.MinMinutes {
		return validation("slot must be at least %d minutes", r.MinMinutes)
	}
	if r.MaxMinutes > 0 && d > r.MaxMinutes {
		return validation("slot must be at most %d minutes", r.MaxMinutes)
	}
	return nil
}
