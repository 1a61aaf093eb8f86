package model

import "time"

// Layouts of the date and time strings exchanged with the database.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ScheduleStatus is the availability state of a time slot.
type ScheduleStatus string

const (
	ScheduleAvailable ScheduleStatus = "available"
	ScheduleBooked    ScheduleStatus = "booked"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// Valid reports whether s is a known schedule status.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleAvailable, ScheduleBooked, ScheduleCancelled:
		return true
	}
	return false
}

// Schedule is a bookable time slot owned by one counselor profile.
// NOTE: Date is stored as "2006-01-02" and the times as "15:04:05";
// both are kept as strings in the same format the database returns.
type Schedule struct {
	ID          uint64         `json:"id"`
	CounselorID uint64         `json:"counselor_id"`
	Date        string         `json:"date"`
	StartTime   string         `json:"start_time"`
	EndTime     string         `json:"end_time"`
	Status      ScheduleStatus `json:"status"`
	Duration    int            `json:"duration"` // minutes, computed
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ScheduleWithBooking is a counselor's slot together with the
// non-cancelled booking that occupies it, if any.
type ScheduleWithBooking struct {
	Schedule
	BookingID     *uint64 `json:"booking_id"`
	BookingStatus *string `json:"booking_status"`
	Topic         *string `json:"topic"`
	Notes         *string `json:"notes"`
	StudentName   *string `json:"student_name"`
	StudentEmail  *string `json:"student_email"`
}

// SlotMinutes returns end minus start in whole minutes for two
// TimeLayout strings.  Unparseable input yields 0.
func SlotMinutes(start, end string) int {
	s, err := time.Parse(TimeLayout, start)
	if err != nil {
		return 0
	}
	e, err := time.Parse(TimeLayout, end)
	if err != nil {
		return 0
	}
	return int(e.Sub(s) / time.Minute)
}
