package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Active reports whether the booking still holds its schedule.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// transitions lists every permitted status change and the roles that
// may perform it.  completed and cancelled have no outgoing edges.
var transitions = map[BookingStatus]map[BookingStatus][]Role{
	BookingPending: {
		BookingConfirmed: {RoleCounselor},
		BookingCancelled: {RoleCounselor, RoleStudent},
	},
	BookingConfirmed: {
		BookingCompleted: {RoleCounselor},
		BookingCancelled: {RoleCounselor},
	},
}

// CanTransition reports whether actor may move a booking from one
// status to another.
func CanTransition(from, to BookingStatus, actor Role) bool {
	for _, r := range transitions[from][to] {
		if r == actor {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool { return len(transitions[s]) == 0 }

// Booking is a student's claim on a schedule.
type Booking struct {
	ID         uint64        `json:"id"`
	StudentID  uint64        `json:"student_id"`
	ScheduleID uint64        `json:"schedule_id"`
	Topic      string        `json:"topic"`
	Notes      string        `json:"notes"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// BookingDetail is a booking joined with its schedule and the user on
// the other side of it (the student for counselors, the counselor for
// students).
type BookingDetail struct {
	ID               uint64         `json:"id"`
	ScheduleID       uint64         `json:"schedule_id"`
	Topic            string         `json:"topic"`
	Notes            string         `json:"notes"`
	Status           BookingStatus  `json:"booking_status"`
	CreatedAt        time.Time      `json:"created_at"`
	Date             string         `json:"date"`
	StartTime        string         `json:"start_time"`
	EndTime          string         `json:"end_time"`
	ScheduleStatus   ScheduleStatus `json:"schedule_status"`
	CounselorID      uint64         `json:"counselor_id"`
	CounterpartID    uint64         `json:"counterpart_id"`
	CounterpartName  string         `json:"counterpart_name"`
	CounterpartEmail string         `json:"counterpart_email"`
	CounselorPhoto   *string        `json:"counselor_photo,omitempty"`
}

// DashboardStats are the headline counts on a counselor's dashboard.
type DashboardStats struct {
	TotalBookings    int `json:"totalBookings" db:"total_bookings"`
	PendingBookings  int `json:"pendingBookings" db:"pending_bookings"`
	UpcomingSessions int `json:"upcomingSessions" db:"upcoming_sessions"`
	AvailableSlots   int `json:"availableSlots" db:"available_slots"`
}
