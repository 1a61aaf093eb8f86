// Package queue carries booking events over RabbitMQ: the payload
// type, a publisher used by the booking service and a consumer that
// keeps an append-only booking log.
package queue

import "time"

// BookingQueue is the durable queue all booking events are routed to.
const BookingQueue = "booking.events"

// Event types.  The suffix is the booking status after the change.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking change commits.  It carries
// enough to log or notify without querying the database.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   uint64    `json:"booking_id"`
	ScheduleID  uint64    `json:"schedule_id"`
	StudentID   uint64    `json:"student_id"`
	CounselorID uint64    `json:"counselor_id"`
	ActorID     uint64    `json:"actor_id"`
	ActorRole   string    `json:"actor_role"`
	From        string    `json:"from,omitempty"`
	Status      string    `json:"status"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Topic       string    `json:"topic"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventTypeFor maps a booking status to its event type.
func EventTypeFor(status string) string { return "booking." + status }
