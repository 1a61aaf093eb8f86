package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/queue"
)

// EventPublisher delivers booking events.  *queue.Publisher is the
// production implementation.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

const publishTimeout = 3 * time.Second

// publishAfterCommit sends ev without letting a broker problem fail the
// request that already committed.
func publishAfterCommit(ctx context.Context, p EventPublisher, log *zap.Logger, ev queue.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("publish booking event failed",
			zap.String("type", ev.Type),
			zap.Uint64("booking_id", ev.BookingID),
			zap.Error(err))
	}
}

func bookingEvent(b model.Booking, s model.Schedule, from model.BookingStatus, actor model.Identity, at time.Time) queue.BookingEvent {
	return queue.BookingEvent{
		Type:        queue.EventTypeFor(string(b.Status)),
		BookingID:   b.ID,
		ScheduleID:  s.ID,
		StudentID:   b.StudentID,
		CounselorID: s.CounselorID,
		ActorID:     actor.UserID,
		ActorRole:   string(actor.Role),
		From:        string(from),
		Status:      string(b.Status),
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Topic:       b.Topic,
		OccurredAt:  at.UTC(),
	}
}
