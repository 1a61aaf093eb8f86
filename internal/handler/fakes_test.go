package handler

import (
	"context"
	"errors"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/service"
	"github.com/iliyamo/counseling-booking/internal/storage"
)

var errNotStubbed = errors.New("not stubbed")

type fakeAuth struct {
	login   func(email, password string) (service.Session, error)
	issue   func(id model.Identity) (service.Session, error)
	refresh func(raw string) (service.Session, error)
	logout  func(userID uint64, raw string) error
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (service.Session, error) {
	if f.login == nil {
		return service.Session{}, errNotStubbed
	}
	return f.login(email, password)
}

func (f *fakeAuth) IssueSession(_ context.Context, id model.Identity) (service.Session, error) {
	if f.issue == nil {
		return service.Session{}, errNotStubbed
	}
	return f.issue(id)
}

func (f *fakeAuth) Refresh(_ context.Context, raw string) (service.Session, error) {
	if f.refresh == nil {
		return service.Session{}, errNotStubbed
	}
	return f.refresh(raw)
}

func (f *fakeAuth) Logout(_ context.Context, userID uint64, raw string) error {
	if f.logout == nil {
		return errNotStubbed
	}
	return f.logout(userID, raw)
}

type fakeUsers struct {
	register func(in service.RegisterInput) (model.Identity, error)
	list     func(role string) ([]model.User, error)
	create   func(in service.CreateUserInput) (uint64, error)
	update   func(id uint64, in service.UpdateUserInput) (int64, error)
	del      func(id uint64) (int64, error)
}

func (f *fakeUsers) Register(_ context.Context, in service.RegisterInput) (model.Identity, error) {
	return f.register(in)
}

func (f *fakeUsers) List(_ context.Context, _ model.Identity, role string) ([]model.User, error) {
	return f.list(role)
}

func (f *fakeUsers) Get(context.Context, model.Identity, uint64) (model.User, error) {
	return model.User{}, errNotStubbed
}

func (f *fakeUsers) Create(_ context.Context, _ model.Identity, in service.CreateUserInput) (uint64, error) {
	return f.create(in)
}

func (f *fakeUsers) Update(_ context.Context, _ model.Identity, id uint64, in service.UpdateUserInput) (int64, error) {
	return f.update(id, in)
}

func (f *fakeUsers) Delete(_ context.Context, _ model.Identity, id uint64) (int64, error) {
	return f.del(id)
}

type fakeCounselors struct {
	openSlots func(id uint64, startDate string) ([]model.Schedule, error)
	avatar    func(caller model.Identity) (storage.PresignedUpload, error)
}

func (f *fakeCounselors) List(context.Context) ([]model.CounselorSummary, error) {
	return []model.CounselorSummary{{ID: 3, Name: "Coach", TotalSchedules: 2}}, nil
}

func (f *fakeCounselors) Get(_ context.Context, id uint64) (model.CounselorSummary, error) {
	return model.CounselorSummary{ID: id}, nil
}

func (f *fakeCounselors) OpenSlots(_ context.Context, id uint64, startDate string) ([]model.Schedule, error) {
	return f.openSlots(id, startDate)
}

func (f *fakeCounselors) UpdateProfile(_ context.Context, _ model.Identity, id uint64, in service.UpdateProfileInput) (model.CounselorSummary, error) {
	return model.CounselorSummary{ID: id, Bio: in.Bio}, nil
}

func (f *fakeCounselors) AvatarUploadURL(_ context.Context, caller model.Identity) (storage.PresignedUpload, error) {
	return f.avatar(caller)
}

type fakeSchedules struct {
	create func(in service.CreateScheduleInput) (model.Schedule, error)
	update func(id uint64, in service.UpdateScheduleInput) (model.Schedule, error)
	del    func(id uint64) error
	list   func(in service.ListSchedulesInput) ([]model.ScheduleWithBooking, error)
}

func (f *fakeSchedules) Create(_ context.Context, _ model.Identity, in service.CreateScheduleInput) (model.Schedule, error) {
	return f.create(in)
}

func (f *fakeSchedules) Update(_ context.Context, _ model.Identity, id uint64, in service.UpdateScheduleInput) (model.Schedule, error) {
	return f.update(id, in)
}

func (f *fakeSchedules) Delete(_ context.Context, _ model.Identity, id uint64) error {
	return f.del(id)
}

func (f *fakeSchedules) List(_ context.Context, _ model.Identity, in service.ListSchedulesInput) ([]model.ScheduleWithBooking, error) {
	return f.list(in)
}

type fakeBookings struct {
	create     func(caller model.Identity, in service.CreateBookingInput) (model.Booking, error)
	transition func(id uint64, target model.BookingStatus) (model.Booking, error)
	action     func(id uint64, action string) (model.Booking, error)
	cancel     func(caller model.Identity, id uint64) (model.Booking, error)
	list       func(status string, limit int) ([]model.BookingDetail, error)
}

func (f *fakeBookings) Create(_ context.Context, caller model.Identity, in service.CreateBookingInput) (model.Booking, error) {
	return f.create(caller, in)
}

func (f *fakeBookings) Transition(_ context.Context, _ model.Identity, id uint64, target model.BookingStatus) (model.Booking, error) {
	return f.transition(id, target)
}

func (f *fakeBookings) Action(_ context.Context, _ model.Identity, id uint64, action string) (model.Booking, error) {
	return f.action(id, action)
}

func (f *fakeBookings) Cancel(_ context.Context, caller model.Identity, id uint64) (model.Booking, error) {
	return f.cancel(caller, id)
}

func (f *fakeBookings) ListForCounselor(_ context.Context, _ model.Identity, status string, limit int) ([]model.BookingDetail, error) {
	return f.list(status, limit)
}

func (f *fakeBookings) ListForStudent(_ context.Context, _ model.Identity, status string, limit int) ([]model.BookingDetail, error) {
	return f.list(status, limit)
}

type fakeDashboard struct {
	stats model.DashboardStats
	err   error
}

func (f *fakeDashboard) CounselorStats(context.Context, model.Identity) (model.DashboardStats, error) {
	return f.stats, f.err
}
