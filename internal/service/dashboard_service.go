package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/repository"
)

// DashboardService serves the counselor's headline numbers.
type DashboardService struct {
	counselors *repository.CounselorRepo
	stats      *repository.StatsRepo
	rules      SlotRules
}

func NewDashboardService(c *repository.CounselorRepo, st *repository.StatsRepo, rules SlotRules) *DashboardService {
	return &DashboardService{counselors: c, stats: st, rules: rules}
}

// CounselorStats counts the caller's bookings and open slots.
func (s *DashboardService) CounselorStats(ctx context.Context, caller model.Identity) (model.DashboardStats, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return model.DashboardStats{}, err
	}
	profile, err := profileOf(ctx, s.counselors, caller)
	if err != nil {
		return model.DashboardStats{}, err
	}
	st, err := s.stats.CounselorStats(ctx, profile.ID, s.rules.Today())
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("load dashboard stats: %w", err)
	}
	return st, nil
}
