package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
)

const (
	adminDashboardKey = "dash:admin"
	staffDashboardKey = "dash:staff:%s"
)

type snapshotComplaintLister interface {
	ListAll(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintView, error)
}

type snapshotFeedbackLister interface {
	ListAll(ctx context.Context) ([]models.Feedback, error)
}

type snapshotStaffLister interface {
	ListStaff(ctx context.Context) ([]models.StaffMember, error)
	FindStaff(ctx context.Context, id string) (*models.StaffMember, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	OverdueAfter time.Duration
	Location     *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Complaints snapshotComplaintLister
	Feedback   snapshotFeedbackLister
	Staff      snapshotStaffLister
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes the admin reporting payloads.
type DashboardService struct {
	complaints snapshotComplaintLister
	feedback   snapshotFeedbackLister
	staff      snapshotStaffLister
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.OverdueAfter <= 0 {
		cfg.OverdueAfter = 72 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		complaints: params.Complaints,
		feedback:   params.Feedback,
		staff:      params.Staff,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Admin returns the admin dashboard and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	var cached dto.AdminDashboardResponse
	if s.cache.Get(ctx, adminDashboardKey, &cached) {
		return &cached, true, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	summary := ReduceDashboard(snap, s.now().In(s.cfg.Location), s.cfg.OverdueAfter)
	s.cache.Set(ctx, adminDashboardKey, summary, s.cfg.CacheTTL)
	return &summary, false, nil
}

// StaffAnalytics returns one staff member's performance row and open load.
func (s *DashboardService) StaffAnalytics(ctx context.Context, staffID string) (*dto.StaffAnalyticsResponse, bool, error) {
	if staffID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "staffId is required")
	}
	key := fmt.Sprintf(staffDashboardKey, staffID)
	var cached dto.StaffAnalyticsResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	member, err := s.staff.FindStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, false, s.remote(err, "failed to load staff member")
	}

	complaints, err := s.complaints.ListAll(ctx, models.ComplaintFilter{AssignedTo: staffID})
	if err != nil {
		return nil, false, s.remote(err, "failed to load staff complaints")
	}
	feedback, err := s.feedback.ListAll(ctx)
	if err != nil {
		return nil, false, s.remote(err, "failed to load feedback")
	}

	snap := ReportSnapshot{Complaints: complaints, Feedback: feedback, Staff: []models.StaffMember{*member}}
	resp := &dto.StaffAnalyticsResponse{
		Performance: StaffPerformance(snap)[0],
		OpenLoad:    dto.StaffOpenLoad{StaffID: member.ID, Name: member.FullName},
	}
	for _, load := range StaffOpenLoads(snap, s.now().In(s.cfg.Location)) {
		if load.StaffID == member.ID {
			resp.OpenLoad = load
			resp.OpenLoad.Name = member.FullName
		}
	}
	s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

func (s *DashboardService) snapshot(ctx context.Context) (ReportSnapshot, error) {
	complaints, err := s.complaints.ListAll(ctx, models.ComplaintFilter{})
	if err != nil {
		return ReportSnapshot{}, s.remote(err, "failed to load complaints")
	}
	feedback, err := s.feedback.ListAll(ctx)
	if err != nil {
		return ReportSnapshot{}, s.remote(err, "failed to load feedback")
	}
	staff, err := s.staff.ListStaff(ctx)
	if err != nil {
		return ReportSnapshot{}, s.remote(err, "failed to load staff")
	}
	return ReportSnapshot{Complaints: complaints, Feedback: feedback, Staff: staff}, nil
}

func (s *DashboardService) remote(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return appErrors.Remote(err, msg)
}
