package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	"github.com/fixify-hostel/fixify-api/pkg/config"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
)

const defaultDisplayLayout = "02 Jan 2006, 03:04 PM"

type queueStore interface {
	ListOpenByGroup(ctx context.Context, groupID int, closedNames []string) ([]models.ComplaintView, error)
	ListByAssignee(ctx context.Context, staffID string) ([]models.ComplaintView, error)
}

type queueReferenceReader interface {
	FindStaff(ctx context.Context, id string) (*models.StaffMember, error)
	FindGroupByName(ctx context.Context, name string) (*models.AssignmentGroup, error)
}

// QueueService answers the staff work queues.
type QueueService struct {
	complaints queueStore
	refs       queueReferenceReader
	location   *time.Location
	layout     string
	logger     *zap.Logger
	now        func() time.Time
}

// NewQueueService builds a QueueService. An unknown display zone falls back
// to UTC.
func NewQueueService(complaints queueStore, refs queueReferenceReader, cfg config.ComplaintsConfig, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := time.UTC
	if cfg.DisplayTimezone != "" {
		if loaded, err := time.LoadLocation(cfg.DisplayTimezone); err == nil {
			loc = loaded
		} else {
			logger.Warn("unknown display timezone, using UTC", zap.String("timezone", cfg.DisplayTimezone), zap.Error(err))
		}
	}
	layout := cfg.DisplayLayout
	if layout == "" {
		layout = defaultDisplayLayout
	}
	return &QueueService{
		complaints: complaints,
		refs:       refs,
		location:   loc,
		layout:     layout,
		logger:     logger,
		now:        time.Now,
	}
}

// GroupedOpen lists the open complaints of the viewer's assignment group,
// bucketed by facility. A viewer without a resolvable group gets an empty
// queue.
func (s *QueueService) GroupedOpen(ctx context.Context, viewer models.Viewer) (*dto.GroupedQueueResponse, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	empty := &dto.GroupedQueueResponse{Individual: []dto.FacilityBucket{}, Shared: []dto.FacilityBucket{}}

	member, err := s.refs.FindStaff(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return empty, nil
		}
		return nil, s.remote(err, "failed to load staff assignment")
	}
	if member.AssignedGroup == nil || *member.AssignedGroup == "" {
		return empty, nil
	}

	group, err := s.refs.FindGroupByName(ctx, *member.AssignedGroup)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("staff group has no matching assignment group", zap.String("group", *member.AssignedGroup))
			return empty, nil
		}
		return nil, s.remote(err, "failed to load assignment group")
	}

	rows, err := s.complaints.ListOpenByGroup(ctx, group.ID, models.ClosedStatusNames)
	if err != nil {
		return nil, s.remote(err, "failed to load group queue")
	}

	resp := GroupByFacility(rows, s.location, s.layout)
	resp.GroupName = group.Name
	return resp, nil
}

// GroupByFacility partitions rows into individual and shared facilities and
// buckets each partition by display name in first-seen order. Rows keep
// their input order within a bucket.
func GroupByFacility(rows []models.ComplaintView, loc *time.Location, layout string) *dto.GroupedQueueResponse {
	if loc == nil {
		loc = time.UTC
	}
	individual := newBucketer()
	shared := newBucketer()
	for _, row := range rows {
		item := dto.QueueItem{
			TaskID:      row.TaskID,
			Description: row.Description,
			OpenedAt:    row.CreatedAt.In(loc).Format(layout),
		}
		if row.FacilityCategory == models.CategoryShared {
			shared.add(row.FacilityName, row.FacilityTypeID, item)
		} else {
			individual.add(row.FacilityName, row.FacilityTypeID, item)
		}
	}
	return &dto.GroupedQueueResponse{Individual: individual.buckets, Shared: shared.buckets}
}

type bucketer struct {
	index   map[string]int
	buckets []dto.FacilityBucket
}

func newBucketer() *bucketer {
	return &bucketer{index: map[string]int{}, buckets: []dto.FacilityBucket{}}
}

func (b *bucketer) add(name string, facilityID int, item dto.QueueItem) {
	i, ok := b.index[name]
	if !ok {
		i = len(b.buckets)
		b.index[name] = i
		b.buckets = append(b.buckets, dto.FacilityBucket{FacilityName: name, FacilityIDs: []int{}, Complaints: []dto.QueueItem{}})
	}
	bucket := &b.buckets[i]
	if !containsInt(bucket.FacilityIDs, facilityID) {
		bucket.FacilityIDs = append(bucket.FacilityIDs, facilityID)
	}
	bucket.Complaints = append(bucket.Complaints, item)
}

// Workload pages through the complaints assigned to the viewer and reports
// how long the unresolved ones have been waiting.
func (s *QueueService) Workload(ctx context.Context, viewer models.Viewer, page, pageSize int) (*dto.WorkloadResponse, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	rows, err := s.complaints.ListByAssignee(ctx, viewer.UserID)
	if err != nil {
		return nil, s.remote(err, "failed to load workload")
	}

	page, pageSize = models.NormalizePage(page, pageSize, 100)
	start := (page - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}

	items := make([]dto.ComplaintSummary, 0, end-start)
	for _, row := range rows[start:end] {
		items = append(items, dto.NewComplaintSummary(row))
	}
	return &dto.WorkloadResponse{
		Items:      items,
		Aging:      AgingHistogram(rows, s.now()),
		Pagination: models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(rows)},
	}, nil
}

// AgingHistogram counts complaints without resolved_at by hours open.
func AgingHistogram(rows []models.ComplaintView, now time.Time) []dto.AgingBucket {
	buckets := []dto.AgingBucket{
		{Label: "<24h"},
		{Label: "1-2 days"},
		{Label: "2-5 days"},
		{Label: ">5 days"},
	}
	for _, row := range rows {
		if row.ResolvedAt != nil {
			continue
		}
		hours := now.Sub(row.CreatedAt).Hours()
		switch {
		case hours < 24:
			buckets[0].Count++
		case hours <= 48:
			buckets[1].Count++
		case hours <= 120:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
	}
	return buckets
}

func (s *QueueService) remote(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return appErrors.Remote(err, msg)
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
