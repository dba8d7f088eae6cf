package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/export"
)

const exportTimeLayout = "2006-01-02 15:04"

var complaintExportColumns = []export.Column{
	{Key: "task_id", Label: "Task ID", Weight: 1},
	{Key: "created_at", Label: "Opened", Weight: 1.2},
	{Key: "facility", Label: "Facility", Weight: 1.2},
	{Key: "description", Label: "Description", Weight: 3},
	{Key: "status", Label: "Status", Weight: 1.1},
	{Key: "group", Label: "Group", Weight: 1.1},
	{Key: "assignee", Label: "Assignee", Weight: 1.2},
	{Key: "student", Label: "Student", Weight: 1.2},
	{Key: "resolved_at", Label: "Resolved", Weight: 1.2},
	{Key: "feedback", Label: "Rated", Weight: 0.6},
}

// ExportFile is a rendered export ready to be written out.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the complaint register as CSV or PDF.
type ExportService struct {
	complaints snapshotComplaintLister
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. loc controls how timestamps
// are printed; nil means UTC.
func NewExportService(complaints snapshotComplaintLister, loc *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{complaints: complaints, location: loc, logger: logger, now: time.Now}
}

// Complaints renders every complaint opened in [From, To) in the requested
// format. To is inclusive of its whole day.
func (s *ExportService) Complaints(ctx context.Context, req dto.ExportRequest) (*ExportFile, error) {
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	filter := models.ComplaintFilter{From: req.From}
	if req.To != nil {
		end := req.To.AddDate(0, 0, 1)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}

	rows, err := s.complaints.ListAll(ctx, filter)
	if err != nil {
		s.logger.Error("failed to load complaints for export", zap.Error(err))
		return nil, appErrors.Remote(err, "failed to load complaints for export")
	}

	now := s.now().In(s.location)
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Fixify complaints (generated %s)", now.Format(exportTimeLayout)),
		Columns: complaintExportColumns,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, s.exportRow(row))
	}

	data, err := export.Render(format, dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("complaints exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("complaints-%s.%s", now.Format("20060102-1504"), format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        len(rows),
	}, nil
}

func (s *ExportService) exportRow(row models.ComplaintView) map[string]string {
	out := map[string]string{
		"task_id":     row.TaskID,
		"created_at":  row.CreatedAt.In(s.location).Format(exportTimeLayout),
		"facility":    row.FacilityName,
		"description": row.Description,
		"status":      row.StatusID.Name(),
		"student":     row.StudentName,
		"feedback":    "no",
	}
	if row.GroupName != nil {
		out["group"] = *row.GroupName
	}
	if row.AssigneeName != nil {
		out["assignee"] = *row.AssigneeName
	}
	if row.ResolvedAt != nil {
		out["resolved_at"] = row.ResolvedAt.In(s.location).Format(exportTimeLayout)
	}
	if row.Feedback {
		out["feedback"] = "yes"
	}
	return out
}
