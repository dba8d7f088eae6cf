package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

var complaintViewCols = []string{
	"id", "task_id", "user_id", "facility_type_id", "status_id", "assignment_group_id",
	"assigned_to", "description", "feedback", "created_at", "updated_at", "resolved_at",
	"facility_name", "facility_category", "status_name", "group_name", "assignee_name", "student_name", "student_email",
}

func TestComplaintCreateReturnsTaskID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	groupID := 1
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints (id, user_id, facility_type_id, status_id, assignment_group_id, description, created_at, updated_at)")).
		WithArgs("c1", "stu-1", 3, models.StatusSubmitted, &groupID, "Fan not working", now).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "created_at", "updated_at"}).AddRow("TASK10001", now, now))
	mock.ExpectCommit()

	c := &models.Complaint{ID: "c1", UserID: "stu-1", FacilityTypeID: 3, AssignmentGroupID: &groupID, Description: "Fan not working", CreatedAt: now}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, "TASK10001", c.TaskID)
	assert.Equal(t, models.StatusSubmitted, c.StatusID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintCreateWritesImagesInSameTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints")).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "created_at", "updated_at"}).AddRow("TASK10002", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO complaint_images")).
		WithArgs("img-1", "c2", models.ImageKindReport, "complaints/c2/report/a.png", "https://cdn.test/a.png", "image/png", int64(10), "stu-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &models.Complaint{ID: "c2", UserID: "stu-1", FacilityTypeID: 3, Description: "Tap leaks", CreatedAt: now}
	img := &models.ComplaintImage{ID: "img-1", Kind: models.ImageKindReport, ObjectPath: "complaints/c2/report/a.png",
		PublicURL: "https://cdn.test/a.png", MimeType: "image/png", SizeBytes: 10, UploadedBy: "stu-1", CreatedAt: now}
	require.NoError(t, repo.Create(context.Background(), c, img))
	assert.Equal(t, "c2", img.ComplaintID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintCreateRollsBackWhenImageFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints")).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "created_at", "updated_at"}).AddRow("TASK10003", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO complaint_images")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	c := &models.Complaint{ID: "c3", UserID: "stu-1", FacilityTypeID: 3, Description: "Tap leaks", CreatedAt: now}
	err := repo.Create(context.Background(), c, &models.ComplaintImage{Kind: models.ImageKindReport, ObjectPath: "k"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenByGroupExcludesClosedNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	group := "Electrical"
	rows := sqlmock.NewRows(complaintViewCols).
		AddRow("c2", "TASK10002", "stu-1", 1, 2, 1, nil, "Light flickers", false, now, now, nil, "Light", 1, "Pending", group, nil, "Asha", "asha@hostel.edu")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.assignment_group_id = $1 AND NOT (s.name = ANY($2)) ORDER BY c.created_at DESC")).
		WithArgs(1, pq.Array(models.ClosedStatusNames)).
		WillReturnRows(rows)

	items, err := repo.ListOpenByGroup(context.Background(), 1, models.ClosedStatusNames)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Light", items[0].FacilityName)
	assert.Equal(t, models.StatusPending, items[0].StatusID)
	assert.Equal(t, "Electrical", *items[0].GroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserPaginates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.user_id = $1 ORDER BY c.created_at DESC, c.task_id DESC LIMIT 10 OFFSET 10")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows(complaintViewCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints WHERE user_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	items, total, err := repo.ListByUser(context.Background(), "stu-1", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 12, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllSnapshotOrderWithFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.created_at >= $1 ORDER BY c.created_at ASC, c.task_id ASC")).
		WithArgs(from).
		WillReturnRows(sqlmock.NewRows(complaintViewCols))

	_, err := repo.ListAll(context.Background(), models.ComplaintFilter{From: &from})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllByAssignee(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.assigned_to = $1 ORDER BY c.created_at ASC")).
		WithArgs("staff-1").
		WillReturnRows(sqlmock.NewRows(complaintViewCols))

	_, err := repo.ListAll(context.Background(), models.ComplaintFilter{AssignedTo: "staff-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status_id = $3, resolved_at = $4, updated_at = $5 WHERE id = $1 AND status_id = $2")).
		WithArgs("c1", models.StatusInProgress, models.StatusResolved, &now, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "c1", models.StatusInProgress, models.StatusResolved, &now, now)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountEvidenceImages(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaint_images WHERE complaint_id = $1 AND kind = $2")).
		WithArgs("c1", models.ImageKindEvidence).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountImages(context.Background(), "c1", models.ImageKindEvidence)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCreateActivityAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec("INSERT INTO complaint_activity").WillReturnResult(sqlmock.NewResult(1, 1))

	a := &models.ComplaintActivity{ComplaintID: "c1", Kind: models.ActivityWorkNote}
	require.NoError(t, repo.CreateActivity(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}
