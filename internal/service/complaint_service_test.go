package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	"github.com/fixify-hostel/fixify-api/internal/repository"
	"github.com/fixify-hostel/fixify-api/pkg/config"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type complaintStoreStub struct {
	byTask        map[string]*models.ComplaintView
	groupNames    map[int]string
	findErr       error
	created       []*models.Complaint
	createErr     error
	statusUpdates []models.StatusID
	updateErr     error
	assignments   []int
	images        []*models.ComplaintImage
	evidenceCount int
	activity      []*models.ComplaintActivity
}

func newComplaintStoreStub(views ...*models.ComplaintView) *complaintStoreStub {
	s := &complaintStoreStub{
		byTask:     map[string]*models.ComplaintView{},
		groupNames: map[int]string{1: "Plumbing", 2: "Electrical"},
	}
	for _, v := range views {
		s.byTask[v.TaskID] = v
	}
	return s
}

func (s *complaintStoreStub) Create(_ context.Context, c *models.Complaint, images ...*models.ComplaintImage) error {
	if s.createErr != nil {
		return s.createErr
	}
	c.TaskID = "TASK10042"
	s.created = append(s.created, c)
	view := &models.ComplaintView{Complaint: *c, FacilityName: "Bathroom", FacilityCategory: models.CategoryShared}
	if c.AssignmentGroupID != nil {
		name := s.groupNames[*c.AssignmentGroupID]
		view.GroupName = &name
	}
	s.byTask[c.TaskID] = view
	for _, img := range images {
		img.ComplaintID = c.ID
		s.images = append(s.images, img)
	}
	return nil
}

// ListOpenByGroup serves the filed complaints to a QueueService so tests can
// follow a complaint from the student to the staff queue.
func (s *complaintStoreStub) ListOpenByGroup(_ context.Context, groupID int, _ []string) ([]models.ComplaintView, error) {
	var out []models.ComplaintView
	for _, c := range s.created {
		if c.AssignmentGroupID != nil && *c.AssignmentGroupID == groupID && !c.StatusID.Terminal() {
			out = append(out, *s.byTask[c.TaskID])
		}
	}
	return out, nil
}

func (s *complaintStoreStub) ListByAssignee(context.Context, string) ([]models.ComplaintView, error) {
	return nil, nil
}

func (s *complaintStoreStub) FindByTaskID(_ context.Context, taskID string) (*models.ComplaintView, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	v, ok := s.byTask[taskID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *v
	return &copied, nil
}

func (s *complaintStoreStub) ListByUser(_ context.Context, userID string, _, _ int) ([]models.ComplaintView, int, error) {
	var out []models.ComplaintView
	for _, v := range s.byTask {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, len(out), nil
}

func (s *complaintStoreStub) UpdateStatus(_ context.Context, _ string, _, to models.StatusID, _ *time.Time, _ time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.statusUpdates = append(s.statusUpdates, to)
	return nil
}

func (s *complaintStoreStub) UpdateAssignment(_ context.Context, _ string, groupID int, _ *string, _ time.Time) error {
	s.assignments = append(s.assignments, groupID)
	return nil
}

func (s *complaintStoreStub) CreateImage(_ context.Context, img *models.ComplaintImage) error {
	img.ID = "img-1"
	s.images = append(s.images, img)
	return nil
}

func (s *complaintStoreStub) ListImages(context.Context, string) ([]models.ComplaintImage, error) {
	out := make([]models.ComplaintImage, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, *img)
	}
	return out, nil
}

func (s *complaintStoreStub) CountImages(context.Context, string, models.ImageKind) (int, error) {
	return s.evidenceCount, nil
}

func (s *complaintStoreStub) CreateActivity(_ context.Context, a *models.ComplaintActivity) error {
	s.activity = append(s.activity, a)
	return nil
}

func (s *complaintStoreStub) ListActivity(context.Context, string) ([]models.ComplaintActivity, error) {
	out := make([]models.ComplaintActivity, 0, len(s.activity))
	for _, a := range s.activity {
		out = append(out, *a)
	}
	return out, nil
}

type feedbackStoreStub struct {
	submitted []*models.Feedback
	err       error
}

func (s *feedbackStoreStub) Submit(_ context.Context, fb *models.Feedback, _ *models.ComplaintActivity) error {
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, fb)
	return nil
}

func (s *feedbackStoreStub) FindByComplaint(context.Context, string) (*models.Feedback, error) {
	if len(s.submitted) == 0 {
		return nil, nil
	}
	return s.submitted[0], nil
}

type referenceStub struct {
	facilities map[int]models.FacilityType
	groups     map[string]models.AssignmentGroup
	staff      map[string]models.StaffMember
}

func newReferenceStub() *referenceStub {
	plumbing := "Plumbing"
	electrical := "Electrical"
	return &referenceStub{
		facilities: map[int]models.FacilityType{
			3: {ID: 3, Name: "Bathroom", CategoryID: models.CategoryShared, DefaultGroupID: 1, DefaultGroupName: "Plumbing"},
		},
		groups: map[string]models.AssignmentGroup{
			"Plumbing":   {ID: 1, Name: "Plumbing"},
			"Electrical": {ID: 2, Name: "Electrical"},
		},
		staff: map[string]models.StaffMember{
			"staff-1": {ID: "staff-1", FullName: "Ravi", Email: "ravi@hostel.edu", AssignedGroup: &plumbing},
			"staff-2": {ID: "staff-2", FullName: "Meena", Email: "meena@hostel.edu", AssignedGroup: &electrical},
		},
	}
}

func (s *referenceStub) ListFacilityTypes(context.Context) ([]models.FacilityType, error) {
	out := make([]models.FacilityType, 0, len(s.facilities))
	for _, f := range s.facilities {
		out = append(out, f)
	}
	return out, nil
}

func (s *referenceStub) FindFacilityType(_ context.Context, id int) (*models.FacilityType, error) {
	if f, ok := s.facilities[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (s *referenceStub) FindGroupByName(_ context.Context, name string) (*models.AssignmentGroup, error) {
	if g, ok := s.groups[name]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (s *referenceStub) FindStaff(_ context.Context, id string) (*models.StaffMember, error) {
	if m, ok := s.staff[id]; ok {
		return &m, nil
	}
	return nil, sql.ErrNoRows
}

type memStore struct {
	objects map[string][]byte
	putErr  error
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (storage.Object, error) {
	if m.putErr != nil {
		return storage.Object{}, m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return storage.Object{Key: key, URL: "https://cdn.test/" + key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (m *memStore) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type noticeRecorder struct{ notices []Notice }

func (r *noticeRecorder) Notify(n Notice) { r.notices = append(r.notices, n) }

type complaintFixture struct {
	svc      *ComplaintService
	store    *complaintStoreStub
	feedback *feedbackStoreStub
	objects  *memStore
	notices  *noticeRecorder
	signer   *storage.SignedURLSigner
}

func newComplaintFixture(views ...*models.ComplaintView) *complaintFixture {
	f := &complaintFixture{
		store:    newComplaintStoreStub(views...),
		feedback: &feedbackStoreStub{},
		objects:  &memStore{},
		notices:  &noticeRecorder{},
		signer:   storage.NewSignedURLSigner("confirm-secret", 10*time.Minute),
	}
	f.svc = NewComplaintService(ComplaintServiceParams{
		Complaints: f.store,
		Feedback:   f.feedback,
		References: newReferenceStub(),
		Store:      f.objects,
		Confirmer:  f.signer,
		Notifier:   f.notices,
		Metrics:    NewMetricsService(),
		Uploads: config.UploadConfig{
			MaxFileSizeBytes: 1024,
			AllowedMIMEs:     []string{"image/jpeg", "image/png", "image/webp"},
		},
		Now: func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) },
	})
	return f
}

var (
	student = models.Viewer{UserID: "stu-1", Role: models.RoleStudent, FullName: "Asha"}
	plumber = models.Viewer{UserID: "staff-1", Role: models.RoleStaff, FullName: "Ravi"}
	outside = models.Viewer{UserID: "staff-2", Role: models.RoleStaff, FullName: "Meena"}
	admin   = models.Viewer{UserID: "adm-1", Role: models.RoleAdmin, FullName: "Warden"}
)

func complaintIn(status models.StatusID) *models.ComplaintView {
	group := "Plumbing"
	groupID := 1
	return &models.ComplaintView{
		Complaint: models.Complaint{
			ID:                "c-1",
			TaskID:            "TASK10001",
			UserID:            student.UserID,
			FacilityTypeID:    3,
			StatusID:          status,
			AssignmentGroupID: &groupID,
			Description:       "Leaking tap",
			CreatedAt:         time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		},
		FacilityName: "Bathroom",
		GroupName:    &group,
		StudentName:  "Asha",
		StudentEmail: "asha@hostel.edu",
	}
}

func requireAppErr(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, errors.Is(err, target), "expected %s, got %v", target.Code, err)
}

func TestComplaintCreateStoresReportImage(t *testing.T) {
	f := newComplaintFixture()
	upload := &dto.Upload{Filename: "tap.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	detail, err := f.svc.Create(context.Background(), student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "  Leaking tap  "}, upload)
	require.NoError(t, err)

	assert.Equal(t, "TASK10042", detail.TaskID)
	assert.Equal(t, "Submitted", detail.Status)
	assert.Equal(t, "Leaking tap", detail.Description)
	assert.Equal(t, []string{"Pending"}, detail.NextStatus)
	require.Len(t, detail.Images, 1)
	require.Len(t, f.store.created, 1)
	created := f.store.created[0]
	assert.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(detail.Images[0].ObjectPath, "complaints/"+created.ID+"/report/"))
	assert.True(t, strings.HasSuffix(detail.Images[0].ObjectPath, ".png"))
	assert.Equal(t, "image/png", detail.Images[0].MimeType)
	require.Len(t, f.store.images, 1)
	assert.Equal(t, created.ID, f.store.images[0].ComplaintID)
	assert.Contains(t, f.objects.objects, detail.Images[0].ObjectPath)

	require.NotNil(t, created.AssignmentGroupID)
	assert.Equal(t, 1, *created.AssignmentGroupID)
	require.NotNil(t, detail.GroupName)
	assert.Equal(t, "Plumbing", *detail.GroupName)
}

func TestFiledComplaintReachesGroupQueue(t *testing.T) {
	f := newComplaintFixture()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "Shower drain blocked"}, nil)
	require.NoError(t, err)

	queue := NewQueueService(f.store, newReferenceStub(), config.ComplaintsConfig{}, nil)
	resp, err := queue.GroupedOpen(ctx, plumber)
	require.NoError(t, err)
	assert.Equal(t, "Plumbing", resp.GroupName)
	require.Len(t, resp.Shared, 1)
	require.Len(t, resp.Shared[0].Complaints, 1)
	assert.Equal(t, detail.TaskID, resp.Shared[0].Complaints[0].TaskID)

	// the handling group can act on it straight away
	summary, err := f.svc.TransitionStatus(ctx, plumber, detail.TaskID, dto.TransitionStatusRequest{Status: "Pending"})
	require.NoError(t, err)
	assert.Equal(t, "Pending", summary.Status)

	other, err := queue.GroupedOpen(ctx, outside)
	require.NoError(t, err)
	assert.Empty(t, other.Shared)
	assert.Empty(t, other.Individual)
}

func TestComplaintCreateValidation(t *testing.T) {
	f := newComplaintFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "   "}, nil)
	requireAppErr(t, err, appErrors.ErrValidation)

	_, err = f.svc.Create(ctx, student, dto.CreateComplaintRequest{FacilityTypeID: 99, Description: "broken"}, nil)
	requireAppErr(t, err, appErrors.ErrValidation)

	_, err = f.svc.Create(ctx, plumber, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "broken"}, nil)
	requireAppErr(t, err, appErrors.ErrForbidden)

	text := &dto.Upload{Size: 5, Body: strings.NewReader("hello")}
	_, err = f.svc.Create(ctx, student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "broken"}, text)
	requireAppErr(t, err, appErrors.ErrValidation)

	assert.Empty(t, f.store.created)
}

func TestComplaintCreateSurfacesStorageFailure(t *testing.T) {
	f := newComplaintFixture()
	f.objects.putErr = errors.New("bucket unavailable")
	upload := &dto.Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	_, err := f.svc.Create(context.Background(), student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "broken"}, upload)
	requireAppErr(t, err, appErrors.ErrRemoteOperation)
	assert.Empty(t, f.store.created)
	assert.Empty(t, f.store.images)
}

func TestComplaintCreateRemovesUploadWhenInsertFails(t *testing.T) {
	f := newComplaintFixture()
	f.store.createErr = errors.New("connection reset")
	upload := &dto.Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	_, err := f.svc.Create(context.Background(), student, dto.CreateComplaintRequest{FacilityTypeID: 3, Description: "broken"}, upload)
	requireAppErr(t, err, appErrors.ErrRemoteOperation)
	assert.Empty(t, f.store.created)
	assert.Empty(t, f.objects.objects)
}

func TestTransitionFollowsStatusGraph(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusSubmitted))

	summary, err := f.svc.TransitionStatus(context.Background(), plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Pending"})
	require.NoError(t, err)
	assert.Equal(t, "Pending", summary.Status)
	assert.Equal(t, []models.StatusID{models.StatusPending}, f.store.statusUpdates)
	require.Len(t, f.store.activity, 1)
	assert.Equal(t, "Submitted", *f.store.activity[0].OldValue)
	assert.Equal(t, "Pending", *f.store.activity[0].NewValue)
	require.Len(t, f.notices.notices, 1)
	assert.Equal(t, "asha@hostel.edu", f.notices.notices[0].To)
}

func TestTransitionRejectsSkippedStep(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusSubmitted))

	_, err := f.svc.TransitionStatus(context.Background(), admin, "TASK10001", dto.TransitionStatusRequest{Status: "In Progress"})
	requireAppErr(t, err, appErrors.ErrInvalidState)
	assert.Empty(t, f.store.statusUpdates)
}

func TestTransitionFromTerminalIsInvalid(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusResolved))

	_, err := f.svc.TransitionStatus(context.Background(), admin, "TASK10001", dto.TransitionStatusRequest{Status: "In Progress"})
	requireAppErr(t, err, appErrors.ErrInvalidState)
}

func TestTransitionRequiresGroupMembership(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusSubmitted))

	_, err := f.svc.TransitionStatus(context.Background(), outside, "TASK10001", dto.TransitionStatusRequest{Status: "Pending"})
	requireAppErr(t, err, appErrors.ErrForbidden)

	_, err = f.svc.TransitionStatus(context.Background(), student, "TASK10001", dto.TransitionStatusRequest{Status: "Pending"})
	requireAppErr(t, err, appErrors.ErrForbidden)
}

func TestTransitionToResolvedNeedsEvidence(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusInProgress))
	ctx := context.Background()

	_, err := f.svc.TransitionStatus(ctx, plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Resolved"})
	requireAppErr(t, err, appErrors.ErrMissingEvidence)
	assert.Empty(t, f.store.statusUpdates)

	f.store.evidenceCount = 1
	summary, err := f.svc.TransitionStatus(ctx, plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Closed Complete"})
	require.NoError(t, err)
	assert.Equal(t, "Resolved", summary.Status)
	require.NotNil(t, summary.ResolvedAt)
}

func TestClosedIncompleteIsTwoStep(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusOnHold))
	ctx := context.Background()

	_, err := f.svc.TransitionStatus(ctx, plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Closed Incomplete"})
	requireAppErr(t, err, appErrors.ErrConfirmationRequired)
	assert.Empty(t, f.store.statusUpdates)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	token, _ := appErr.Details["confirmation_token"].(string)
	require.NotEmpty(t, token)

	_, err = f.svc.TransitionStatus(ctx, plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Closed Incomplete", ConfirmationToken: "forged"})
	requireAppErr(t, err, appErrors.ErrConfirmationRequired)

	summary, err := f.svc.TransitionStatus(ctx, plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Closed Incomplete", ConfirmationToken: token})
	require.NoError(t, err)
	assert.Equal(t, "Closed Incomplete", summary.Status)
	assert.Nil(t, summary.ResolvedAt)
}

func TestTransitionStaleWriteIsInvalidState(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusSubmitted))
	f.store.updateErr = repository.ErrStaleWrite

	_, err := f.svc.TransitionStatus(context.Background(), plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Pending"})
	requireAppErr(t, err, appErrors.ErrInvalidState)
}

func TestTransitionUnknownComplaint(t *testing.T) {
	f := newComplaintFixture()

	_, err := f.svc.TransitionStatus(context.Background(), admin, "TASK404", dto.TransitionStatusRequest{Status: "Pending"})
	requireAppErr(t, err, appErrors.ErrNotFound)

	f.store.findErr = errors.New("connection reset")
	_, err = f.svc.TransitionStatus(context.Background(), admin, "TASK404", dto.TransitionStatusRequest{Status: "Pending"})
	requireAppErr(t, err, appErrors.ErrRemoteOperation)
}

func TestTransitionRejectsUnknownStatusName(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusSubmitted))

	for _, status := range []string{"Teleported", "7", ""} {
		_, err := f.svc.TransitionStatus(context.Background(), plumber, "TASK10001", dto.TransitionStatusRequest{Status: status})
		requireAppErr(t, err, appErrors.ErrValidation)
	}
}

func TestRegisterValidatorsOnSharedValidator(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	assert.NoError(t, v.Struct(dto.TransitionStatusRequest{Status: "On Hold"}))
	assert.Error(t, v.Struct(dto.TransitionStatusRequest{Status: "Teleported"}))

	f := newComplaintFixture(complaintIn(models.StatusSubmitted))
	svc := NewComplaintService(ComplaintServiceParams{
		Complaints: f.store,
		Feedback:   f.feedback,
		References: newReferenceStub(),
		Store:      f.objects,
		Confirmer:  f.signer,
		Metrics:    NewMetricsService(),
		Validator:  v,
	})
	_, err := svc.TransitionStatus(context.Background(), plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Teleported"})
	requireAppErr(t, err, appErrors.ErrValidation)
	_, err = svc.TransitionStatus(context.Background(), plumber, "TASK10001", dto.TransitionStatusRequest{Status: "Pending"})
	require.NoError(t, err)
}

func TestAttachEvidence(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusInProgress))
	upload := &dto.Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	img, err := f.svc.AttachEvidence(context.Background(), plumber, "TASK10001", upload)
	require.NoError(t, err)
	assert.Equal(t, models.ImageKindEvidence, img.Kind)
	assert.True(t, strings.HasPrefix(img.ObjectPath, "complaints/c-1/evidence/"))
	require.Len(t, f.store.activity, 1)
	assert.Equal(t, models.ActivityEvidenceAdded, f.store.activity[0].Kind)
}

func TestAttachEvidenceRejectsOversizedAndClosed(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusInProgress))
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)

	_, err := f.svc.AttachEvidence(context.Background(), plumber, "TASK10001", &dto.Upload{Size: int64(len(big)), Body: bytes.NewReader(big)})
	requireAppErr(t, err, appErrors.ErrValidation)

	// a client that lies about the size is caught after the write
	_, err = f.svc.AttachEvidence(context.Background(), plumber, "TASK10001", &dto.Upload{Size: 10, Body: bytes.NewReader(big)})
	requireAppErr(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.objects.objects)

	closed := newComplaintFixture(complaintIn(models.StatusClosedIncomplete))
	_, err = closed.svc.AttachEvidence(context.Background(), plumber, "TASK10001", &dto.Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	requireAppErr(t, err, appErrors.ErrInvalidState)
}

func TestAssign(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusPending))
	ctx := context.Background()

	summary, err := f.svc.Assign(ctx, plumber, "TASK10001", dto.AssignRequest{GroupName: "Plumbing", StaffID: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", *summary.AssigneeName)
	assert.Equal(t, []int{1}, f.store.assignments)
	require.Len(t, f.notices.notices, 1)
	assert.Equal(t, "ravi@hostel.edu", f.notices.notices[0].To)

	_, err = f.svc.Assign(ctx, plumber, "TASK10001", dto.AssignRequest{GroupName: "Electrical"})
	requireAppErr(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Assign(ctx, admin, "TASK10001", dto.AssignRequest{GroupName: "Carpentry"})
	requireAppErr(t, err, appErrors.ErrValidation)

	_, err = f.svc.Assign(ctx, admin, "TASK10001", dto.AssignRequest{GroupName: "Plumbing", StaffID: "staff-2"})
	requireAppErr(t, err, appErrors.ErrValidation)
}

func TestAssignOnTerminalIsInvalid(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusResolved))

	_, err := f.svc.Assign(context.Background(), admin, "TASK10001", dto.AssignRequest{GroupName: "Electrical"})
	requireAppErr(t, err, appErrors.ErrInvalidState)
	assert.Empty(t, f.store.assignments)
}

func TestWorkNotesHiddenFromStudent(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusInProgress))
	ctx := context.Background()

	_, err := f.svc.AddWorkNote(ctx, plumber, "TASK10001", dto.WorkNoteRequest{Note: " "})
	requireAppErr(t, err, appErrors.ErrValidation)

	_, err = f.svc.AddWorkNote(ctx, plumber, "TASK10001", dto.WorkNoteRequest{Note: "washer ordered"})
	require.NoError(t, err)

	staffView, err := f.svc.Get(ctx, plumber, "TASK10001")
	require.NoError(t, err)
	assert.Len(t, staffView.Activity, 1)

	studentView, err := f.svc.Get(ctx, student, "TASK10001")
	require.NoError(t, err)
	assert.Empty(t, studentView.Activity)
	assert.Equal(t, []string{"On Hold", "Resolved", "Closed Incomplete"}, studentView.NextStatus)
}

func TestGetScopesByViewer(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusInProgress))
	ctx := context.Background()

	other := models.Viewer{UserID: "stu-2", Role: models.RoleStudent}
	_, err := f.svc.Get(ctx, other, "TASK10001")
	requireAppErr(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, outside, "TASK10001")
	requireAppErr(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(ctx, admin, "TASK10001")
	require.NoError(t, err)
}

func TestSubmitFeedback(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusResolved))
	ctx := context.Background()

	fb, err := f.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 5, Comment: "quick fix"})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, "quick fix", *fb.Comments)
}

func TestSubmitFeedbackRules(t *testing.T) {
	ctx := context.Background()

	// rating is checked before the complaint is loaded
	f := newComplaintFixture()
	f.store.findErr = errors.New("must not be called")
	_, err := f.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 6})
	requireAppErr(t, err, appErrors.ErrValidation)
	_, err = f.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 0})
	requireAppErr(t, err, appErrors.ErrValidation)

	open := newComplaintFixture(complaintIn(models.StatusInProgress))
	_, err = open.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 4})
	requireAppErr(t, err, appErrors.ErrInvalidState)

	resolved := newComplaintFixture(complaintIn(models.StatusResolved))
	_, err = resolved.svc.SubmitFeedback(ctx, models.Viewer{UserID: "stu-2", Role: models.RoleStudent}, "TASK10001", dto.FeedbackRequest{Rating: 4})
	requireAppErr(t, err, appErrors.ErrForbidden)

	rated := complaintIn(models.StatusResolved)
	rated.Feedback = true
	dup := newComplaintFixture(rated)
	_, err = dup.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 4})
	requireAppErr(t, err, appErrors.ErrConflict)

	race := newComplaintFixture(complaintIn(models.StatusResolved))
	race.feedback.err = repository.ErrDuplicate
	_, err = race.svc.SubmitFeedback(ctx, student, "TASK10001", dto.FeedbackRequest{Rating: 4})
	requireAppErr(t, err, appErrors.ErrConflict)
}

func TestListMine(t *testing.T) {
	f := newComplaintFixture(complaintIn(models.StatusPending))

	items, page, err := f.svc.ListMine(context.Background(), student, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "TASK10001", items[0].TaskID)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.Page)

	_, _, err = f.svc.ListMine(context.Background(), admin, 1, 10)
	requireAppErr(t, err, appErrors.ErrForbidden)
}
